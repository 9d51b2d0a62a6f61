package model

// LoginRequest - POST /auth/login 요청 본문
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse - 로그인 성공 응답
type LoginResponse struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
}

// Identity is the authenticated principal as reported by the SOC service.
// AnalystID is empty for accounts that are not analysts (admins).
type Identity struct {
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	AnalystID string   `json:"analyst_id,omitempty"`
}

// HasRole reports whether role is among the identity's roles.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Session is the persisted authentication state of the console.
type Session struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
}

// AccessRequest - POST /access-requests 요청 본문
type AccessRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// RegistrationRequest - POST /registrations/{token} 요청 본문
type RegistrationRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

const (
	RoleAnalyst = "Analyst"
	RoleAdmin   = "Admin"
)
