package mockapi

import "github.com/kube-rca/soc-console/internal/model"

// DemoUser - 시드 계정 정보
type DemoUser struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

// DemoUsers are the accounts created by Seed.
var DemoUsers = []DemoUser{
	{Username: "alice", Email: "alice@soc.example", Password: "alice-password", Roles: []string{model.RoleAnalyst}},
	{Username: "bob", Email: "bob@soc.example", Password: "bob-password", Roles: []string{model.RoleAnalyst}},
	{Username: "admin", Email: "admin@soc.example", Password: "admin-password", Roles: []string{model.RoleAdmin}},
}

// Seed fills an empty store with demo users, incidents and playbooks.
func Seed(auth *AuthService, store *Store) error {
	for _, u := range DemoUsers {
		if err := auth.EnsureUser(u.Username, u.Email, u.Password, u.Roles); err != nil {
			return err
		}
	}

	incidents := []struct {
		incidentType string
		severity     model.Severity
	}{
		{"phishing", model.SeverityHigh},
		{"phishing", model.SeverityMedium},
		{"malware", model.SeverityHigh},
		{"brute_force", model.SeverityLow},
		{"data_exfiltration", model.SeverityMedium},
	}
	for _, inc := range incidents {
		store.CreateIncident(inc.incidentType, inc.severity)
	}

	store.AddPlaybook("Phishing triage", "phishing")
	store.AddPlaybook("Credential reset", "phishing")
	store.AddPlaybook("Malware containment", "malware")
	store.AddPlaybook("Account lockout review", "brute_force")
	return nil
}
