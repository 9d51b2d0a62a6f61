package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/soc-console/internal/mockapi"
	"github.com/kube-rca/soc-console/internal/model"
)

const authUserKey = "auth_user"

// authSchemes are the accepted Authorization header prefixes.
var authSchemes = []string{"Bearer ", "Token "}

func AuthMiddleware(authService *mockapi.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token := ""
		for _, scheme := range authSchemes {
			if strings.HasPrefix(header, scheme) {
				token = strings.TrimSpace(strings.TrimPrefix(header, scheme))
				break
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
			return
		}

		user, err := authService.ParseAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

func GetAuthUser(c *gin.Context) *mockapi.AuthUser {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*mockapi.AuthUser); ok {
			return user
		}
	}
	return nil
}

// RequireAnalyst rejects callers without an analyst id. Must run after
// AuthMiddleware.
func RequireAnalyst() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetAuthUser(c)
		if user == nil || user.AnalystID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{Error: "analyst role required"})
			return
		}
		c.Next()
	}
}

func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestLogger logs one line per request, tagged with the caller's
// X-Request-ID when present.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if id := c.GetHeader("X-Request-ID"); id != "" {
			attrs = append(attrs, "request_id", id)
		}
		if user := GetAuthUser(c); user != nil {
			attrs = append(attrs, "username", user.Username)
		}
		logger.Info("request", attrs...)
	}
}
