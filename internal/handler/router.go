package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/soc-console/internal/mockapi"
)

// NewRouter wires the reference SOC service routes.
func NewRouter(auth *mockapi.AuthService, store *mockapi.Store, logger *slog.Logger, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), CORSMiddleware(allowedOrigins))

	// 건강 체크
	r.GET("/", Root)
	r.GET("/healthz", Healthz)

	authHandler := NewAuthHandler(auth)
	r.POST("/auth/login", authHandler.Login)
	r.POST("/access-requests", authHandler.RequestAccess)
	r.POST("/registrations/:token", authHandler.Register)

	authed := r.Group("/", AuthMiddleware(auth))
	authed.POST("/auth/logout", authHandler.Logout)

	incidentHandler := NewIncidentHandler(store)
	authed.GET("/incidents", incidentHandler.ListIncidents)
	authed.GET("/incidents/:id", incidentHandler.GetIncident)
	authed.GET("/analysts", incidentHandler.ListAnalysts)
	authed.GET("/playbooks", incidentHandler.ListPlaybooks)

	ticketHandler := NewTicketHandler(store)
	tickets := authed.Group("/tickets/:id", RequireAnalyst())
	tickets.POST("/assign", ticketHandler.Assign)
	tickets.POST("/start", ticketHandler.Start)
	tickets.POST("/pause", ticketHandler.Pause)
	tickets.POST("/complete", ticketHandler.Complete)

	return r
}
