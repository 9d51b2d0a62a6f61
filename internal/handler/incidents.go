package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/soc-console/internal/mockapi"
	"github.com/kube-rca/soc-console/internal/model"
)

type IncidentHandler struct {
	store *mockapi.Store
}

func NewIncidentHandler(store *mockapi.Store) *IncidentHandler {
	return &IncidentHandler{store: store}
}

// ListIncidents godoc
// @Summary List incidents
// @Tags incidents
// @Produce json
// @Security BearerAuth
// @Param status query string false "Incident status"
// @Param severity query string false "LOW, MEDIUM or HIGH"
// @Param analyst query string false "Analyst username or id"
// @Param search query string false "Substring of incident id or type"
// @Success 200 {array} model.Incident
// @Failure 401 {object} model.ErrorResponse
// @Router /incidents [get]
func (h *IncidentHandler) ListIncidents(c *gin.Context) {
	filters := model.FilterSet{
		Status:   c.Query("status"),
		Severity: c.Query("severity"),
		Analyst:  c.Query("analyst"),
		Search:   c.Query("search"),
	}
	c.JSON(http.StatusOK, h.store.ListIncidents(filters))
}

// GetIncident godoc
// @Summary Get incident detail
// @Tags incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} model.Incident
// @Failure 404 {object} model.ErrorResponse
// @Router /incidents/{id} [get]
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	incident, err := h.store.Incident(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

// ListAnalysts godoc
// @Summary List analysts
// @Tags incidents
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Analyst
// @Router /analysts [get]
func (h *IncidentHandler) ListAnalysts(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Analysts())
}

// ListPlaybooks godoc
// @Summary List playbooks
// @Tags incidents
// @Produce json
// @Security BearerAuth
// @Param incidentType query string false "Incident type"
// @Success 200 {array} model.Playbook
// @Router /playbooks [get]
func (h *IncidentHandler) ListPlaybooks(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Playbooks(c.Query("incidentType")))
}
