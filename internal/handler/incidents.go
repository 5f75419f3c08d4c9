package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zabbix-incident/backend/internal/model"
	"github.com/zabbix-incident/backend/internal/service"
)

type IncidentHandler struct {
	svc *service.IncidentService
}

func NewIncidentHandler(svc *service.IncidentService) *IncidentHandler {
	return &IncidentHandler{svc: svc}
}

// CreateIncident godoc
// @Summary Create incident from a Zabbix alert event
// @Tags incidents
// @Accept json
// @Produce json
// @Param request body model.CreateIncidentRequest true "Incident payload"
// @Success 201 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/incidents [post]
func (h *IncidentHandler) CreateIncident(c *gin.Context) {
	var req model.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	res, err := h.svc.CreateIncident(c.Request.Context(), req)
	switch {
	case errors.Is(err, model.ErrInvalidSeverity):
		writeError(c, http.StatusBadRequest, "Unrecognized severity level", err.Error())
		return
	case errors.Is(err, model.ErrDuplicateEventID):
		writeError(c, http.StatusConflict, "Incident already exists for this Zabbix event", err.Error())
		return
	case errors.Is(err, model.ErrPublishFailure):
		// 레코드는 이미 저장됨. 발행 실패만 서버 에러로 알림
		writeError(c, http.StatusBadGateway, "Incident stored but broker publish failed", err.Error())
		return
	case err != nil:
		writeError(c, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusCreated, model.SuccessResponse{
		Status:    http.StatusCreated,
		Message:   "Incident created",
		Data:      res,
		Timestamp: time.Now().UTC(),
	})
}

// ListIncidents godoc
// @Summary List incidents with paging and filters
// @Tags incidents
// @Produce json
// @Param page query int false "Page number (0-based)"
// @Param size query int false "Page size"
// @Param sort query string false "Sort key (createdAt, updatedAt, severity, status, title)"
// @Param dir query string false "Sort direction (asc, desc)"
// @Param host query string false "Host substring filter"
// @Param status query string false "Status filter"
// @Success 200 {object} model.SuccessResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/incidents [get]
func (h *IncidentHandler) ListIncidents(c *gin.Context) {
	query := model.ListIncidentsQuery{
		Page:    parseIntDefault(c.Query("page"), 0),
		Size:    parseIntDefault(c.Query("size"), model.DefaultPageSize),
		SortBy:  c.Query("sort"),
		SortDir: c.Query("dir"),
		Host:    c.Query("host"),
		Status:  c.Query("status"),
	}

	page, err := h.svc.ListIncidents(c.Request.Context(), query)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{
		Status:    http.StatusOK,
		Message:   "Incidents listed",
		Data:      page,
		Timestamp: time.Now().UTC(),
	})
}

// GetIncident godoc
// @Summary Get incident by id
// @Tags incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/incidents/{id} [get]
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	res, err := h.svc.GetIncident(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{
		Status:    http.StatusOK,
		Message:   "Incident found",
		Data:      res,
		Timestamp: time.Now().UTC(),
	})
}

// GetIncidentByZabbixEventID godoc
// @Summary Get incident by Zabbix event id
// @Tags incidents
// @Produce json
// @Param zabbixEventId path string true "Zabbix event ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/zabbix/incidents/{zabbixEventId} [get]
func (h *IncidentHandler) GetIncidentByZabbixEventID(c *gin.Context) {
	res, err := h.svc.GetIncidentByZabbixEventID(c.Request.Context(), c.Param("zabbixEventId"))
	if err != nil {
		h.writeLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{
		Status:    http.StatusOK,
		Message:   "Incident found",
		Data:      res,
		Timestamp: time.Now().UTC(),
	})
}

// UpdateIncidentStatus godoc
// @Summary Update incident status
// @Tags incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param request body model.UpdateIncidentStatusRequest true "New status"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/incidents/{id}/status [put]
func (h *IncidentHandler) UpdateIncidentStatus(c *gin.Context) {
	var req model.UpdateIncidentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	res, err := h.svc.UpdateIncidentStatus(c.Request.Context(), c.Param("id"), req.Status)
	switch {
	case errors.Is(err, model.ErrInvalidStatus):
		writeError(c, http.StatusBadRequest, "Unrecognized incident status", err.Error())
		return
	case errors.Is(err, model.ErrNotFound):
		writeError(c, http.StatusNotFound, "Incident not found", nil)
		return
	case err != nil:
		writeError(c, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{
		Status:    http.StatusOK,
		Message:   "Incident status updated",
		Data:      res,
		Timestamp: time.Now().UTC(),
	})
}

// DeleteIncident godoc
// @Summary Delete incident by id
// @Tags incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/incidents/{id} [delete]
func (h *IncidentHandler) DeleteIncident(c *gin.Context) {
	err := h.svc.DeleteIncident(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(c, http.StatusNotFound, "Incident not found", nil)
		return
	case err != nil:
		writeError(c, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{
		Status:    http.StatusOK,
		Message:   "Incident deleted",
		Timestamp: time.Now().UTC(),
	})
}

func (h *IncidentHandler) writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, model.ErrNotFound) {
		writeError(c, http.StatusNotFound, "Incident not found", nil)
		return
	}
	writeError(c, http.StatusInternalServerError, "Internal server error", nil)
}

func writeError(c *gin.Context, status int, message string, details any) {
	c.JSON(status, model.ErrorResponse{
		Status:    status,
		Message:   message,
		Path:      c.Request.URL.Path,
		Timestamp: time.Now().UTC(),
		Details:   details,
	})
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return val
}
