package handler

import (
	"net/http"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Authenticator
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Authenticator) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs lists billing audit entries, newest first
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity_id  query     string  false  "Document ID"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p, err := pagination.Parse(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), c.Query("entity_id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, logs, total, p))
}
