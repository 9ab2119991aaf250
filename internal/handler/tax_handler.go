package handler

import (
	"net/http"
	"strings"
	"time"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
	auth       *middleware.Authenticator
}

func NewTaxHandler(taxService service.TaxService, auth *middleware.Authenticator) *TaxHandler {
	return &TaxHandler{taxService: taxService, auth: auth}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/api/tax-rules")
	{
		tax.GET("", h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager, middleware.RoleStaff), h.GetTaxRules)
		tax.GET("/active", h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager, middleware.RoleStaff), h.GetActiveRate)
		tax.POST("", h.auth.RequireRole(middleware.RoleAdmin), h.CreateTaxRule)
		tax.DELETE("/:id", h.auth.RequireRole(middleware.RoleAdmin), h.DeleteTaxRule)
	}
}

// GetTaxRules returns tax rules ordered by effective_from DESC
// @Summary      List tax rules
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/tax-rules [get]
func (h *TaxHandler) GetTaxRules(c *gin.Context) {
	p, err := pagination.Parse(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	rules, total, err := h.taxService.GetTaxRules(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, rules, total, p))
}

type ActiveRateResponse struct {
	Name    string `json:"name" example:"VAT"`
	On      string `json:"on" example:"2026-03-10"`
	RatePct string `json:"rate_pct" example:"15"`
}

// GetActiveRate returns the rate of the named rule in effect on a day
// @Summary      Active tax rate
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        name  query     string  true   "Rule name, case insensitive"
// @Param        on    query     string  false  "Day as YYYY-MM-DD (default: today)"
// @Success      200   {object}  response.Response{data=ActiveRateResponse}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/tax-rules/active [get]
func (h *TaxHandler) GetActiveRate(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, response.FieldError(http.StatusBadRequest, "name", "name is required"))
		return
	}
	on := time.Now().UTC()
	if raw := c.Query("on"); raw != "" {
		var err error
		on, err = time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.FieldError(http.StatusBadRequest, "on", "invalid on format, expected YYYY-MM-DD"))
			return
		}
	}

	rate, err := h.taxService.ActiveRate(c.Request.Context(), name, on)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ActiveRateResponse{
		Name:    strings.ToUpper(name),
		On:      on.Format("2006-01-02"),
		RatePct: rate.String(),
	}))
}

// CreateTaxRule creates a new tax rule entry
// @Summary      Create tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTaxRuleRequest  true  "Tax rule"
// @Success      201      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tax-rules [post]
func (h *TaxHandler) CreateTaxRule(c *gin.Context) {
	var req service.CreateTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	rule, err := h.taxService.CreateTaxRule(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// DeleteTaxRule removes a tax rule
// @Summary      Delete tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Tax rule ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tax-rules/{id} [delete]
func (h *TaxHandler) DeleteTaxRule(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.taxService.DeleteTaxRule(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id.String()}))
}
