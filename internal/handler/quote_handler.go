package handler

import (
	"net/http"
	"time"

	"billing/internal/middleware"
	"billing/internal/model"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

// StatusUpdateRequest moves a document to another status. Override is the
// administrative edit and needs the admin role.
type StatusUpdateRequest struct {
	Status   string `json:"status" binding:"required" example:"sent"`
	Override bool   `json:"override"`
}

type RetryItemsRequest struct {
	Items []service.LineItemInput `json:"items" binding:"required"`
}

type SweepResponse struct {
	Moved int `json:"moved"`
}

type QuoteHandler struct {
	documentService   service.DocumentService
	conversionService service.ConversionService
	auth              *middleware.Authenticator
}

func NewQuoteHandler(documentService service.DocumentService, conversionService service.ConversionService, auth *middleware.Authenticator) *QuoteHandler {
	return &QuoteHandler{
		documentService:   documentService,
		conversionService: conversionService,
		auth:              auth,
	}
}

func (h *QuoteHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager, middleware.RoleStaff)
	managers := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager)

	quotes := router.Group("/api/quotes")
	{
		quotes.POST("", staff, h.CreateQuote)
		quotes.GET("", staff, h.ListQuotes)
		quotes.POST("/expire", managers, h.ExpireQuotes)
		quotes.GET("/:id", staff, h.GetQuote)
		quotes.PATCH("/:id/status", staff, h.UpdateStatus)
		quotes.POST("/:id/items/retry", managers, h.RetryItems)
		quotes.POST("/:id/convert", staff, h.ConvertToInvoice)
		quotes.DELETE("/:id", managers, h.DeleteQuote)
	}
}

// CreateQuote creates a priced quote with its line items
// @Summary      Create quote
// @Description  Creates a quote; totals are derived from the line items and tax
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.QuoteSpec  true  "Quote"
// @Success      201      {object}  response.Response{data=model.Quote}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/quotes [post]
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req service.QuoteSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	quote, err := h.documentService.CreateQuote(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, quote))
}

// ListQuotes returns a page of quotes
// @Summary      List quotes
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        status     query     string  false  "draft, sent, accepted, rejected, expired"
// @Param        client_id  query     string  false  "Customer ID"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Failure      400        {object}  response.Response
// @Router       /api/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	p, err := pagination.Parse(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	clientID, ok := uuidQuery(c, "client_id")
	if !ok {
		return
	}

	quotes, total, err := h.documentService.ListQuotes(c.Request.Context(), service.QuoteFilter{
		Status:   c.Query("status"),
		ClientID: clientID,
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, quotes, total, p))
}

// GetQuote returns one quote with its items
// @Summary      Get quote
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=model.Quote}
// @Failure      404  {object}  response.Response
// @Router       /api/quotes/{id} [get]
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	quote, err := h.documentService.GetQuote(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// UpdateStatus moves a quote along its lifecycle
// @Summary      Update quote status
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Quote ID"
// @Param        payload  body      StatusUpdateRequest  true  "New status"
// @Success      200      {object}  response.Response{data=model.Quote}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/quotes/{id}/status [patch]
func (h *QuoteHandler) UpdateStatus(c *gin.Context) {
	updateStatus(c, h.documentService, model.DocumentQuote)
}

// RetryItems writes the items of a quote left without them
// @Summary      Retry quote items
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Quote ID"
// @Param        payload  body      RetryItemsRequest  true  "Items"
// @Success      200      {object}  response.Response{data=model.Quote}
// @Failure      400      {object}  response.Response
// @Router       /api/quotes/{id}/items/retry [post]
func (h *QuoteHandler) RetryItems(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req RetryItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	quote, err := h.documentService.RetryQuoteItems(c.Request.Context(), id, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// ConvertToInvoice turns a quote into a draft invoice
// @Summary      Convert quote to invoice
// @Description  Copies totals, billing snapshot and items verbatim; the quote becomes accepted
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      201  {object}  response.Response{data=model.Invoice}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/quotes/{id}/convert [post]
func (h *QuoteHandler) ConvertToInvoice(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	invoice, err := h.conversionService.ConvertToInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// DeleteQuote removes a quote and its items
// @Summary      Delete quote
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/quotes/{id} [delete]
func (h *QuoteHandler) DeleteQuote(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.documentService.DeleteQuote(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id.String()}))
}

// ExpireQuotes marks every sent quote past its validity as expired
// @Summary      Expire quotes
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=SweepResponse}
// @Router       /api/quotes/expire [post]
func (h *QuoteHandler) ExpireQuotes(c *gin.Context) {
	moved, err := h.documentService.ExpireQuotes(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, SweepResponse{Moved: moved}))
}

// updateStatus is shared by the quote and invoice status endpoints
func updateStatus(c *gin.Context, docs service.DocumentService, kind model.DocumentKind) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if req.Override && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: status override requires the admin role"))
		return
	}

	ref := service.DocumentRef{Kind: kind, ID: id}
	if err := docs.UpdateStatus(c.Request.Context(), ref, req.Status, req.Override); err != nil {
		respondError(c, err)
		return
	}
	doc, err := docs.GetDocument(c.Request.Context(), ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, doc))
}
