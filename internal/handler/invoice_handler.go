package handler

import (
	"net/http"
	"time"

	"billing/internal/middleware"
	"billing/internal/model"
	"billing/internal/reconcile"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

// InvoiceView adds derived fields to an invoice
type InvoiceView struct {
	*model.Invoice
	Balance      string `json:"balance"`
	NeedsRecheck bool   `json:"needs_recheck"`
}

func invoiceView(inv *model.Invoice) InvoiceView {
	return InvoiceView{
		Invoice:      inv,
		Balance:      inv.Balance().StringFixed(2),
		NeedsRecheck: reconcile.NeedsRecheck(inv),
	}
}

type RecomputeResponse struct {
	InvoiceID  string `json:"invoice_id"`
	AmountPaid string `json:"amount_paid"`
}

type InvoiceHandler struct {
	documentService service.DocumentService
	paymentService  service.PaymentService
	auth            *middleware.Authenticator
}

func NewInvoiceHandler(documentService service.DocumentService, paymentService service.PaymentService, auth *middleware.Authenticator) *InvoiceHandler {
	return &InvoiceHandler{
		documentService: documentService,
		paymentService:  paymentService,
		auth:            auth,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager, middleware.RoleStaff)
	managers := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager)
	admins := h.auth.RequireRole(middleware.RoleAdmin)

	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", staff, h.CreateInvoice)
		invoices.GET("", staff, h.ListInvoices)
		invoices.POST("/sweep-overdue", managers, h.SweepOverdue)
		invoices.GET("/:id", staff, h.GetInvoice)
		invoices.PATCH("/:id/status", staff, h.UpdateStatus)
		invoices.POST("/:id/items/retry", managers, h.RetryItems)
		invoices.POST("/:id/recompute", managers, h.Recompute)
		invoices.POST("/:id/recheck", admins, h.RecheckStatus)
		invoices.DELETE("/:id", managers, h.DeleteInvoice)

		invoices.GET("/:id/payments", staff, h.ListPayments)
		invoices.POST("/:id/payments", staff, h.AddPayment)
		invoices.DELETE("/:id/payments/:paymentId", managers, h.DeletePayment)
	}
}

// CreateInvoice creates an invoice with its line items
// @Summary      Create invoice
// @Description  Creates an invoice for a customer or a walk-in billing snapshot
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.InvoiceSpec  true  "Invoice"
// @Success      201      {object}  response.Response{data=InvoiceView}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.InvoiceSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	invoice, err := h.documentService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoiceView(invoice)))
}

// ListInvoices returns a page of invoices
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status      query     string  false  "draft, sent, overdue, paid"
// @Param        user_id     query     string  false  "Customer ID"
// @Param        invoice_no  query     string  false  "Partial invoice number"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.Page}
// @Failure      400         {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	p, err := pagination.Parse(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	userID, ok := uuidQuery(c, "user_id")
	if !ok {
		return
	}

	invoices, total, err := h.documentService.ListInvoices(c.Request.Context(), service.InvoiceFilter{
		Status:    c.Query("status"),
		UserID:    userID,
		InvoiceNo: c.Query("invoice_no"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]InvoiceView, 0, len(invoices))
	for i := range invoices {
		views = append(views, invoiceView(&invoices[i]))
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, views, total, p))
}

// GetInvoice returns one invoice with its items
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=InvoiceView}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	invoice, err := h.documentService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoiceView(invoice)))
}

// UpdateStatus moves an invoice along its lifecycle
// @Summary      Update invoice status
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Invoice ID"
// @Param        payload  body      StatusUpdateRequest  true  "New status"
// @Success      200      {object}  response.Response{data=model.Invoice}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/invoices/{id}/status [patch]
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	updateStatus(c, h.documentService, model.DocumentInvoice)
}

// RetryItems writes the items of an invoice left without them
// @Summary      Retry invoice items
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Invoice ID"
// @Param        payload  body      RetryItemsRequest  true  "Items"
// @Success      200      {object}  response.Response{data=InvoiceView}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/{id}/items/retry [post]
func (h *InvoiceHandler) RetryItems(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req RetryItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	invoice, err := h.documentService.RetryInvoiceItems(c.Request.Context(), id, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoiceView(invoice)))
}

// DeleteInvoice removes an invoice with its items and payments
// @Summary      Delete invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.documentService.DeleteInvoice(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id.String()}))
}

// SweepOverdue marks every sent invoice past its due date as overdue
// @Summary      Sweep overdue invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=SweepResponse}
// @Router       /api/invoices/sweep-overdue [post]
func (h *InvoiceHandler) SweepOverdue(c *gin.Context) {
	moved, err := h.documentService.MarkOverdue(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, SweepResponse{Moved: moved}))
}

// Recompute rewrites amount_paid from the payment rows
// @Summary      Recompute amount paid
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=RecomputeResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/recompute [post]
func (h *InvoiceHandler) Recompute(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	sum, err := h.paymentService.Recompute(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, RecomputeResponse{InvoiceID: id.String(), AmountPaid: sum.StringFixed(2)}))
}

// RecheckStatus re-derives the invoice status from its payments
// @Summary      Re-check invoice status
// @Description  May move a paid invoice back to sent or overdue after a payment was deleted
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=InvoiceView}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/recheck [post]
func (h *InvoiceHandler) RecheckStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	invoice, err := h.paymentService.RecheckStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoiceView(invoice)))
}

// ListPayments returns the payments of an invoice, oldest first
// @Summary      List payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]model.Payment}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/payments [get]
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	payments, err := h.paymentService.ListPayments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}

// AddPayment records a payment and reconciles the invoice
// @Summary      Add payment
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Invoice ID"
// @Param        payload  body      service.AddPaymentRequest  true  "Payment"
// @Success      201      {object}  response.Response{data=model.Payment}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/payments [post]
func (h *InvoiceHandler) AddPayment(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req service.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	req.InvoiceID = id

	payment, err := h.paymentService.AddPayment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// DeletePayment removes a payment; the invoice status is left as is
// @Summary      Delete payment
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id         path      string  true  "Invoice ID"
// @Param        paymentId  path      string  true  "Payment ID"
// @Success      200        {object}  response.Response
// @Failure      404        {object}  response.Response
// @Router       /api/invoices/{id}/payments/{paymentId} [delete]
func (h *InvoiceHandler) DeletePayment(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	paymentID, ok := uuidParam(c, "paymentId")
	if !ok {
		return
	}
	if err := h.paymentService.DeletePayment(c.Request.Context(), paymentID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": paymentID.String()}))
}
