package handler

import (
	"net/http"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService service.CustomerService
	auth            *middleware.Authenticator
}

func NewCustomerHandler(customerService service.CustomerService, auth *middleware.Authenticator) *CustomerHandler {
	return &CustomerHandler{customerService: customerService, auth: auth}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/api/customers")
	customers.Use(h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager, middleware.RoleStaff))
	{
		customers.GET("", h.ListCustomers)
		customers.POST("", h.CreateCustomer)
		customers.GET("/:id", h.GetCustomer)
	}
}

// ListCustomers returns paginated customers with an optional search
// @Summary      List customers
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        search  query     string  false  "Search by name, company, phone, email"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	p, err := pagination.Parse(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, customers, total, p))
}

// CreateCustomer registers a customer with billing and shipping addresses
// @Summary      Create customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCustomerRequest  true  "Customer payload"
// @Success      201      {object}  response.Response{data=model.Customer}
// @Failure      400      {object}  response.Response
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// GetCustomer returns one customer with addresses
// @Summary      Get customer
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=model.Customer}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	customer, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}
