package handler

import (
	"errors"
	"net/http"

	"billing/internal/cart"
	"billing/internal/logger"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartItemRequest struct {
	ProductID string `json:"product_id" binding:"required" example:"sku-1"`
	Quantity  int    `json:"quantity" example:"2"`
}

type CartQuantityRequest struct {
	Quantity int `json:"quantity" example:"3"` // 0 removes the product
}

type CartView struct {
	SessionID string         `json:"session_id"`
	Items     map[string]int `json:"items"`
	Units     int            `json:"units"`
}

// CartHandler serves storefront carts keyed by session id
type CartHandler struct {
	store cart.Store
}

func NewCartHandler(store cart.Store) *CartHandler {
	return &CartHandler{store: store}
}

func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup) {
	carts := router.Group("/api/carts/:session")
	{
		carts.GET("", h.GetCart)
		carts.DELETE("", h.ClearCart)
		carts.POST("/items", h.AddItem)
		carts.PUT("/items/:productId", h.SetQuantity)
		carts.DELETE("/items/:productId", h.RemoveItem)
	}
}

func cartView(sessionID string, c cart.Cart) CartView {
	items := c.Items
	if items == nil {
		items = map[string]int{}
	}
	return CartView{SessionID: sessionID, Items: items, Units: c.Units()}
}

func (h *CartHandler) respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidProduct), errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidSession):
		badRequest(c, err.Error())
	default:
		logger.FromContext(c.Request.Context()).Error("cart store failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "cart store unavailable"))
	}
}

func (h *CartHandler) update(c *gin.Context, fn func(cart.Cart) (cart.Cart, error)) {
	session := c.Param("session")
	next, err := cart.Update(c.Request.Context(), h.store, session, fn)
	if err != nil {
		h.respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cartView(session, next)))
}

// GetCart returns the cart of a session
// @Summary      Get cart
// @Tags         carts
// @Produce      json
// @Param        session  path      string  true  "Session ID"
// @Success      200      {object}  response.Response{data=CartView}
// @Router       /api/carts/{session} [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	session := c.Param("session")
	current, err := h.store.Load(c.Request.Context(), session)
	if err != nil {
		h.respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cartView(session, current)))
}

// AddItem adds units of a product
// @Summary      Add cart item
// @Tags         carts
// @Accept       json
// @Produce      json
// @Param        session  path      string           true  "Session ID"
// @Param        payload  body      CartItemRequest  true  "Item"
// @Success      200      {object}  response.Response{data=CartView}
// @Failure      400      {object}  response.Response
// @Router       /api/carts/{session}/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	h.update(c, func(current cart.Cart) (cart.Cart, error) {
		return current.Add(req.ProductID, req.Quantity)
	})
}

// SetQuantity replaces the quantity of a product
// @Summary      Set cart item quantity
// @Tags         carts
// @Accept       json
// @Produce      json
// @Param        session    path      string               true  "Session ID"
// @Param        productId  path      string               true  "Product ID"
// @Param        payload    body      CartQuantityRequest  true  "Quantity"
// @Success      200        {object}  response.Response{data=CartView}
// @Failure      400        {object}  response.Response
// @Router       /api/carts/{session}/items/{productId} [put]
func (h *CartHandler) SetQuantity(c *gin.Context) {
	var req CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	productID := c.Param("productId")
	h.update(c, func(current cart.Cart) (cart.Cart, error) {
		return current.SetQuantity(productID, req.Quantity)
	})
}

// RemoveItem drops a product from the cart
// @Summary      Remove cart item
// @Tags         carts
// @Produce      json
// @Param        session    path      string  true  "Session ID"
// @Param        productId  path      string  true  "Product ID"
// @Success      200        {object}  response.Response{data=CartView}
// @Router       /api/carts/{session}/items/{productId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID := c.Param("productId")
	h.update(c, func(current cart.Cart) (cart.Cart, error) {
		return current.Remove(productID), nil
	})
}

// ClearCart empties the cart
// @Summary      Clear cart
// @Tags         carts
// @Produce      json
// @Param        session  path      string  true  "Session ID"
// @Success      200      {object}  response.Response{data=CartView}
// @Router       /api/carts/{session} [delete]
func (h *CartHandler) ClearCart(c *gin.Context) {
	session := c.Param("session")
	if err := h.store.Clear(c.Request.Context(), session); err != nil {
		h.respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cartView(session, cart.New())))
}
