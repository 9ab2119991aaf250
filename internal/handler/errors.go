package handler

import (
	"errors"
	"net/http"

	"billing/internal/logger"
	"billing/internal/service"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError maps service errors onto HTTP statuses:
// invalid input 400, not found 404, partial write 409, missing client 422, anything else 500.
func respondError(c *gin.Context, err error) {
	var (
		inputErr   *service.InvalidInputError
		notFound   *service.NotFoundError
		missing    *service.MissingClientError
		partialErr *service.PartialWriteError
	)

	switch {
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, response.FieldError(http.StatusBadRequest, inputErr.Field, inputErr.Error()))
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, notFound.Error()))
	case errors.As(err, &missing):
		c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, missing.Error()))
	case errors.As(err, &partialErr):
		c.JSON(http.StatusConflict, response.ErrorWithData(http.StatusConflict, partialErr.Error(), gin.H{
			"kind":      partialErr.Kind,
			"parent_id": partialErr.ParentID.String(),
			"step":      partialErr.Step,
		}))
	default:
		logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal server error"))
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// uuidParam parses a path parameter, answering 400 when it is not a uuid
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.FieldError(http.StatusBadRequest, name, "invalid "+name+": expected a uuid"))
		return uuid.Nil, false
	}
	return id, true
}

// uuidQuery parses an optional query parameter
func uuidQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.FieldError(http.StatusBadRequest, name, "invalid "+name+": expected a uuid"))
		return nil, false
	}
	return &id, true
}
