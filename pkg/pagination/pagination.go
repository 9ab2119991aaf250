package pagination

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds validated pagination parameters
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before this page
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages is the page count for total rows, at least 1
func (p Params) TotalPages(total int64) int {
	if p.Limit <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// Parse reads page and limit from the query. Missing values take the defaults,
// limit is clamped to MaxLimit and non-numeric or non-positive values are rejected.
func Parse(c *gin.Context) (Params, error) {
	page, err := positiveQuery(c, "page", DefaultPage)
	if err != nil {
		return Params{}, err
	}
	limit, err := positiveQuery(c, "limit", DefaultLimit)
	if err != nil {
		return Params{}, err
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}, nil
}

func positiveQuery(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}
