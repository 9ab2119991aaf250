package response

import "billing/pkg/pagination"

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Field      string      `json:"field,omitempty"` // offending input field, for 400s
}

// Page is the data envelope of list endpoints
type Page struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Paginated wraps one page of a list
func Paginated(statusCode int, items interface{}, total int64, p pagination.Params) Response {
	return Success(statusCode, Page{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages(total),
	})
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// FieldError is Error for a rejected input field
func FieldError(statusCode int, field, err string) Response {
	r := Error(statusCode, err)
	r.Field = field
	return r
}

// ErrorWithData is Error carrying context the caller needs to recover,
// such as the id of a document left half-written.
func ErrorWithData(statusCode int, err string, data interface{}) Response {
	r := Error(statusCode, err)
	r.Data = data
	return r
}
