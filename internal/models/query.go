package models

import (
	"github.com/go-playground/validator/v10"
)

// DefaultK is the number of passages retrieved when a query does not specify k.
const DefaultK = 4

var validate = validator.New()

// QueryRequest is the body of a docling.query call.
type QueryRequest struct {
	Query string `json:"query" validate:"required"`
	K     *int   `json:"k,omitempty"`
}

// Validate checks required fields. It does not modify the request.
func (q *QueryRequest) Validate() error {
	if err := validate.Struct(q); err != nil {
		return NewValidationError("invalid query: %v", err)
	}
	return nil
}

// TopK returns k, DefaultK when unset, and 0 for non-positive values.
func (q *QueryRequest) TopK() int {
	if q.K == nil {
		return DefaultK
	}
	if *q.K < 0 {
		return 0
	}
	return *q.K
}
