package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// Envelope wraps every API response body so clients can branch on a single
// success flag instead of inspecting status codes.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// EnvelopeTransformer wraps response bodies in the standard envelope.
// Error bodies produced by RegisterErrorHandler become {success:false, error},
// everything else becomes {success:true, data}.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if v == nil {
		return v, nil
	}

	if apiErr, ok := v.(*APIError); ok {
		return &Envelope{Success: false, Error: apiErr}, nil
	}

	if len(status) > 0 && status[0] == '2' {
		return &Envelope{Success: true, Data: v}, nil
	}

	return v, nil
}
