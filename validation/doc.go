// Package validation validates inputs with go-playground/validator struct
// tags plus a small programmatic checker.
//
// The custom "iata" tag accepts three-letter upper-case airport codes:
//
//	type Query struct {
//	    From string `json:"from" validate:"required,iata"`
//	    To   string `json:"to" validate:"required,iata,nefield=From"`
//	}
//
// Failures come back as INVALID_INPUT AppErrors with a "fields" detail.
package validation
