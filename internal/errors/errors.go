// Package errors defines domain error values shared across services
// and handlers. Each error carries a stable machine-readable code that
// is emitted as error_code in API responses.
package errors

// DomainError is an error with a stable classification code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}
