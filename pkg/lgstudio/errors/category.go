// Package errors classifies backend failures and retries the transient ones.
//
// The REST client wraps every failure in one of the typed errors below.
// Categorize maps them to a Category, and WithRetryContext uses that to
// decide whether another attempt can help.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: 5xx responses, rate limits, dropped connections.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: missing workflow, authentication failures, cancelled context.
	CategoryPermanent

	// CategoryInvalid indicates the request itself was rejected and the
	// user must change the graph or inputs before trying again.
	CategoryInvalid
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	Err      error
	Category Category
	// Retries is the number of attempts that were made.
	Retries int
	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: category, Context: context}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Permanent creates a permanent error.
func Permanent(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPermanent, context)
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryPermanent
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case 408, 429, 502, 503, 504:
			return CategoryTransient
		case 400, 422:
			return CategoryInvalid
		default:
			if httpErr.StatusCode >= 500 && httpErr.StatusCode < 600 {
				return CategoryTransient
			}
			return CategoryPermanent
		}
	}

	var runErr *RunError
	if errors.As(err, &runErr) {
		return CategoryPermanent
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return CategoryPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryTransient
	}

	// Unknown errors are permanent (fail safe)
	return CategoryPermanent
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
