package utils

import (
	"context"
	"time"
)

// DefaultQueryTimeout is the default timeout for database queries.
const DefaultQueryTimeout = 30 * time.Second

// FastQueryTimeout is for simple lookups that should return quickly.
const FastQueryTimeout = 10 * time.Second

// GetQueryContext returns a context with the given timeout, falling back to a
// background context when no parent is supplied.
func GetQueryContext(parentCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return context.WithTimeout(parentCtx, timeout)
}

// GetDefaultQueryContext returns a context with the default query timeout.
func GetDefaultQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, DefaultQueryTimeout)
}
