// Package tenant carries the acting company and user for every mutating
// call. It is always passed explicitly; nothing in this codebase reads it
// from ambient state.
package tenant

import (
	"github.com/gin-gonic/gin"

	xerrors "tahseel-service/internal/pkg/errors"
)

const ginKey = "tenant_context"

// Context identifies the acting company and user. Every datastore query is
// scoped by CompanyID; multi-tenant isolation is a hard invariant.
type Context struct {
	CompanyID int64
	UserID    int64
}

// Set stores the tenant context on a gin request.
func Set(c *gin.Context, t Context) {
	c.Set(ginKey, t)
}

// FromGin extracts the tenant context set by the auth middleware.
func FromGin(c *gin.Context) (Context, error) {
	v, ok := c.Get(ginKey)
	if !ok {
		return Context{}, xerrors.ErrUnauthorized
	}
	t, ok := v.(Context)
	if !ok || t.CompanyID == 0 {
		return Context{}, xerrors.ErrUnauthorized
	}
	return t, nil
}
