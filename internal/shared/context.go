package shared

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Headers carrying the tenant resolved by the upstream session layer.
const (
	HeaderCompanyID = "X-Company-ID"
	HeaderUserID    = "X-User-ID"
)

var (
	// ErrTenantMissing indicates the request carries no company context.
	ErrTenantMissing = errors.New("tenant: company id required")
	// ErrActorMissing indicates a write without an acting user.
	ErrActorMissing = errors.New("tenant: user id required")
)

// Tenant is the already-authorised company and user for a request.
type Tenant struct {
	CompanyID int64
	UserID    int64
}

type tenantContextKey struct{}

// ContextWithTenant stores the tenant in context.
func ContextWithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, t)
}

// TenantFromContext extracts the tenant from context.
func TenantFromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(tenantContextKey{}).(Tenant)
	if !ok || t.CompanyID <= 0 {
		return Tenant{}, false
	}
	return t, true
}

// ResolveTenant reads tenant headers. There is no default company.
func ResolveTenant(r *http.Request) (Tenant, error) {
	company, err := parseID(r.Header.Get(HeaderCompanyID))
	if err != nil || company == 0 {
		return Tenant{}, ErrTenantMissing
	}
	user, err := parseID(r.Header.Get(HeaderUserID))
	if err != nil {
		return Tenant{}, ErrActorMissing
	}
	return Tenant{CompanyID: company, UserID: user}, nil
}

// RequireActor fails when the tenant has no acting user.
func (t Tenant) RequireActor() error {
	if t.UserID <= 0 {
		return ErrActorMissing
	}
	return nil
}

func parseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, errors.New("tenant: invalid id")
	}
	return id, nil
}
