package shared

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveTenantRequiresCompany(t *testing.T) {
	req := httptest.NewRequest("GET", "/accounting/accounts", nil)
	_, err := ResolveTenant(req)
	require.ErrorIs(t, err, ErrTenantMissing)

	req.Header.Set(HeaderCompanyID, "abc")
	_, err = ResolveTenant(req)
	require.ErrorIs(t, err, ErrTenantMissing)
}

func TestResolveTenantReadsHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "/accounting/journals", nil)
	req.Header.Set(HeaderCompanyID, "7")
	req.Header.Set(HeaderUserID, "42")

	tenant, err := ResolveTenant(req)
	require.NoError(t, err)
	require.Equal(t, Tenant{CompanyID: 7, UserID: 42}, tenant)
	require.NoError(t, tenant.RequireActor())

	ctx := ContextWithTenant(context.Background(), tenant)
	got, ok := TenantFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, tenant, got)
}

func TestTenantWithoutActor(t *testing.T) {
	req := httptest.NewRequest("GET", "/accounting/accounts", nil)
	req.Header.Set(HeaderCompanyID, "3")
	tenant, err := ResolveTenant(req)
	require.NoError(t, err)
	require.ErrorIs(t, tenant.RequireActor(), ErrActorMissing)

	_, ok := TenantFromContext(context.Background())
	require.False(t, ok)
}

func TestPaginationOffset(t *testing.T) {
	p := NewPagination(3, 25, 120)
	require.Equal(t, 50, p.Offset())
	require.Equal(t, 5, p.TotalPages)

	p = NewPagination(0, 1000, 10)
	require.Equal(t, 200, p.PerPage)
	require.Equal(t, 0, p.Offset())
}
