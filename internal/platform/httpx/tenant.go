package httpx

import (
	"net/http"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// TenantMiddleware resolves the tenant headers and rejects requests without a company.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, err := shared.ResolveTenant(r)
		if err != nil {
			RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithTenant(r.Context(), tenant)))
	})
}
