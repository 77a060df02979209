package http

import (
	"net/http"

	"github.com/latticehq/lattice-auth/pkg/httpx"
	"github.com/latticehq/lattice-auth/pkg/jwtx"
)

// MeHandler echoes the principal as the token presents it. Everything comes
// from the verified claims; no directory round trip.
type MeHandler struct{}

type meResponse struct {
	UserID   string             `json:"user_id"`
	Email    string             `json:"email"`
	FullName string             `json:"full_name"`
	Tenants  []jwtx.TenantGrant `json:"tenants"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, _ := httpx.ClaimsFromContext(r.Context())

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		UserID:   claims.UserID,
		Email:    claims.Subject,
		FullName: claims.FullName,
		Tenants:  claims.Tenants,
	})
}
