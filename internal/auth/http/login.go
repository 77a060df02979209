package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
	"github.com/latticehq/lattice-auth/internal/auth/service"
	"github.com/latticehq/lattice-auth/pkg/httpx"
	"github.com/latticehq/lattice-auth/pkg/slogx"
)

type LoginHandler struct {
	TokenService   *service.TokenService
	SessionService *service.SessionService
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// tokenResponse is the wire shape of an issued pair. expires_in is seconds,
// matching the OAuth2 convention clients already expect.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newTokenResponse(p *domain.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int64(p.ExpiresIn.Seconds()),
	}
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body.")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Email and password are required.")
		return
	}

	pair, err := h.TokenService.Login(ctx, req.Email, req.Password, service.LoginMeta{
		IPAddress: httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password.")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}
