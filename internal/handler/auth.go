package handler

import (
	"net/http"
	"time"

	"makemodel/internal/model"
	"makemodel/internal/mw"
	"makemodel/internal/service"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

func (ti TokenIssuer) issue(user *model.User) (string, error) {
	now := time.Now
	if ti.Now != nil {
		now = ti.Now
	}
	return mw.IssueToken(ti.Secret, ti.TTL, user, now())
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *model.User `json:"user"`
}

func writeToken(w http.ResponseWriter, r *http.Request, tokens TokenIssuer, user *model.User, status int) {
	token, err := tokens.issue(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Authorization", "Bearer "+token)
	writeJSON(w, status, tokenResponse{AccessToken: token, TokenType: "bearer", User: user})
}

func LoginHandler(authSvc *service.AuthService, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		user, err := authSvc.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeToken(w, r, tokens, user, http.StatusOK)
	}
}

func MeHandler(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		user, err := authSvc.User(r.Context(), actor.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
