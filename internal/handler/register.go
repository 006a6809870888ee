package handler

import (
	"net/http"

	"makemodel/internal/model"
	"makemodel/internal/service"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Nickname string `json:"nickname" validate:"required,max=50"`
	Role     string `json:"role" validate:"required,oneof=brand creator"`
}

func RegisterHandler(authSvc *service.AuthService, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		user, err := authSvc.Register(r.Context(), service.RegisterInput{
			Email:    req.Email,
			Password: req.Password,
			Nickname: req.Nickname,
			Role:     model.Role(req.Role),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeToken(w, r, tokens, user, http.StatusCreated)
	}
}
