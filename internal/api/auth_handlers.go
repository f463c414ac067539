package api

import (
	"net/http"

	"filevault/internal/auth"
)

type TokenResponse struct {
	Token string `json:"token"`
}

// @Summary      Log in
// @Description  Exchanges Basic credentials for a short-lived opaque session token.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  TokenResponse
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /connect [get]
func (s *Server) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok || email == "" || password == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		s.log.Error(r.Context(), "user lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := s.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		s.log.Error(r.Context(), "failed to issue session", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// @Summary      Log out
// @Description  Revokes the session token carried in X-Token.
// @Tags         auth
// @Success      204  {null}    nil
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /disconnect [get]
func (s *Server) DisconnectHandler(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(TokenHeader)

	if err := s.sessions.Revoke(r.Context(), token); err != nil {
		s.log.Error(r.Context(), "failed to revoke session", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
