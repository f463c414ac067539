package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"filevault/internal/auth"
	"filevault/internal/database"
	"filevault/internal/queue"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// @Summary      Register a new user
// @Description  Creates a user from an email and password. The email must be unique.
// @Tags         users
// @Accept       json
// @Produce      json
// @Success      201  {object}  UserResponse
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /users [post]
func (s *Server) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing email")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "Missing email")
		return
	}
	if req.Password == "" {
		respondError(w, http.StatusBadRequest, "Missing password")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Email, hash)
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			respondError(w, http.StatusBadRequest, "Already exist")
			return
		}
		s.log.Error(r.Context(), "failed to create user", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// The greeting is best effort; registration already succeeded.
	if _, err := s.welcomeQueue.Enqueue(r.Context(), queue.Job{UserID: user.ID}); err != nil {
		s.log.Warn(r.Context(), "failed to enqueue welcome job", "user_id", user.ID, "error", err)
	}

	respondJSON(w, http.StatusCreated, UserResponse{ID: user.ID, Email: user.Email})
}

// @Summary      Current user
// @Description  Returns the user bound to the X-Token session.
// @Tags         users
// @Produce      json
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  map[string]string
// @Router       /users/me [get]
func (s *Server) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		s.log.Error(r.Context(), "user lookup failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	respondJSON(w, http.StatusOK, UserResponse{ID: user.ID, Email: user.Email})
}
