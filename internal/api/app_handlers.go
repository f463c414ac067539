package api

import "net/http"

// @Summary      Service status
// @Description  Reports liveness of the session store (Redis) and the metadata database.
// @Tags         app
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /status [get]
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{
		"redis": s.sessions.Ping(r.Context()) == nil,
		"db":    s.store.Ping(r.Context()) == nil,
	})
}

// @Summary      Service statistics
// @Description  Returns the number of registered users and stored file nodes.
// @Tags         app
// @Produce      json
// @Success      200  {object}  map[string]int64
// @Failure      500  {object}  map[string]string
// @Router       /stats [get]
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.CountUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	files, err := s.store.CountFiles(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"users": users, "files": files})
}
