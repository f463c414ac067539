package api

import (
	"encoding/json"
	"net/http"

	"filevault/internal/database"
	"filevault/internal/logging"
	"filevault/internal/queue"
	"filevault/internal/session"
	"filevault/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	store        *database.PostgresStore
	storage      *storage.LocalStorage
	sessions     *session.Store
	thumbQueue   *queue.Queue
	welcomeQueue *queue.Queue
	log          logging.Logger
}

func NewServer(store *database.PostgresStore, localStorage *storage.LocalStorage, sessions *session.Store, thumbQueue, welcomeQueue *queue.Queue, log logging.Logger) *Server {
	return &Server{
		store:        store,
		storage:      localStorage,
		sessions:     sessions,
		thumbQueue:   thumbQueue,
		welcomeQueue: welcomeQueue,
		log:          log,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(MetricsMiddleware)

	r.Get("/status", s.StatusHandler)
	r.Get("/stats", s.StatsHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/users", s.RegisterUserHandler)
	r.Get("/connect", s.ConnectHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		r.Get("/disconnect", s.DisconnectHandler)
		r.Get("/users/me", s.GetMeHandler)
		r.Post("/files", s.UploadFileHandler)
		r.Get("/files", s.ListFilesHandler)
		r.Get("/files/{fileId}", s.GetFileHandler)
		r.Put("/files/{fileId}/publish", s.PublishHandler)
		r.Put("/files/{fileId}/unpublish", s.UnpublishHandler)
		r.Get("/files/{fileId}/data", s.DownloadFileHandler)
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
