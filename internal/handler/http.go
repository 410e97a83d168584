package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/password-club/internal/domain"
	"github.com/password-club/internal/service"
)

// Handler provides the HTTP handlers for the registration API
type Handler struct {
	registration *service.Registration
	leaderboard  *service.Leaderboard
	logger       *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(registration *service.Registration, leaderboard *service.Leaderboard, logger *slog.Logger) *Handler {
	return &Handler{
		registration: registration,
		leaderboard:  leaderboard,
		logger:       logger,
	}
}

// APIResponse is the envelope for non-array responses
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(policyHeaders)

	r.Get("/health", h.HealthCheck)

	r.Post("/register", h.Register)
	r.Get("/leaderboard", h.GetLeaderboard)

	return r
}

// policyHeaders sets the fixed security and CORS policy on every
// response. Not configurable per request.
func policyHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Register handles a registration attempt
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, APIResponse{
			Success: false,
			Message: domain.MsgProvideBoth,
		})
		return
	}

	result := h.registration.Register(r.Context(), req.Username, req.Password)
	h.writeJSON(w, result.Status, APIResponse{
		Success: result.Success,
		Message: result.Message,
	})
}

// GetLeaderboard returns the top users by distinct-password count
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.leaderboard.Top(r.Context())
	if err != nil {
		h.logger.Error("failed to get leaderboard", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, APIResponse{
			Success: false,
			Message: domain.MsgInternal,
		})
		return
	}

	if rows == nil {
		rows = []domain.LeaderboardRow{}
	}
	h.writeJSON(w, http.StatusOK, rows)
}
