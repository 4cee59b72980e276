package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Server struct {
	authService *AuthService
	config      *Config
	logger      *zap.Logger
}

func NewServer(authService *AuthService, config *Config, logger *zap.Logger) *Server {
	return &Server{
		authService: authService,
		config:      config,
		logger:      logger,
	}
}

// Router builds the HTTP surface. The callback route never returns an HTTP
// error; it always redirects to the frontend with the outcome encoded as a
// query parameter.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(corsHeaders)

	r.Get("/", s.HandleHealth)
	r.Get("/auth/login", s.HandleLogin)
	r.Get("/auth/callback", s.HandleCallback)
	r.Get("/api/user", s.HandleCurrentUser)
	r.Get("/api/meetings", s.HandleMeetings)
	r.Get("/api/meeting-notes/{meetingID}", s.HandleMeetingNotes)
	r.Post("/api/export-notes", s.HandleExportNotes)

	return r
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Teams Meeting Notes API",
		"status":  "healthy",
	})
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	start, err := s.authService.BeginLogin(r.Context())
	if err != nil {
		s.logger.Error("failed to begin login", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to begin login")
		return
	}

	respondJSON(w, http.StatusOK, start)
}

func (s *Server) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		s.redirectWithError(w, r, errCode)
		return
	}

	code := query.Get("code")
	if code == "" {
		s.redirectWithError(w, r, "no_code")
		return
	}

	session, err := s.authService.CompleteLogin(r.Context(), code, query.Get("state"))
	if err != nil {
		errCode := "auth_failed"
		if errors.Is(err, ErrInvalidState) {
			errCode = "invalid_state"
		}
		s.logger.Warn("login callback failed", zap.Error(err))
		s.redirectWithError(w, r, errCode)
		return
	}

	target := fmt.Sprintf("%s/meeting-notes?token=%s", s.config.FrontendURL, url.QueryEscape(session))
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"name":    claims.Name,
		"exp":     claims.ExpiresAt.Unix(),
	})
}

func (s *Server) HandleMeetings(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	meetings, err := s.authService.Meetings(r.Context(), claims.UserID, limit)
	if err != nil {
		s.respondFetchError(w, err, "Failed to fetch meetings")
		return
	}

	respondJSON(w, http.StatusOK, map[string][]Meeting{
		"meetings": meetings,
	})
}

func (s *Server) HandleMeetingNotes(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	meetingID := chi.URLParam(r, "meetingID")

	notes, err := s.authService.MeetingNotes(r.Context(), claims.UserID, meetingID)
	if err != nil {
		s.respondFetchError(w, err, "Failed to fetch meeting notes")
		return
	}

	respondJSON(w, http.StatusOK, notes)
}

func (s *Server) HandleExportNotes(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	var req struct {
		MeetingID string `json:"meeting_id"`
		Notes     string `json:"notes"`
	}

	if !decodeJSON(w, r, &req) {
		return
	}

	if req.MeetingID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "meeting_id is required")
		return
	}

	respondJSON(w, http.StatusOK, ExportNotes(req.MeetingID, req.Notes))
}

// Helper functions

func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, errCode string) {
	target := fmt.Sprintf("%s/meeting-notes?error=%s", s.config.FrontendURL, url.QueryEscape(errCode))
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (*SessionClaims, bool) {
	token, err := extractBearerToken(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid_token", "Invalid or missing authorization token")
		return nil, false
	}

	claims, err := VerifySessionToken(token, s.config)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			respondError(w, http.StatusUnauthorized, "token_expired", "Token has expired")
			return nil, false
		}
		respondError(w, http.StatusUnauthorized, "invalid_token", "Invalid token")
		return nil, false
	}

	return claims, true
}

func (s *Server) respondFetchError(w http.ResponseWriter, err error, detail string) {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "not_authenticated", "User not authenticated with Microsoft")
	case errors.Is(err, ErrRefreshFailed):
		respondError(w, http.StatusUnauthorized, "refresh_failed", "Failed to refresh Microsoft access token")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", detail)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("request_id", uuid.New().String()),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return parts[1], nil
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	respondJSON(w, statusCode, map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
