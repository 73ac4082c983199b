package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/internal/profile"
	"github.com/focusnest/study-service/internal/report"
	"github.com/focusnest/study-service/internal/study"
	sharederrors "github.com/focusnest/study-service/pkg/errors"
	"github.com/focusnest/study-service/pkg/identity"
	"github.com/focusnest/study-service/pkg/logging"
)

const (
	serviceTimeout  = 10 * time.Second
	maxPayloadBytes = 1 << 20 // 1MB
)

// Services bundles the collaborators the handlers call into.
type Services struct {
	Study        *study.Service
	Profiles     *profile.Service
	Reports      *report.Service
	Achievements achievement.Repository
	Resolver     identity.Resolver
}

type handler struct {
	study        *study.Service
	profiles     *profile.Service
	reports      *report.Service
	achievements achievement.Repository
	logger       *slog.Logger
}

// RegisterRoutes mounts every API route under /api.
func RegisterRoutes(r chi.Router, svc Services, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{
		study:        svc.Study,
		profiles:     svc.Profiles,
		reports:      svc.Reports,
		achievements: svc.Achievements,
		logger:       logger,
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(identity.Middleware(svc.Resolver))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.listTasks)
			r.Post("/", h.createTask)
			r.Put("/{id}", h.updateTask)
			r.Delete("/{id}", h.deleteTask)
		})

		r.Post("/pomodoro", h.logSession)
		r.Get("/pomodoro", h.listSessions)
		r.Get("/pomodoro/stats", h.pomodoroStats)

		r.Route("/study-stats", func(r chi.Router) {
			r.Get("/", h.listStats)
			r.Post("/", h.recordStat)
			r.Get("/summary", h.subjectSummary)
		})

		r.Route("/focus-trees", func(r chi.Router) {
			r.Get("/", h.listTrees)
			r.Post("/", h.plantTree)
		})

		r.Get("/achievements", h.listAchievements)
		r.Get("/dashboard/stats", h.dashboard)
		r.Get("/reports/weekly", h.weeklyReport)
		r.Get("/heatmap", h.heatmap)

		r.Get("/profile", h.getProfile)
		r.Put("/profile/settings", h.updateProfileSettings)
	})
}

// respondStudyServiceError maps study sentinels onto HTTP statuses.
func (h *handler) respondStudyServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, study.ErrNotFound):
		writeError(w, r, http.StatusNotFound, notFound)
	case errors.Is(err, study.ErrConflict):
		writeError(w, r, http.StatusConflict, "record already exists")
	case errors.Is(err, study.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, inputMessage(err))
	default:
		h.logRequestError(r.Context(), "study request failed", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func (h *handler) respondProfileServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, profile.ErrMissingID):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logRequestError(r.Context(), "profile request failed", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func (h *handler) respondInternal(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logRequestError(r.Context(), message, err)
	writeError(w, r, http.StatusInternalServerError, message)
}

func (h *handler) logRequestError(ctx context.Context, message string, err error) {
	if err == nil {
		return
	}
	attrs := []any{slog.Any("error", err)}
	if key, ok := identity.ProfileKeyFromContext(ctx); ok {
		attrs = append(attrs, slog.String("profile", key))
	}
	logging.WithRequestID(ctx, h.logger).ErrorContext(ctx, message, attrs...)
}

// inputMessage strips the sentinel prefix from a wrapped ErrInvalidInput.
func inputMessage(err error) string {
	msg := strings.TrimSpace(err.Error())
	prefix := study.ErrInvalidInput.Error() + ":"
	if strings.HasPrefix(msg, prefix) {
		msg = strings.TrimSpace(strings.TrimPrefix(msg, prefix))
	}
	return msg
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required")
		}
		return fmt.Errorf("invalid JSON payload")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, sharederrors.ErrorResponse{
		Code:      sharederrors.CodeForStatus(status),
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), serviceTimeout)
}
