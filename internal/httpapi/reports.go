package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/focusnest/study-service/internal/profile"
	"github.com/focusnest/study-service/pkg/identity"
)

func (h *handler) listAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	list, err := h.achievements.ListAchievements(ctx)
	if err != nil {
		h.respondInternal(w, r, "failed to list achievements", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	stats, err := h.reports.Dashboard(ctx)
	if err != nil {
		h.respondInternal(w, r, "failed to load dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) weeklyReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	weekly, err := h.reports.Weekly(ctx)
	if err != nil {
		h.respondInternal(w, r, "failed to build weekly report", err)
		return
	}
	writeJSON(w, http.StatusOK, weekly)
}

func (h *handler) heatmap(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "days must be an integer")
			return
		}
		if n < 1 {
			n = 1
		}
		days = n
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	cells, err := h.reports.Heatmap(ctx, days)
	if err != nil {
		h.respondInternal(w, r, "failed to build heatmap", err)
		return
	}
	writeJSON(w, http.StatusOK, cells)
}

// ===== Profile =====

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	key, ok := identity.ProfileKeyFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, identity.ErrUnresolved.Error())
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	p, err := h.profiles.Get(ctx, key)
	if err != nil {
		h.respondProfileServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updateProfileSettings(w http.ResponseWriter, r *http.Request) {
	key, ok := identity.ProfileKeyFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, identity.ErrUnresolved.Error())
		return
	}

	var settings profile.NotificationSettings
	if err := decodeJSON(w, r, &settings); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	p, err := h.profiles.UpdateSettings(ctx, key, settings)
	if err != nil {
		h.respondProfileServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
