package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/focusnest/study-service/internal/study"
)

// ===== Tasks =====

func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	tasks, err := h.study.ListTasks(ctx, study.TaskFilter{Date: strings.TrimSpace(r.URL.Query().Get("date"))})
	if err != nil {
		h.respondStudyServiceError(w, r, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handler) createTask(w http.ResponseWriter, r *http.Request) {
	var input study.CreateTaskInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	task, err := h.study.CreateTask(ctx, input)
	if err != nil {
		h.respondStudyServiceError(w, r, err, "task not found")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "task ID required")
		return
	}

	var patch study.TaskPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	task, err := h.study.UpdateTask(ctx, id, patch)
	if err != nil {
		h.respondStudyServiceError(w, r, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "task ID required")
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	if err := h.study.DeleteTask(ctx, id); err != nil {
		h.respondStudyServiceError(w, r, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}

// ===== Pomodoro =====

func (h *handler) logSession(w http.ResponseWriter, r *http.Request) {
	var input study.LogSessionInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	result, err := h.study.LogSession(ctx, input)
	if err != nil {
		h.respondStudyServiceError(w, r, err, "session not found")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	sessions, err := h.study.ListSessions(ctx, study.SessionFilter{Date: strings.TrimSpace(r.URL.Query().Get("date"))})
	if err != nil {
		h.respondStudyServiceError(w, r, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *handler) pomodoroStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	stats, err := h.study.PomodoroStats(ctx, r.URL.Query().Get("date"))
	if err != nil {
		h.respondStudyServiceError(w, r, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ===== Study stats =====

func (h *handler) recordStat(w http.ResponseWriter, r *http.Request) {
	var input study.RecordStatInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	result, err := h.study.RecordStat(ctx, input)
	if err != nil {
		h.respondStudyServiceError(w, r, err, "study stat not found")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) listStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := study.StatFilter{
		Date:    strings.TrimSpace(q.Get("date")),
		Subject: strings.TrimSpace(q.Get("subject")),
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	stats, err := h.study.ListStats(ctx, filter)
	if err != nil {
		h.respondStudyServiceError(w, r, err, "study stat not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) subjectSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	summary, err := h.study.SubjectSummary(ctx)
	if err != nil {
		h.respondStudyServiceError(w, r, err, "study stat not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ===== Focus trees =====

func (h *handler) plantTree(w http.ResponseWriter, r *http.Request) {
	var input study.PlantTreeInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	tree, err := h.study.PlantTree(ctx, input)
	if err != nil {
		h.respondStudyServiceError(w, r, err, "focus tree not found")
		return
	}
	writeJSON(w, http.StatusCreated, tree)
}

func (h *handler) listTrees(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	trees, err := h.study.ListTrees(ctx, study.TreeFilter{Date: strings.TrimSpace(r.URL.Query().Get("date"))})
	if err != nil {
		h.respondStudyServiceError(w, r, err, "focus tree not found")
		return
	}
	writeJSON(w, http.StatusOK, trees)
}
