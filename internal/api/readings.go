package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nerrad567/sensor-relay/internal/persistence"
)

// handleReadings returns the most recent stored readings, newest first.
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, r, http.StatusNotImplemented, ErrCodeNotImplemented,
			fmt.Sprintf("storage backend %q does not support history", s.storageBackend))
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}

	readings, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("loading reading history failed", "error", err)
		writeInternalError(w, r, "failed to load readings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"readings": readings,
		"count":    len(readings),
	})
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return persistence.DefaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errLimitInvalid
	}
	if limit > persistence.MaxHistoryLimit {
		return 0, fmt.Errorf("%w (%d)", errLimitTooLarge, persistence.MaxHistoryLimit)
	}

	return limit, nil
}
