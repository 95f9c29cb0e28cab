package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"procurement/internal/logger"
	"procurement/models"
)

const (
	maxBodyBytes = 1 << 20

	maxNameLen        = 100
	maxDescriptionLen = 500
	maxFeedbackLen    = 1000

	defaultLimit = 5
	maxLimit     = 50
)

// Handler exposes the tender, bid and feedback lifecycles over HTTP.
type Handler struct {
	Tenders  TenderService
	Bids     BidService
	Feedback FeedbackService
}

func NewHandler(tenders TenderService, bids BidService, feedback FeedbackService) *Handler {
	return &Handler{Tenders: tenders, Bids: bids, Feedback: feedback}
}

// PingHandler answers "ok" for liveness checks.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ErrorResponse struct {
	Reason string `json:"reason"`
}

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams reads limit and offset, defaulting limit to 5 and
// clamping limit to [0, 50] and offset to >= 0.
func parsePaginationParams(r *http.Request) (PaginationParams, error) {
	params := PaginationParams{Limit: defaultLimit}
	query := r.URL.Query()

	if s := query.Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil {
			return params, fmt.Errorf("invalid limit %q", s)
		}
		params.Limit = min(max(l, 0), maxLimit)
	}
	if s := query.Get("offset"); s != "" {
		o, err := strconv.Atoi(s)
		if err != nil {
			return params, fmt.Errorf("invalid offset %q", s)
		}
		params.Offset = max(o, 0)
	}
	return params, nil
}

// pathID reads a chi URL parameter that must hold a UUID.
func pathID(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if _, err := uuid.Parse(raw); err != nil {
		return "", fmt.Errorf("invalid %s %q", name, raw)
	}
	return raw, nil
}

func pathVersion(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "version")
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid version %q", raw)
	}
	return v, nil
}

func requireQuery(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", fmt.Errorf("missing %s parameter", name)
	}
	return v, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("name is required and max length %d", maxNameLen)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return fmt.Errorf("description max length %d", maxDescriptionLen)
	}
	return nil
}

func validateUUID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%s must be a UUID", field)
	}
	return nil
}

func errInvalid(field, value string) error {
	return fmt.Errorf("invalid %s %q", field, value)
}

func errMissing(field string) error {
	return fmt.Errorf("%s is required", field)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, ErrorResponse{Reason: reason})
}

// writeServiceError maps lifecycle errors onto HTTP statuses. Storage faults
// are logged and reported with a generic reason.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
