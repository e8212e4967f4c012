package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"
	"getir-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Envelope is the single response shape of every JSON endpoint.
type Envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Meta    *Meta             `json:"meta,omitempty"`
}

type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

func list(w http.ResponseWriter, data any, limit, page, total int) {
	limit, page, _ = utils.Paginate(limit, page)
	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Meta:    &Meta{Page: page, Limit: limit, Total: total},
	})
}

// writeError maps the apperr taxonomy onto HTTP statuses. Unknown errors
// are logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, Envelope{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Envelope{Error: "not found"})
	case errors.Is(err, apperr.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, Envelope{Error: "unauthorized"})
	case errors.Is(err, apperr.ErrForbidden):
		writeJSON(w, http.StatusForbidden, Envelope{Error: "forbidden"})
	case errors.Is(err, apperr.ErrInsufficientStock),
		errors.Is(err, apperr.ErrUnavailable),
		errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, Envelope{Error: err.Error()})
	case errors.Is(err, apperr.ErrInvalidOrExpiredCode),
		errors.Is(err, apperr.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, Envelope{Error: err.Error()})
	case errors.Is(err, apperr.ErrTooManyRequests):
		writeJSON(w, http.StatusTooManyRequests, Envelope{Error: "too many requests"})
	default:
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("layer", "http"),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Envelope{Error: "internal server error"})
	}
}

// decodeJSON rejects unknown fields so typos surface as 400s.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("body", "malformed JSON")
	}
	return nil
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid(name, "must be a positive integer")
	}
	return uint(id), nil
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

func queryUint(r *http.Request, name string) *uint {
	n, err := strconv.ParseUint(r.URL.Query().Get(name), 10, 64)
	if err != nil || n == 0 {
		return nil
	}
	id := uint(n)
	return &id
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return b
}

func pagination(r *http.Request) (limit, page int) {
	return queryInt(r, "limit"), queryInt(r, "page")
}

// caller returns the authenticated user id. Routes behind RequireAuth always
// have one.
func caller(r *http.Request) uint {
	id, _ := utils.GetUserIDFromContext(r.Context())
	return id
}
