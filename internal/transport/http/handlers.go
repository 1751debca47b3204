package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/joshdurbin/bitly-actions/internal/domain"
	"github.com/joshdurbin/bitly-actions/internal/service"
)

// ValidateRequest is the body of POST /api/credentials/validate
type ValidateRequest struct {
	Credentials domain.Credentials `json:"credentials"`
}

// ValidateResponse reports the outcome of a credential check
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`
}

// InvokeRequest is the body of POST /api/invoke
type InvokeRequest struct {
	Credentials domain.Credentials `json:"credentials"`
	Parameters  domain.Params      `json:"parameters"`
}

// InvokeResponse carries the ordered messages of one invocation
type InvokeResponse struct {
	Messages []domain.Message `json:"messages"`
}

// maxRequestBody caps inbound JSON bodies
const maxRequestBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// Handler holds the HTTP handlers of the host surface
type Handler struct {
	validator  service.CredentialValidator
	dispatcher service.Dispatcher
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(validator service.CredentialValidator, dispatcher service.Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{
		validator:  validator,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ValidateCredentials handles POST /api/credentials/validate
func (h *Handler) ValidateCredentials(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.validator.ValidateCredentials(r.Context(), req.Credentials)
	if err == nil {
		writeJSON(w, http.StatusOK, ValidateResponse{Valid: true})
		return
	}

	var credErr *service.CredentialError
	if errors.As(err, &credErr) {
		writeJSON(w, http.StatusBadRequest, ValidateResponse{
			Valid: false,
			Kind:  credErr.Kind.String(),
			Error: credErr.Reason,
		})
		return
	}

	h.logger.Error("credential validation failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
}

// Invoke handles POST /api/invoke
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if !h.decode(w, r, &req) {
		return
	}

	messages := h.dispatcher.Invoke(r.Context(), req.Credentials, req.Parameters)
	if messages == nil {
		messages = []domain.Message{}
	}

	writeJSON(w, http.StatusOK, InvokeResponse{Messages: messages})
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a size-capped JSON body into v, writing the error response
// and returning false when it cannot
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.logger.Warn("request body too large", zap.String("path", r.URL.Path), zap.Int64("limit", tooLarge.Limit))
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
		return false
	}

	h.logger.Warn("invalid JSON in request", zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON"})
	return false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already written, so an encode failure can only be dropped
	_ = json.NewEncoder(w).Encode(body)
}
