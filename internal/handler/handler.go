package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"

	"waypoint/internal/codec"
	"waypoint/internal/domain"
)

const maxBodyBytes = 1 << 16

// EndpointResolver is the resolver surface exposed over HTTP
type EndpointResolver interface {
	Resolve(ctx context.Context) domain.ResolutionState
	Current() domain.ResolutionState
	Override(ctx context.Context, input string) error
	ClearOverride(ctx context.Context) error
	Reset(ctx context.Context) error
	TestConnection(ctx context.Context, ep domain.Endpoint) bool
}

// EndpointHandler handles operator API requests
type EndpointHandler struct {
	resolver EndpointResolver
}

// NewEndpointHandler creates a new endpoint handler
func NewEndpointHandler(r EndpointResolver) *EndpointHandler {
	return &EndpointHandler{resolver: r}
}

// Register mounts the operator routes on mux
func (h *EndpointHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/endpoint", h.GetEndpoint)
	mux.HandleFunc("PUT /api/override", h.requireJSON(h.SetOverride))
	mux.HandleFunc("DELETE /api/override", h.requireJSON(h.ClearOverride))
	mux.HandleFunc("POST /api/reset", h.requireJSON(h.Reset))
	mux.HandleFunc("POST /api/test", h.requireJSON(h.TestConnection))
}

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// OverrideRequest is the body of PUT /api/override
type OverrideRequest struct {
	Host string `json:"host"`
}

// TestRequest is the body of POST /api/test
type TestRequest struct {
	URL string `json:"url"`
}

// TestResponse reports a direct probe result
type TestResponse struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
}

// GetEndpoint resolves and returns the current endpoint. ?format=yaml selects
// a YAML snapshot; ?cached=true returns the last answer without resolving.
func (h *EndpointHandler) GetEndpoint(w http.ResponseWriter, r *http.Request) {
	var state domain.ResolutionState
	if r.URL.Query().Get("cached") == "true" {
		state = h.resolver.Current()
	} else {
		state = h.resolver.Resolve(r.Context())
	}

	c, err := codec.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	if err := c.Encode(state, w); err != nil {
		log.Printf("Failed to encode endpoint: %v", err)
	}
}

// SetOverride pins the endpoint to operator input
func (h *EndpointHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.resolver.Override(r.Context(), req.Host); err != nil {
		if errors.Is(err, domain.ErrInvalidOverrideFormat) {
			h.writeError(w, "Invalid override", err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Failed to set override: %v", err)
		h.writeError(w, "Failed to set override", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, h.resolver.Current(), http.StatusOK)
}

// ClearOverride drops the override and cached endpoint
func (h *EndpointHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.ClearOverride(r.Context()); err != nil {
		log.Printf("Failed to clear override: %v", err)
		h.writeError(w, "Failed to clear override", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, h.resolver.Current(), http.StatusOK)
}

// Reset forgets override, cache and probe history
func (h *EndpointHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.Reset(r.Context()); err != nil {
		log.Printf("Failed to reset: %v", err)
		h.writeError(w, "Failed to reset", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, h.resolver.Current(), http.StatusOK)
}

// TestConnection probes a URL or host without changing resolver state. Bare
// hosts borrow scheme, port and prefix from the current endpoint.
func (h *EndpointHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req TestRequest
	if !h.decode(w, r, &req) {
		return
	}

	ep, err := domain.ParseOverride(req.URL, h.resolver.Current().Endpoint)
	if err != nil {
		h.writeError(w, "Invalid URL", err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, TestResponse{
		URL:       ep.BaseURL(),
		Reachable: h.resolver.TestConnection(r.Context(), ep),
	}, http.StatusOK)
}

// requireJSON rejects requests without an application/json body type. Browsers
// cannot send that type cross-origin without a preflight, which CORS refuses
// for anything but GET.
func (h *EndpointHandler) requireJSON(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mt != "application/json" {
			h.writeError(w, "Unsupported media type", "Content-Type must be application/json", http.StatusUnsupportedMediaType)
			return
		}
		next(w, r)
	}
}

func (h *EndpointHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, "Failed to read request body", err.Error(), http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		h.writeError(w, "Invalid JSON", err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *EndpointHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *EndpointHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
