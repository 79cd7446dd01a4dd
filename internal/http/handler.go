package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/observability"
	"github.com/davidbz/chatrelay/internal/provider/transport"
)

const (
	maxBodyBytes = 1 << 20

	// writeSlack covers classification and encoding after the last provider gives up.
	writeSlack = 5 * time.Second
)

// ChatHandler resolves chat requests.
type ChatHandler interface {
	Handle(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResult, error)
}

// Handler handles HTTP requests.
type Handler struct {
	chat      ChatHandler
	providers []domain.ProviderConfig
	started   time.Time
	now       func() time.Time

	// chatBudget is the longest a chat request may spend on providers.
	chatBudget time.Duration
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(chat *domain.ChatService, providers []domain.ProviderConfig) *Handler {
	return NewHandlerWith(chat, providers, time.Now)
}

// NewHandlerWith creates a handler with an explicit chat backend and clock.
func NewHandlerWith(chat ChatHandler, providers []domain.ProviderConfig, now func() time.Time) *Handler {
	return &Handler{
		chat:       chat,
		providers:  providers,
		started:    now(),
		now:        now,
		chatBudget: chatBudget(providers),
	}
}

// chatBudget sums the worst case of every provider that will be tried.
func chatBudget(providers []domain.ProviderConfig) time.Duration {
	var total time.Duration
	for _, cfg := range providers {
		if cfg.HasUsableKey() {
			total += transport.WorstCase(cfg.Timeout, cfg.MaxAttempts)
		}
	}
	return total + writeSlack
}

// HandleChat processes chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Provider calls finish even if the client disconnects.
	ctx := context.WithoutCancel(r.Context())
	logger := observability.FromContext(ctx)

	// The server write timeout is shorter than a full provider chain.
	deadline := time.Now().Add(h.chatBudget)
	if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil {
		logger.Debug("write deadline not extended", observability.Error(err))
	}

	req := &domain.ChatRequest{}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(req)
	switch {
	case errors.Is(err, io.EOF):
		req = nil
	case err != nil:
		logger.Warn("invalid chat request body", observability.Error(err))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	default:
		logger.Info("chat request received",
			observability.Int("history", len(req.ChatHistory)),
			observability.Bool("has_user", req.UserID != ""),
		)
	}

	result, err := h.chat.Handle(ctx, req)
	if err != nil {
		var inputErr *domain.ClientInputError
		if errors.As(err, &inputErr) {
			writeError(w, http.StatusBadRequest, inputErr.Message)
			return
		}
		logger.Error("chat handling failed", observability.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("chat request served", observability.String("source", string(result.Source)))

	writeJSON(ctx, w, http.StatusOK, result)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": now.UTC().Format(time.RFC3339Nano),
		"uptime":    now.Sub(h.started).Seconds(),
	})
}

type providerStatus struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
}

// HandleStatus reports which providers are configured.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	providers := make(map[string]providerStatus, len(h.providers))
	for _, cfg := range h.providers {
		providers[string(cfg.Name)] = providerStatus{
			Configured: domain.IsProviderConfigured(cfg),
			Model:      cfg.Model,
		}
	}

	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":    "operational",
		"providers": providers,
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Already written status, can't change it, just log.
		observability.FromContext(ctx).Error("failed to encode response", observability.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
