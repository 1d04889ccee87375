package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"weather-chat/internal/domain"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 1 << 20
	codeInvalidInput  = "INVALID_INPUT"
	codeNotFound      = "NOT_FOUND"
	codeBadMethod     = "METHOD_NOT_ALLOWED"
)

// ChatUseCase produces the response for one chat message. It must not fail;
// failures are reported inside the response.
type ChatUseCase interface {
	Handle(ctx context.Context, req domain.ChatRequest) domain.ChatResponse
}

type chatRequestBody struct {
	Message *string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	chat      ChatUseCase
	staticDir string
	logger    *slog.Logger
}

type Option func(*Handler)

// WithStaticDir sets the directory served at / and /static/ by Router.
func WithStaticDir(dir string) Option {
	return func(h *Handler) {
		h.staticDir = strings.TrimSpace(dir)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(chat ChatUseCase, opts ...Option) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	h := &Handler{chat: chat, staticDir: "static", logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle adapts API Gateway proxy events to the chat endpoint.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)

	path := strings.TrimRight(event.Path, "/")
	if path != "/chat" {
		return proxyResponse(corrID, http.StatusNotFound, errorResponse{Error: codeNotFound}), nil
	}
	if event.HTTPMethod != http.MethodPost {
		return proxyResponse(corrID, http.StatusMethodNotAllowed, errorResponse{Error: codeBadMethod}), nil
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return proxyResponse(corrID, http.StatusBadRequest, errorResponse{Error: codeInvalidInput}), nil
		}
		body = decoded
	}
	status, payload := h.chatBody(ctx, corrID, body)
	return proxyResponse(corrID, status, payload), nil
}

// Router serves the chat endpoint and the static UI over plain HTTP.
// Unmatched requests get the same JSON errors as Handle.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", h.serveChat)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(filesOnly{http.Dir(h.staticDir)})))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(h.staticDir, "index.html"))
	})
	mux.HandleFunc("/", h.serveFallback)
	return withCorrelationID(mux)
}

func (h *Handler) serveFallback(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimRight(r.URL.Path, "/") {
	case "/chat":
		if r.Method == http.MethodPost {
			h.serveChat(w, r)
			return
		}
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: codeBadMethod})
	case "", "/healthz":
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: codeBadMethod})
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: codeNotFound})
	}
}

func (h *Handler) serveChat(w http.ResponseWriter, r *http.Request) {
	corrID := w.Header().Get(correlationHeader)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: codeInvalidInput})
		return
	}
	status, payload := h.chatBody(r.Context(), corrID, body)
	writeJSON(w, status, payload)
}

func withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(correlationHeader, correlationID(map[string]string{correlationHeader: r.Header.Get(correlationHeader)}))
		next.ServeHTTP(w, r)
	})
}

// filesOnly reports directories as missing so the file server never
// lists them.
type filesOnly struct {
	root http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

func (h *Handler) chatBody(ctx context.Context, corrID string, body []byte) (int, any) {
	if len(body) > maxBodyBytes {
		return http.StatusBadRequest, errorResponse{Error: codeInvalidInput}
	}
	var in chatRequestBody
	if err := json.Unmarshal(body, &in); err != nil || in.Message == nil {
		h.logger.WarnContext(ctx, "invalid chat request body", "correlation_id", corrID, "err", err)
		return http.StatusBadRequest, errorResponse{Error: codeInvalidInput}
	}

	resp := h.chat.Handle(ctx, domain.ChatRequest{Message: *in.Message})
	h.logger.InfoContext(ctx, "chat request served", "correlation_id", corrID, "kind", resp.Kind)
	return http.StatusOK, resp
}

// correlationID returns the caller's X-Correlation-Id, matched
// case-insensitively, or a new UUID.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return newUUID()
}

func proxyResponse(corrID string, status int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(body),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var newUUID = func() string {
	return uuid.NewString()
}
