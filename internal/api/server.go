package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/gsi"
)

// maxPayloadBytes limita o corpo aceito no endpoint de telemetria.
const maxPayloadBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

// Processor consome payloads de telemetria autenticados.
type Processor interface {
	Handle(ctx context.Context, userID string, payload *gsi.Payload) error
}

// HealthChecker reporta a saúde da dependência externa para o /healthz.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Server expõe o receptor de telemetria GSI e o health check.
type Server struct {
	processor Processor
	health    HealthChecker
	log       *zap.SugaredLogger
	srv       *http.Server
}

func NewServer(addr string, processor Processor, health HealthChecker, log *zap.SugaredLogger) *Server {
	s := &Server{processor: processor, health: health, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/gsi/dota2", s.handleGSI)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start sobe o listener em uma goroutine própria.
func (s *Server) Start() {
	go func() {
		s.log.Infow("starting API server", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorw("API server failed", "error", err)
		}
	}()
}

// Shutdown encerra o listener com o prazo do contexto.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleGSI recebe o POST do cliente Dota 2. Autentica pelo token
// "discord<user_id>" embutido no payload; token ausente ou malformado é 401.
func (s *Server) handleGSI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "unreadable body"})
		return
	}

	payload, err := gsi.ParsePayload(body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "malformed payload"})
		return
	}

	if payload.Auth == nil {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "missing auth token"})
		return
	}
	userID, ok := gsi.UserIDFromToken(payload.Auth.Token)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid auth token"})
		return
	}

	if err := s.processor.Handle(r.Context(), userID, payload); err != nil {
		s.log.Errorw("process gsi payload", "user", userID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "processing failed"})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if s.health != nil {
		if err := s.health.CheckHealth(r.Context()); err != nil {
			status = map[string]string{"status": "degraded", "steam_api": err.Error()}
			code = http.StatusServiceUnavailable
		}
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
