// Package api exposes the gateway over HTTP: liveness, moderation,
// translation and the room WebSocket endpoint.
package api

import (
	"bufio"
	"chat-relay/domain"
	"chat-relay/services"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const (
	RootMessage     = "chat-relay gateway"
	maxRequestBytes = 1 << 20
)

type Server struct {
	log        *slog.Logger
	moderation services.IModerationService
	translator services.ITranslationService
	rooms      http.Handler
	validate   *validator.Validate
}

// NewServer wires the handlers. rooms serves /ws/{room_id} and may be nil on
// deployments without live connections.
func NewServer(log *slog.Logger, moderation services.IModerationService,
	translator services.ITranslationService, rooms http.Handler) *Server {
	return &Server{
		log:        log,
		moderation: moderation,
		translator: translator,
		rooms:      rooms,
		validate:   validator.New(),
	}
}

// RoomID reads the room from the route variables.
func RoomID(r *http.Request) domain.RoomID {
	return domain.RoomID(mux.Vars(r)["room_id"])
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logging)
	r.HandleFunc("/", s.root).Methods(http.MethodGet)
	r.HandleFunc("/moderate", s.moderate).Methods(http.MethodPost)
	r.HandleFunc("/translate", s.translate).Methods(http.MethodPost)
	if s.rooms != nil {
		r.Handle("/ws/{room_id}", s.rooms).Methods(http.MethodGet)
	}
	return r
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, messageResponse{Message: RootMessage})
}

func (s *Server) moderate(w http.ResponseWriter, r *http.Request) {
	var body moderateRequest
	if !s.decode(w, r, &body) {
		return
	}
	verdict, err := s.moderation.Moderate(r.Context(), body.toDomain())
	if err != nil {
		s.log.Error("Moderation failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: fmt.Sprintf("Moderation error: %v", err)})
		return
	}
	s.writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request) {
	var body translateRequest
	if !s.decode(w, r, &body) {
		return
	}
	source := body.SourceLang
	if source == "" {
		source = string(domain.English)
	}
	s.writeJSON(w, http.StatusOK, s.translator.Translate(r.Context(), *body.Text, source, body.TargetLangs))
}

// decode reads and validates a JSON body, answering 422 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(dst); err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: fmt.Sprintf("invalid body: %v", err)})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Cannot write response", "error", err)
	}
}

// statusRecorder keeps the status for the access log. It forwards Hijack so
// WebSocket upgrades pass through the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer cannot hijack")
	}
	s.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
