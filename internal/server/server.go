// Package server serves the web UI and its WebSocket API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"lightstrip-controller/internal/config"
	"lightstrip-controller/internal/core"
	"lightstrip-controller/internal/light"
)

// Options carries what the server reads from the rest of the agent.
type Options struct {
	Commands  *core.CommandChannel
	EventBus  *core.EventBus
	Status    func() light.Status
	Effects   func() []string
	Schedules func() any
	Patterns  func() ([]string, error)
	Logger    *logrus.Logger
}

// Server manages the HTTP and WebSocket services.
type Server struct {
	Hub        *Hub
	httpServer *http.Server
	opts       Options

	staticFilesDir string
	allowedOrigins []string
	upgrader       websocket.Upgrader
	log            *logrus.Entry
}

// NewServer returns nil when the server is disabled.
func NewServer(cfg config.ServerConfig, o Options) *Server {
	if !cfg.Enabled {
		return nil
	}

	s := &Server{
		Hub:            NewHub(o.Logger),
		opts:           o,
		staticFilesDir: cfg.WebFilesDir,
		allowedOrigins: cfg.AllowedOrigins,
		log:            o.Logger.WithField("component", "server"),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.httpServer = &http.Server{Addr: ":" + cfg.Port, Handler: s.Handler()}
	return s
}

// Handler is the HTTP handler: static files at / and the API at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.staticFilesDir)))
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Run runs the hub and forwards events to clients until ctx is done.
func (s *Server) Run(ctx context.Context) {
	go s.Hub.Run(ctx)

	types := []core.EventType{
		core.StatusChangedEvent,
		core.EffectListChangedEvent,
		core.ScheduleListChangedEvent,
		core.PatternListChangedEvent,
		core.PatternCodeEvent,
	}
	sub := s.opts.EventBus.Subscribe(types...)
	defer s.opts.EventBus.Unsubscribe(sub, types...)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			if msg, ok := messageFor(ev); ok {
				s.Hub.Broadcast(msg)
			}
		}
	}
}

func messageFor(ev core.Event) (Message, bool) {
	switch ev.Type {
	case core.StatusChangedEvent:
		return NewMessage(MsgStatus, ev.Payload), true
	case core.EffectListChangedEvent:
		return NewMessage(MsgEffectList, ev.Payload), true
	case core.ScheduleListChangedEvent:
		return NewMessage(MsgScheduleList, ev.Payload), true
	case core.PatternListChangedEvent:
		return NewMessage(MsgPatternList, ev.Payload), true
	case core.PatternCodeEvent:
		return NewMessage(MsgPatternCode, ev.Payload), true
	}
	return Message{}, false
}

func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || strings.EqualFold(origin, allowed) {
			return true
		}
	}
	s.log.WithField("origin", origin).Warn("WebSocket connection blocked: origin not allowed")
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	// Initial state is written before the hub owns the connection.
	for _, msg := range s.snapshot() {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			return
		}
	}

	if !s.Hub.Add(conn) {
		conn.Close()
		return
	}
	defer s.Hub.Remove(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := s.handleRequest(data); err != nil {
			s.log.WithError(err).Warn("Rejected WebSocket request")
			s.Hub.Send(conn, NewMessage(MsgError, err.Error()))
		}
	}
}

func (s *Server) snapshot() []Message {
	msgs := []Message{
		NewMessage(MsgStatus, s.opts.Status()),
		NewMessage(MsgEffectList, s.opts.Effects()),
		NewMessage(MsgScheduleList, s.opts.Schedules()),
	}
	if s.opts.Patterns != nil {
		if patterns, err := s.opts.Patterns(); err == nil {
			msgs = append(msgs, NewMessage(MsgPatternList, patterns))
		}
	}
	return msgs
}

var errUnknownRequest = errors.New("unknown request type")

var requestCommands = map[string]core.CommandType{
	InCommand:         core.CmdLight,
	InGetPatternCode:  core.CmdGetPatternCode,
	InSavePatternCode: core.CmdSavePatternCode,
	InDeletePattern:   core.CmdDeletePattern,
	InAddSchedule:     core.CmdAddSchedule,
	InRemoveSchedule:  core.CmdRemoveSchedule,
}

// handleRequest turns a client message into a queued command.
func (s *Server) handleRequest(data []byte) error {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	cmdType, ok := requestCommands[req.Type]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownRequest, req.Type)
	}
	if s.opts.Commands.Submit(core.Command{Type: cmdType, Source: core.SourceWebSocket, Payload: req.Payload}) {
		s.log.Warn("Command queue full, dropped the oldest command")
	}
	return nil
}
