package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/park285/Cheese-Analysis-Board/internal/events"
	"github.com/park285/Cheese-Analysis-Board/internal/msgcat"
	"github.com/park285/Cheese-Analysis-Board/internal/render"
	"github.com/park285/Cheese-Analysis-Board/internal/session"
	"github.com/park285/Cheese-Analysis-Board/pkg/boarddto"
	"go.uber.org/zap"
)

// Board is the session surface the server drives.
type Board interface {
	HandleClick(ctx context.Context, view board.Square) error
	Flip(ctx context.Context) error
	NewGame(ctx context.Context, index int) error
	SetPromotion(kind board.PieceKind)
	SetAutoColor(ctx context.Context, c board.Color) error
	Snapshot() session.Snapshot
}

type Server struct {
	board          Board
	bus            *events.Bus
	renderer       *render.Renderer
	catalog        *msgcat.Catalog
	logger         *zap.Logger
	originPatterns []string
	writeTimeout   time.Duration
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRenderer(r *render.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.renderer = r
		}
	}
}

func WithCatalog(c *msgcat.Catalog) Option { return func(s *Server) { s.catalog = c } }

// WithOriginPatterns lists extra websocket origins to accept.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.originPatterns = append(s.originPatterns, patterns...) }
}

func New(b Board, bus *events.Bus, opts ...Option) *Server {
	s := &Server{
		board:        b,
		bus:          bus,
		renderer:     render.New(),
		logger:       zap.NewNop(),
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.state())
	})
	r.Post("/api/command", s.handleCommand)
	r.Get("/board.png", s.handleBoardPNG)
	r.Get("/ws", s.handleWS)
	return r
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd boarddto.Command
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, s.commandError("bad_command", map[string]any{"Detail": err.Error()}))
		return
	}
	if err := s.Apply(r.Context(), cmd); err != nil {
		var cerr boarddto.CommandError
		if errors.As(err, &cerr) {
			status := http.StatusBadRequest
			if cerr.Code == "closed" {
				status = http.StatusGone
			}
			writeJSON(w, status, cerr)
			return
		}
		s.logger.Error("command_failed", zap.String("type", cmd.Type), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, s.commandError("internal", nil))
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	snap := s.board.Snapshot()
	data, err := s.renderer.RenderPNG(r.Context(), s.frame(snap))
	if err != nil {
		s.logger.Warn("render_failed", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// Apply runs one client command against the board.
func (s *Server) Apply(ctx context.Context, cmd boarddto.Command) error {
	var err error
	switch cmd.Type {
	case boarddto.CommandState:
		return nil
	case boarddto.CommandClick:
		sq := board.Square{File: cmd.File, Rank: cmd.Rank}
		if !sq.Valid() {
			return s.commandError("bad_square", map[string]any{"File": cmd.File, "Rank": cmd.Rank})
		}
		err = s.board.HandleClick(ctx, sq)
	case boarddto.CommandFlip:
		err = s.board.Flip(ctx)
	case boarddto.CommandNewGame:
		index := -1
		if cmd.Index != nil {
			index = *cmd.Index
			if index < 0 || index >= 960 {
				return s.commandError("bad_index", nil)
			}
		}
		err = s.board.NewGame(ctx, index)
	case boarddto.CommandPromotion:
		kind, perr := board.ParsePromotion(cmd.Piece)
		if perr != nil {
			return s.commandError("bad_promotion", map[string]any{"Piece": cmd.Piece})
		}
		s.board.SetPromotion(kind)
	case boarddto.CommandAutoColor:
		c, perr := board.ParseColor(cmd.Color)
		if perr != nil {
			return s.commandError("bad_color", map[string]any{"Color": cmd.Color})
		}
		err = s.board.SetAutoColor(ctx, c)
	default:
		return s.commandError("unknown_command", map[string]any{"Type": cmd.Type})
	}
	if errors.Is(err, session.ErrClosed) {
		return s.commandError("closed", nil)
	}
	return err
}

func (s *Server) commandError(code string, data map[string]any) boarddto.CommandError {
	return boarddto.CommandError{
		Code:    code,
		Message: s.catalog.Text("errors."+code, data, code),
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
