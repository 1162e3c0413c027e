package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/park285/Cheese-Analysis-Board/internal/events"
	"github.com/park285/Cheese-Analysis-Board/pkg/boarddto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const clientBuffer = 64

// handleWS streams board events to one client and applies the commands it
// sends. The first message is always the full state.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.originPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.Error(err))
		return
	}
	clientID := uuid.NewString()
	logger := s.logger.With(zap.String("client", clientID))
	logger.Info("ws_connected", zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_, feed, unsubscribe := s.bus.Subscribe(clientBuffer)
	defer unsubscribe()

	snap := s.board.Snapshot()
	orient := board.Orientation{Flipped: snap.Flipped}
	if err := s.write(ctx, conn, boarddto.Envelope{Type: "state", Data: stateFromSnapshot(snap)}); err != nil {
		logger.Info("ws_initial_write_failed", zap.Error(err))
		return
	}

	go func() {
		for ev := range feed {
			switch e := ev.(type) {
			case events.OrientationChanged:
				orient.Flipped = e.Flipped
			case events.GameReset:
				orient.Flipped = e.Flipped
			}
			if err := s.write(ctx, conn, envelope(ev, orient)); err != nil {
				logger.Info("ws_write_failed", zap.Error(err))
				cancel()
				return
			}
		}
	}()

	for {
		var cmd boarddto.Command
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				logger.Info("ws_read_failed", zap.Error(err))
			}
			break
		}
		if err := s.Apply(ctx, cmd); err != nil {
			var cerr boarddto.CommandError
			if !errors.As(err, &cerr) {
				logger.Error("command_failed", zap.String("type", cmd.Type), zap.Error(err))
				cerr = s.commandError("internal", nil)
			}
			if werr := s.write(ctx, conn, boarddto.Envelope{Type: "error", Data: cerr}); werr != nil {
				break
			}
			continue
		}
		if cmd.Type == boarddto.CommandState {
			if werr := s.write(ctx, conn, boarddto.Envelope{Type: "state", Data: s.state()}); werr != nil {
				break
			}
		}
	}
	logger.Info("ws_disconnected")
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, v any) error {
	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, v)
}
