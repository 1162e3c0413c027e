package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/park285/Cheese-Analysis-Board/internal/events"
	"github.com/park285/Cheese-Analysis-Board/internal/msgcat"
	"github.com/park285/Cheese-Analysis-Board/internal/render"
	"github.com/park285/Cheese-Analysis-Board/internal/session"
	"github.com/park285/Cheese-Analysis-Board/pkg/boarddto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func newTestServer(t *testing.T) (*httptest.Server, *events.Bus) {
	t.Helper()
	bus := events.NewBus(nil)
	sess, err := session.New(context.Background(), session.WithSink(bus), session.WithAutoColor(board.NoColor))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	srv := New(sess, bus, WithCatalog(cat), WithRenderer(render.New(render.WithSquareSize(24))))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		bus.Close()
		sess.Close()
	})
	return ts, bus
}

func postCommand(t *testing.T, ts *httptest.Server, cmd boarddto.Command) (*http.Response, []byte) {
	t.Helper()
	body, _ := json.Marshal(cmd)
	resp, err := http.Post(ts.URL+"/api/command", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestStateAndClickCommands(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	var st boarddto.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if st.StartIndex != 518 || !st.Castling || st.Turn != "white" || len(st.Moves) != 0 {
		t.Fatalf("unexpected initial state %+v", st)
	}

	postCommand(t, ts, boarddto.Command{Type: boarddto.CommandClick, File: 4, Rank: 1})
	r, body := postCommand(t, ts, boarddto.Command{Type: boarddto.CommandClick, File: 4, Rank: 3})
	if r.StatusCode != http.StatusOK {
		t.Fatalf("status %d body %s", r.StatusCode, body)
	}
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.MoveList != "1. e4" || st.Turn != "black" {
		t.Fatalf("unexpected state after e4: %+v", st)
	}
}

func TestCommandErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	r, body := postCommand(t, ts, boarddto.Command{Type: "teleport"})
	if r.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", r.StatusCode)
	}
	var cerr boarddto.CommandError
	if err := json.Unmarshal(body, &cerr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cerr.Code != "unknown_command" || !strings.Contains(cerr.Message, "teleport") {
		t.Fatalf("unexpected error %+v", cerr)
	}

	r, _ = postCommand(t, ts, boarddto.Command{Type: boarddto.CommandClick, File: 8, Rank: 0})
	if r.StatusCode != http.StatusBadRequest {
		t.Fatalf("off-board click should be rejected, got %d", r.StatusCode)
	}
	r, _ = postCommand(t, ts, boarddto.Command{Type: boarddto.CommandPromotion, Piece: "k"})
	if r.StatusCode != http.StatusBadRequest {
		t.Fatalf("king promotion should be rejected, got %d", r.StatusCode)
	}
}

func TestBoardPNG(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/board.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
	if _, err := png.Decode(resp.Body); err != nil {
		t.Fatalf("decode png: %v", err)
	}
}

func TestWebSocketStreamsMoves(t *testing.T) {
	ts, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var first struct {
		Type string         `json:"type"`
		Data boarddto.State `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read state: %v", err)
	}
	if first.Type != "state" || first.Data.FEN == "" {
		t.Fatalf("unexpected first message %+v", first)
	}

	for _, cmd := range []boarddto.Command{
		{Type: boarddto.CommandClick, File: 6, Rank: 0},
		{Type: boarddto.CommandClick, File: 5, Rank: 2},
	} {
		if err := wsjson.Write(ctx, conn, cmd); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	for {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != string(events.KindMoveMade) {
			continue
		}
		var mv boarddto.Move
		if err := json.Unmarshal(msg.Data, &mv); err != nil {
			t.Fatalf("decode move: %v", err)
		}
		if mv.SAN != "Nf3" || mv.Mover != "white" {
			t.Fatalf("unexpected move %+v", mv)
		}
		return
	}
}
