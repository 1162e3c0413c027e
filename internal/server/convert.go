package server

import (
	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/park285/Cheese-Analysis-Board/internal/events"
	"github.com/park285/Cheese-Analysis-Board/internal/render"
	"github.com/park285/Cheese-Analysis-Board/internal/session"
	"github.com/park285/Cheese-Analysis-Board/pkg/boarddto"
)

func (s *Server) state() boarddto.State {
	return stateFromSnapshot(s.board.Snapshot())
}

func stateFromSnapshot(snap session.Snapshot) boarddto.State {
	st := boarddto.State{
		SessionID:   snap.ID,
		FEN:         snap.FEN,
		StartIndex:  snap.StartIndex,
		Castling:    snap.Castling,
		Flipped:     snap.Flipped,
		Turn:        snap.Turn.String(),
		Promotion:   snap.Promotion.Letter(),
		Moves:       make([]boarddto.Move, 0, len(snap.Moves)),
		OpeningCode: snap.OpeningCode,
		OpeningName: snap.OpeningName,
		Outcome:     snap.Outcome,
	}
	if snap.AutoColor != board.NoColor {
		st.AutoColor = snap.AutoColor.String()
	}
	o := board.Orientation{Flipped: snap.Flipped}
	if snap.Selected != nil {
		sq := squareDTO(*snap.Selected, o)
		st.Selected = &sq
	}
	st.Destinations = squaresDTO(snap.Destinations, o)
	for _, mv := range snap.Moves {
		st.Moves = append(st.Moves, boarddto.Move{Ply: mv.Ply, SAN: mv.SAN, UCI: mv.UCI, Mover: mv.Mover.String()})
	}
	st.MoveList = boarddto.FormatMoveList(st.Moves)
	if snap.Evaluation != nil {
		ev := evaluationDTO(*snap.Evaluation)
		st.Evaluation = &ev
	}
	for _, ev := range snap.Evaluations {
		st.Evaluations = append(st.Evaluations, evaluationDTO(ev))
	}
	return st
}

// squareDTO keeps view coordinates and names the game square shown there.
func squareDTO(view board.Square, o board.Orientation) boarddto.Square {
	return boarddto.Square{File: view.File, Rank: view.Rank, Name: o.ToGame(view).String()}
}

func squaresDTO(in []board.Square, o board.Orientation) []boarddto.Square {
	if len(in) == 0 {
		return nil
	}
	out := make([]boarddto.Square, 0, len(in))
	for _, sq := range in {
		out = append(out, squareDTO(sq, o))
	}
	return out
}

func evaluationDTO(ev events.EvaluationUpdated) boarddto.Evaluation {
	out := boarddto.Evaluation{
		Display: ev.Display,
		FEN:     ev.FEN,
		Source:  string(ev.Source),
		CP:      ev.Score.CP,
		Mate:    ev.Score.Mate,
	}
	if ev.Mover != board.NoColor {
		out.Mover = ev.Mover.String()
	}
	return out
}

// envelope converts an event for the wire. o is the orientation the client
// last saw, used to name selection squares.
func envelope(ev events.Event, o board.Orientation) boarddto.Envelope {
	switch e := ev.(type) {
	case events.MoveMade:
		return boarddto.Envelope{Type: string(e.Kind()), Data: boarddto.Move{Ply: e.Ply, SAN: e.SAN, UCI: e.UCI, Mover: e.Mover.String()}}
	case events.EvaluationUpdated:
		return boarddto.Envelope{Type: string(e.Kind()), Data: evaluationDTO(e)}
	case events.SelectionChanged:
		data := map[string]any{"destinations": squaresDTO(e.Destinations, o)}
		if e.Origin != nil {
			data["origin"] = squareDTO(*e.Origin, o)
		}
		return boarddto.Envelope{Type: string(e.Kind()), Data: data}
	case events.GameReset:
		return boarddto.Envelope{Type: string(e.Kind()), Data: map[string]any{
			"session_id":  e.SessionID,
			"start_index": e.StartIndex,
			"fen":         e.FEN,
			"flipped":     e.Flipped,
			"auto_color":  e.AutoColor.String(),
			"castling":    e.Castling,
		}}
	case events.OrientationChanged:
		return boarddto.Envelope{Type: string(e.Kind()), Data: map[string]bool{"flipped": e.Flipped}}
	default:
		return boarddto.Envelope{Type: string(ev.Kind())}
	}
}

func (s *Server) frame(snap session.Snapshot) render.Frame {
	f := render.Frame{
		Pieces:       snap.Pieces,
		Orientation:  board.Orientation{Flipped: snap.Flipped},
		Selected:     snap.Selected,
		Destinations: snap.Destinations,
		Turn:         snap.Turn,
		Title:        s.catalog.Text("hud.title", nil, "Analysis Board"),
	}
	if snap.OpeningCode != "" {
		f.Title = s.catalog.Text("hud.title_opening", map[string]string{"Code": snap.OpeningCode, "Name": snap.OpeningName}, snap.OpeningCode+" "+snap.OpeningName)
	}
	if snap.Outcome != "" {
		f.Title = s.catalog.Text("hud.outcome."+snap.Outcome, nil, f.Title)
	}
	if snap.Evaluation != nil {
		f.Evaluation = snap.Evaluation.Display
	}
	if n := len(snap.Moves); n > 0 {
		if mv, err := board.ParseUCI(snap.Moves[n-1].UCI); err == nil {
			f.LastMove = &mv
		}
	}
	return f
}
