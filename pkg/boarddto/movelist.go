package boarddto

import (
	"strconv"
	"strings"
)

// MoveRow pairs a white move with the black reply in the same turn.
type MoveRow struct {
	Number int
	White  string
	Black  string
}

// MoveRows groups moves into numbered turns. A list that opens with a black
// move leaves White empty in the first row.
func MoveRows(moves []Move) []MoveRow {
	var rows []MoveRow
	for _, mv := range moves {
		if mv.Mover == "black" {
			if len(rows) == 0 || rows[len(rows)-1].Black != "" {
				rows = append(rows, MoveRow{Number: len(rows) + 1})
			}
			rows[len(rows)-1].Black = mv.SAN
			continue
		}
		rows = append(rows, MoveRow{Number: len(rows) + 1, White: mv.SAN})
	}
	return rows
}

// FormatMoveList renders moves as "1. e4 e5 2. Nf3".
func FormatMoveList(moves []Move) string {
	var b strings.Builder
	for i, row := range MoveRows(moves) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(row.Number))
		if row.White == "" {
			b.WriteString("...")
		} else {
			b.WriteString(". ")
			b.WriteString(row.White)
		}
		if row.Black != "" {
			b.WriteByte(' ')
			b.WriteString(row.Black)
		}
	}
	return b.String()
}
