package boarddto

type Square struct {
	File int    `json:"file"`
	Rank int    `json:"rank"`
	Name string `json:"name"`
}

type Move struct {
	Ply   int    `json:"ply"`
	SAN   string `json:"san"`
	UCI   string `json:"uci"`
	Mover string `json:"mover"`
}

type Evaluation struct {
	Display string `json:"display"`
	Mover   string `json:"mover,omitempty"`
	FEN     string `json:"fen"`
	Source  string `json:"source,omitempty"`
	CP      *int   `json:"cp,omitempty"`
	Mate    *int   `json:"mate,omitempty"`
}

type State struct {
	SessionID    string       `json:"session_id"`
	FEN          string       `json:"fen"`
	StartIndex   int          `json:"start_index"`
	Castling     bool         `json:"castling"`
	Flipped      bool         `json:"flipped"`
	Turn         string       `json:"turn"`
	AutoColor    string       `json:"auto_color,omitempty"`
	Promotion    string       `json:"promotion"`
	Selected     *Square      `json:"selected,omitempty"`
	Destinations []Square     `json:"destinations,omitempty"`
	Moves        []Move       `json:"moves"`
	MoveList     string       `json:"move_list"`
	Evaluation   *Evaluation  `json:"evaluation,omitempty"`
	Evaluations  []Evaluation `json:"evaluations,omitempty"`
	OpeningCode  string       `json:"opening_code,omitempty"`
	OpeningName  string       `json:"opening_name,omitempty"`
	Outcome      string       `json:"outcome,omitempty"`
}
