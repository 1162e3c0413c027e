package boarddto

const (
	CommandClick     = "click"
	CommandFlip      = "flip"
	CommandNewGame   = "new_game"
	CommandPromotion = "promotion"
	CommandAutoColor = "auto_color"
	CommandState     = "state"
)

// Command is one client request. File and Rank are view coordinates,
// counted from the viewer's bottom-left square.
type Command struct {
	Type  string `json:"type"`
	File  int    `json:"file,omitempty"`
	Rank  int    `json:"rank,omitempty"`
	Index *int   `json:"index,omitempty"`
	Piece string `json:"piece,omitempty"`
	Color string `json:"color,omitempty"`
}

// Envelope wraps every server message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
