package boarddto

type CommandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e CommandError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "board command error"
}
