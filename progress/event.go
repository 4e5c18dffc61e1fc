package progress

// Event is the payload delivered to subscribers of a request. Incremental
// stream events carry no Progress; a terminal event carries Progress 1 or an
// Error.
type Event struct {
	RequestID string      `json:"requestId"`
	Progress  float64     `json:"progress,omitempty"`
	Data      interface{} `json:"data"`
	Error     string      `json:"error,omitempty"`
}

// Final reports whether no further events follow for the request.
func (e *Event) Final() bool {
	return e.Progress >= 1 || e.Error != ""
}
