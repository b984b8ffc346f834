package keyboard

import (
	"fmt"
	"strings"
)

// Callback is the payload of an inline button: an action and its argument.
// Telegram caps callback data at 64 bytes, so both parts stay short.
type Callback struct {
	Action string
	Value  string
}

func (c Callback) String() string {
	return c.Action + ":" + c.Value
}

// ParseCallback reads button data produced by EncodeCallback. Unknown actions
// are rejected so stale keyboards from an older build fail loudly.
func ParseCallback(data string) (Callback, error) {
	action, value, ok := strings.Cut(data, ":")
	if !ok {
		return Callback{}, fmt.Errorf("invalid callback format: %q", data)
	}
	switch action {
	case ActionSources, ActionMetrics, ActionFeedback, ActionExport:
		return Callback{Action: action, Value: value}, nil
	default:
		return Callback{}, fmt.Errorf("unknown callback action %q", action)
	}
}

func EncodeCallback(action, value string) string {
	return Callback{Action: action, Value: value}.String()
}
