package chatlog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Header is the fixed column schema written once at the top of every target
// file. Row production in (Event).Row follows this order exactly.
var Header = []string{
	"timestamp_iso",
	"timestamp_unix",
	"platform",
	"message_type",
	"self_id",
	"session_id",
	"message_id",
	"group_id",
	"sender_id",
	"sender_name",
	"sender_repr",
	"message_text",
	"message_components",
	"raw_message",
}

// Event is one externally supplied chat message. Fields are optional; absent
// values are zero values and render as empty cells. Timestamp is unix
// seconds; zero means the arrival time was not reported and the current time
// is substituted during mapping.
type Event struct {
	Timestamp   int64
	Platform    string
	MessageType string
	SelfID      string
	SessionID   string
	MessageID   string
	GroupID     string
	SenderID    string
	SenderName  string
	SenderRepr  any
	MessageText string
	Components  any
	RawMessage  any
}

// Row maps the event to one CSV record matching Header. The mapping is
// total: missing fields become empty cells and unserializable payloads fall
// back to a debug rendering instead of failing.
func (e Event) Row() []string {
	ts := e.Timestamp
	if ts <= 0 {
		ts = time.Now().UTC().Unix()
	}
	instant := time.Unix(ts, 0).UTC()

	return []string{
		instant.Format(time.RFC3339),
		strconv.FormatInt(ts, 10),
		e.Platform,
		e.MessageType,
		e.SelfID,
		e.SessionID,
		e.MessageID,
		e.GroupID,
		e.SenderID,
		e.SenderName,
		renderCell(e.SenderRepr),
		e.MessageText,
		renderCell(e.Components),
		renderCell(e.RawMessage),
	}
}

// renderCell stringifies an opaque payload. Strings pass through, nil is an
// empty cell, and anything else is rendered as JSON with a fmt fallback for
// values the JSON encoder rejects (cycles, channels, funcs).
func renderCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%+v", val)
		}
		return string(data)
	}
}
