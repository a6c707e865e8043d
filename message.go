package replcraft

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Push event discriminators, carried in the `type` field of server-pushed
// frames.
const (
	pushContextOpened = "contextOpened"
	pushContextClosed = "contextClosed"
	pushBlockUpdate   = "block update"
	pushTransact      = "transact"
)

// wireID accepts either a JSON string or a JSON number. Response ids are
// strings, but context lifecycle pushes reuse the `id` key for the numeric
// context id.
type wireID string

func (w *wireID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*w = wireID(n.String())
	return nil
}

// envelope is the outer shape shared by every inbound frame. A frame with an
// `ok` field is a response to a pending request; a frame with a `type` field
// is a pushed event. The two are dispatched independently.
type envelope struct {
	ID      wireID `json:"id"`
	OK      *bool  `json:"ok"`
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("parse frame: %w", err)
	}
	return env, nil
}

// Type-specific push payloads.

type contextOpenedFrame struct {
	ID    int    `json:"id"`
	Cause string `json:"cause"`
}

type contextClosedFrame struct {
	ID    int    `json:"id"`
	Cause string `json:"cause"`
}

type blockUpdateFrame struct {
	Cause   string `json:"cause"`
	Block   string `json:"block"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Z       int    `json:"z"`
	Context int    `json:"context"`
}

type transactFrame struct {
	Player     string  `json:"player"`
	PlayerUUID string  `json:"player_uuid"`
	Amount     float64 `json:"amount"`
	Query      string  `json:"query"`
	QueryNonce int     `json:"queryNonce"`
	Context    int     `json:"context"`
}

// marshalRequest builds the outgoing wire frame: the caller's action arguments
// augmented with the correlation id and, for context-scoped requests, the
// context id. The caller's map is not mutated.
func marshalRequest(args map[string]any, id string, contextID int) ([]byte, error) {
	frame := make(map[string]any, len(args)+2)
	for k, v := range args {
		frame[k] = v
	}
	frame["id"] = id
	if contextID >= 0 {
		frame["contextId"] = contextID
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal request %q: %w", frame["action"], err)
	}
	return data, nil
}

func formatID(n uint64) string {
	return strconv.FormatUint(n, 10)
}
