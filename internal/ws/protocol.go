package ws

import "encoding/json"

// Event names on the wire
const (
	EventConnect  = "connect"
	EventHostRoom = "host-room"
	EventJoinRoom = "join-room"
	EventColor    = "color"
)

// Frame is the JSON envelope for every message in both directions.
//
// A client request carrying a non-zero ID gets exactly one reply frame whose
// Ack equals that ID. Server pushes have an Event and no Ack.
type Frame struct {
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	ID    uint64          `json:"id,omitempty"`
	Ack   uint64          `json:"ack,omitempty"`
}

type connectData struct {
	SID string `json:"sid"`
}

// encode marshals v into a frame payload; values here are always encodable
func encode(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
