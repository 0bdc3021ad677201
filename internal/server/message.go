package server

import "encoding/json"

// Outgoing message types.
const (
	MsgStatus       = "status"
	MsgEffectList   = "effect_list"
	MsgScheduleList = "schedule_list"
	MsgPatternList  = "pattern_list"
	MsgPatternCode  = "pattern_code"
	MsgError        = "error"
)

// Incoming message types.
const (
	InCommand         = "command"
	InGetPatternCode  = "getPatternCode"
	InSavePatternCode = "savePatternCode"
	InDeletePattern   = "deletePattern"
	InAddSchedule     = "addSchedule"
	InRemoveSchedule  = "removeSchedule"
)

// Request is an incoming JSON message from a WebSocket client.
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Message is an outgoing JSON message sent to WebSocket clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// NewMessage creates a message for broadcasting to clients.
func NewMessage(msgType string, payload any) Message {
	return Message{Type: msgType, Payload: payload}
}
