package core

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// CommandType defines the type of command being dispatched.
type CommandType string

const (
	CmdLight           CommandType = "light"
	CmdAddSchedule     CommandType = "addSchedule"
	CmdRemoveSchedule  CommandType = "removeSchedule"
	CmdGetPatternCode  CommandType = "getPatternCode"
	CmdSavePatternCode CommandType = "savePatternCode"
	CmdDeletePattern   CommandType = "deletePattern"
)

// Command sources, used in logs.
const (
	SourceMQTT      = "mqtt"
	SourceWebSocket = "websocket"
	SourceScheduler = "scheduler"
)

// Command is the envelope for incoming requests. For CmdLight the payload is
// the JSON light command; the other types carry their own small objects.
type Command struct {
	Type    CommandType
	Source  string
	Payload json.RawMessage
}

// LightCommand wraps a raw light payload.
func LightCommand(source string, payload []byte) Command {
	return Command{Type: CmdLight, Source: source, Payload: json.RawMessage(payload)}
}

// CommandChannel is the bounded queue the agent drains. When it is full the
// oldest queued command makes room for the new one.
type CommandChannel struct {
	mu      sync.Mutex
	ch      chan Command
	dropped atomic.Uint64
}

// NewCommandChannel creates a queue holding up to size commands.
func NewCommandChannel(size int) *CommandChannel {
	if size < 1 {
		size = 1
	}
	return &CommandChannel{ch: make(chan Command, size)}
}

// Submit enqueues cmd without blocking. It reports whether an older command
// was dropped to make room.
func (c *CommandChannel) Submit(cmd Command) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := false
	for {
		select {
		case c.ch <- cmd:
			return dropped
		default:
		}
		select {
		case <-c.ch:
			dropped = true
			c.dropped.Add(1)
		default:
		}
	}
}

// C is the receive side of the queue.
func (c *CommandChannel) C() <-chan Command { return c.ch }

// Len is the number of queued commands.
func (c *CommandChannel) Len() int { return len(c.ch) }

// Dropped counts commands discarded because the queue was full.
func (c *CommandChannel) Dropped() uint64 { return c.dropped.Load() }
