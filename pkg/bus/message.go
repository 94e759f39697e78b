/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 */
package bus

import (
	"time"

	"github.com/google/uuid"

	"github.com/maiguangyang/voice_core/pkg/session"
)

// Kind tags the three message shapes on the wire
type Kind string

const (
	// KindHeartbeat is the owner liveness beacon, envelope only
	KindHeartbeat Kind = "heartbeat"
	// KindState carries one full state snapshot
	KindState Kind = "state"
	// KindCommand carries one relayed user command
	KindCommand Kind = "command"
)

// CommandType enumerates the user intents a follower can relay
type CommandType string

const (
	CommandConnect           CommandType = "connect"
	CommandDisconnect        CommandType = "disconnect"
	CommandToggleMute        CommandType = "toggleMute"
	CommandToggleDeafen      CommandType = "toggleDeafen"
	CommandToggleCamera      CommandType = "toggleCamera"
	CommandToggleScreenShare CommandType = "toggleScreenShare"
	CommandSetDevices        CommandType = "setDevices"
)

// Command is the payload of a KindCommand message
type Command struct {
	Type              CommandType                `json:"type"`
	Channel           *session.Channel           `json:"channel,omitempty"`
	DevicePreferences *session.DevicePreferences `json:"devicePreferences,omitempty"`
}

// Message is the wire envelope shared by all three kinds. Field names
// are the compatibility surface with the counterpart window process
// and must not be renamed.
type Message struct {
	Kind Kind `json:"kind"`
	// From is the sender's instance id, used by receivers to drop echoes
	From string `json:"from"`
	// Timestamp is epoch milliseconds at send time
	Timestamp int64 `json:"timestamp"`
	// MessageID uniquely identifies this message instance (not the
	// semantic command), for at-most-once execution under duplication
	MessageID string `json:"messageId"`

	State   *session.Snapshot `json:"state,omitempty"`
	Command *Command          `json:"command,omitempty"`
}

// SentAt returns the envelope timestamp as a time.Time
func (m Message) SentAt() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// NewInstanceID generates a process-unique opaque token
func NewInstanceID() string {
	return uuid.NewString()
}

// NewMessage builds an envelope with a fresh message id and timestamp
func NewMessage(kind Kind, from string) Message {
	return Message{
		Kind:      kind,
		From:      from,
		Timestamp: time.Now().UnixMilli(),
		MessageID: uuid.NewString(),
	}
}

// NewHeartbeat builds a liveness beacon
func NewHeartbeat(from string) Message {
	return NewMessage(KindHeartbeat, from)
}

// NewState builds a snapshot message
func NewState(from string, snapshot session.Snapshot) Message {
	msg := NewMessage(KindState, from)
	msg.State = &snapshot
	return msg
}

// NewCommand builds a command message
func NewCommand(from string, cmd Command) Message {
	msg := NewMessage(KindCommand, from)
	msg.Command = &cmd
	return msg
}
