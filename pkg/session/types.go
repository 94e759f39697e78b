/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 */
package session

// Role identifies which side of the two-window protocol this process is
type Role int

const (
	// RoleOwner holds the real media connection
	RoleOwner Role = iota
	// RoleFollower mirrors owner state and relays commands to it
	RoleFollower
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleFollower:
		return "follower"
	default:
		return "unknown"
	}
}

// Phase is the connection lifecycle state
type Phase string

const (
	// PhaseDisconnected is the initial state and the only terminal-for-intent state
	PhaseDisconnected Phase = "disconnected"
	// PhaseConnecting means a connect attempt is in flight
	PhaseConnecting Phase = "connecting"
	// PhaseConnected means the real media session is established
	PhaseConnected Phase = "connected"
	// PhaseReconnecting means the session dropped and retries are scheduled
	PhaseReconnecting Phase = "reconnecting"
)

// Busy reports whether a connect to the same channel should be suppressed
func (p Phase) Busy() bool {
	return p == PhaseConnecting || p == PhaseReconnecting
}

// ChannelKind distinguishes audio-only channels from audio+video ones
type ChannelKind string

const (
	ChannelKindVoice ChannelKind = "voice"
	ChannelKindVideo ChannelKind = "video"
)

// Channel identifies the target of a call. Immutable once a call starts.
type Channel struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	GroupID string      `json:"groupId,omitempty"`
	Kind    ChannelKind `json:"kind"`
}

// Participant is one media-session participant as seen by the UI
type Participant struct {
	// Identity is the stable user-visible id
	Identity string `json:"identity"`
	// SessionID is assigned by the transport and may change across reconnects
	SessionID       string `json:"sessionId,omitempty"`
	IsSpeaking      bool   `json:"isSpeaking"`
	IsMuted         bool   `json:"isMuted"`
	IsCameraOn      bool   `json:"isCameraOn"`
	IsScreenSharing bool   `json:"isScreenSharing"`
	// IsLocal is true for exactly one entry: the local user
	IsLocal bool `json:"isLocal"`
}

// DevicePreferences holds the two audio device ids both windows care about
type DevicePreferences struct {
	InputDeviceID  string `json:"inputDeviceId,omitempty"`
	OutputDeviceID string `json:"outputDeviceId,omitempty"`
}

// Snapshot is the full externally visible session state at a point in
// time. It is the unit of replication between windows and is always
// replaced wholesale on the follower side, never patched field by field.
type Snapshot struct {
	Phase           Phase             `json:"connectionPhase"`
	IsMuted         bool              `json:"isMuted"`
	IsDeafened      bool              `json:"isDeafened"`
	IsCameraOn      bool              `json:"isCameraOn"`
	IsScreenSharing bool              `json:"isScreenSharing"`
	Error           string            `json:"error,omitempty"`
	Participants    []Participant     `json:"participants,omitempty"`
	Local           *Participant      `json:"localParticipant,omitempty"`
	Channel         *Channel          `json:"activeChannel,omitempty"`
	Devices         DevicePreferences `json:"devicePreferences"`
}

// EmptySnapshot returns the initial disconnected state
func EmptySnapshot() Snapshot {
	return Snapshot{Phase: PhaseDisconnected}
}

// Clone returns a deep copy so callers can hand snapshots across
// goroutines without sharing the participant slice
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Participants != nil {
		out.Participants = make([]Participant, len(s.Participants))
		copy(out.Participants, s.Participants)
	}
	if s.Local != nil {
		local := *s.Local
		out.Local = &local
	}
	if s.Channel != nil {
		ch := *s.Channel
		out.Channel = &ch
	}
	return out
}
