/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Media session boundary - 真实媒体会话的外部协作边界
 *
 * 连接协调层只通过这里的接口消费媒体服务：连接/断开、轨道开关、
 * 设备切换、参会者事件。信令、SFU、编解码都在边界之外。
 */
package media

import (
	"context"
	"errors"

	"github.com/maiguangyang/voice_core/pkg/session"
)

var (
	// ErrAlreadyConnected is returned by Connect on a live session
	ErrAlreadyConnected = errors.New("media: already connected")
	// ErrNotConnected is returned by track operations without a session
	ErrNotConnected = errors.New("media: not connected")
	// ErrSessionClosed is returned after Close
	ErrSessionClosed = errors.New("media: session closed")
)

// Events are the callbacks a session delivers to its consumer. All
// fields are optional. Callbacks may fire from transport goroutines.
type Events struct {
	// OnParticipantChanged fires when a participant joins, leaves, or
	// changes observable state. The full current roster is delivered;
	// the consumer replaces, it does not merge.
	OnParticipantChanged func(participants []session.Participant)
	// OnSpeakingChanged fires when a participant starts or stops speaking
	OnSpeakingChanged func(identity string, speaking bool)
	// OnDisconnected fires when the session drops without a local
	// Disconnect call
	OnDisconnected func(reason string)
}

// Session is one live connection to the media service. Implementations
// must tolerate concurrent calls.
type Session interface {
	// Connect establishes the session against the given server with a
	// previously acquired credential
	Connect(ctx context.Context, url, token string) error
	// Disconnect tears the session down. Safe to call when not connected.
	Disconnect()

	// SetMicEnabled publishes or mutes the local audio input
	SetMicEnabled(enabled bool) error
	// SetPlaybackMuted disables playback of all remote audio tracks
	// without touching the local microphone (deafen)
	SetPlaybackMuted(muted bool) error
	// SetCameraEnabled publishes or unpublishes the local camera track
	SetCameraEnabled(enabled bool) error
	// SetScreenShareEnabled publishes or unpublishes the screen track
	SetScreenShareEnabled(enabled bool) error

	// SwitchInputDevice re-sources the local audio input from the
	// named device
	SwitchInputDevice(deviceID string) error
	// SwitchOutputDevice selects the playback device
	SwitchOutputDevice(deviceID string) error

	// Participants returns the current roster, local participant included
	Participants() []session.Participant
}

// CredentialProvider acquires a connection credential for a channel
// from the external media service
type CredentialProvider interface {
	Credential(ctx context.Context, channelID, identity string) (string, error)
}
