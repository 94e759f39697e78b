/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * LiveKitSession - 基于 LiveKit SFU 的媒体会话实现
 *
 * 把 lksdk.Room 适配到 Session 边界：房间回调映射为参会者事件，
 * 订阅的远端音频轨道走 readRTPLoop 做说话检测。
 */
package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"

	"github.com/maiguangyang/voice_core/pkg/session"
	"github.com/maiguangyang/voice_core/pkg/utils"
)

// LiveKitSession implements Session over a LiveKit room
type LiveKitSession struct {
	mu sync.RWMutex

	identity string
	provider TrackProvider
	events   Events
	logger   *utils.Logger

	room *lksdk.Room

	// 本地发布状态
	micPub    *lksdk.LocalTrackPublication
	cameraPub *lksdk.LocalTrackPublication
	screenPub *lksdk.LocalTrackPublication
	micMuted  bool
	deafened  bool

	// 当前设备
	inputDeviceID  string
	outputDeviceID string

	// 每个远端音频轨道一个检测器
	detectors map[string]*SpeakingDetector
	speaking  map[string]bool

	closing bool
}

// NewLiveKitSession creates a session adapter. identity is the local
// user's stable id; provider opens local capture devices.
func NewLiveKitSession(identity string, provider TrackProvider, events Events) *LiveKitSession {
	if provider == nil {
		provider = NewSampleTrackProvider()
	}
	return &LiveKitSession{
		identity:  identity,
		provider:  provider,
		events:    events,
		logger:    utils.NewLogger("media.livekit"),
		detectors: make(map[string]*SpeakingDetector),
		speaking:  make(map[string]bool),
	}
}

// Connect joins the LiveKit room behind the credential
func (s *LiveKitSession) Connect(ctx context.Context, url, token string) error {
	s.mu.Lock()
	if s.room != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.closing = false
	s.mu.Unlock()

	roomCB := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed:   s.onTrackSubscribed,
			OnTrackUnsubscribed: s.onTrackUnsubscribed,
			OnTrackMuted: func(pub lksdk.TrackPublication, p lksdk.Participant) {
				s.emitParticipants()
			},
			OnTrackUnmuted: func(pub lksdk.TrackPublication, p lksdk.Participant) {
				s.emitParticipants()
			},
		},
		OnParticipantConnected: func(rp *lksdk.RemoteParticipant) {
			s.emitParticipants()
		},
		OnParticipantDisconnected: func(rp *lksdk.RemoteParticipant) {
			s.dropDetector(rp.Identity())
			s.emitParticipants()
		},
		OnDisconnected: func() {
			s.handleDisconnected()
		},
		OnReconnecting: func() {
			s.logger.Warn("sfu connection degraded, sdk reconnecting")
		},
		OnReconnected: func() {
			s.emitParticipants()
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(url, token, roomCB, lksdk.WithAutoSubscribe(true))
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	select {
	case <-ctx.Done():
		room.Disconnect()
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	s.room = room
	s.mu.Unlock()

	s.emitParticipants()
	return nil
}

// Disconnect leaves the room without firing OnDisconnected
func (s *LiveKitSession) Disconnect() {
	s.mu.Lock()
	room := s.room
	s.room = nil
	s.closing = true
	s.micPub = nil
	s.cameraPub = nil
	s.screenPub = nil
	s.detectors = make(map[string]*SpeakingDetector)
	s.speaking = make(map[string]bool)
	s.mu.Unlock()

	if room != nil {
		// 异步断开，避免阻塞调用方
		go room.Disconnect()
	}
}

// handleDisconnected distinguishes an unexpected drop from a local leave
func (s *LiveKitSession) handleDisconnected() {
	s.mu.Lock()
	wasClosing := s.closing
	s.room = nil
	s.micPub = nil
	s.cameraPub = nil
	s.screenPub = nil
	s.mu.Unlock()

	if wasClosing {
		return
	}

	s.logger.Warn("room dropped unexpectedly")
	if s.events.OnDisconnected != nil {
		go s.events.OnDisconnected("connection lost")
	}
}

// SetMicEnabled publishes the microphone on first enable, then mutes
// and unmutes the publication in place
func (s *LiveKitSession) SetMicEnabled(enabled bool) error {
	s.mu.Lock()
	room := s.room
	pub := s.micPub
	device := s.inputDeviceID
	s.mu.Unlock()

	if room == nil {
		return ErrNotConnected
	}

	if pub == nil {
		if !enabled {
			return nil
		}
		track, err := s.provider.CreateMicTrack(device)
		if err != nil {
			return fmt.Errorf("open microphone: %w", err)
		}
		newPub, err := room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
			Name:   "microphone",
			Source: livekit.TrackSource_MICROPHONE,
		})
		if err != nil {
			return fmt.Errorf("publish microphone: %w", err)
		}
		s.mu.Lock()
		s.micPub = newPub
		s.micMuted = false
		s.mu.Unlock()
	} else {
		pub.SetMuted(!enabled)
		s.mu.Lock()
		s.micMuted = !enabled
		s.mu.Unlock()
	}

	s.emitParticipants()
	return nil
}

// SetPlaybackMuted disables every remote audio publication. The local
// microphone is untouched; deafen and mute compose at a higher layer.
func (s *LiveKitSession) SetPlaybackMuted(muted bool) error {
	s.mu.Lock()
	room := s.room
	s.deafened = muted
	s.mu.Unlock()

	if room == nil {
		return ErrNotConnected
	}

	for _, rp := range room.GetRemoteParticipants() {
		for _, pub := range rp.TrackPublications() {
			remotePub, ok := pub.(*lksdk.RemoteTrackPublication)
			if !ok || remotePub.Kind() != lksdk.TrackKindAudio {
				continue
			}
			remotePub.SetEnabled(!muted)
		}
	}
	return nil
}

// SetCameraEnabled publishes or unpublishes the camera track
func (s *LiveKitSession) SetCameraEnabled(enabled bool) error {
	s.mu.Lock()
	room := s.room
	pub := s.cameraPub
	s.mu.Unlock()

	if room == nil {
		return ErrNotConnected
	}

	if enabled {
		if pub != nil {
			return nil
		}
		track, err := s.provider.CreateCameraTrack("")
		if err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
		newPub, err := room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
			Name:   "camera",
			Source: livekit.TrackSource_CAMERA,
		})
		if err != nil {
			return fmt.Errorf("publish camera: %w", err)
		}
		s.mu.Lock()
		s.cameraPub = newPub
		s.mu.Unlock()
	} else {
		if pub == nil {
			return nil
		}
		if err := room.LocalParticipant.UnpublishTrack(pub.SID()); err != nil {
			return fmt.Errorf("unpublish camera: %w", err)
		}
		s.mu.Lock()
		s.cameraPub = nil
		s.mu.Unlock()
	}

	s.emitParticipants()
	return nil
}

// SetScreenShareEnabled publishes or unpublishes the screen track
func (s *LiveKitSession) SetScreenShareEnabled(enabled bool) error {
	s.mu.Lock()
	room := s.room
	pub := s.screenPub
	s.mu.Unlock()

	if room == nil {
		return ErrNotConnected
	}

	if enabled {
		if pub != nil {
			return nil
		}
		track, err := s.provider.CreateScreenTrack()
		if err != nil {
			return fmt.Errorf("open screen capture: %w", err)
		}
		newPub, err := room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
			Name:   "screen",
			Source: livekit.TrackSource_SCREEN_SHARE,
		})
		if err != nil {
			return fmt.Errorf("publish screen: %w", err)
		}
		s.mu.Lock()
		s.screenPub = newPub
		s.mu.Unlock()
	} else {
		if pub == nil {
			return nil
		}
		if err := room.LocalParticipant.UnpublishTrack(pub.SID()); err != nil {
			return fmt.Errorf("unpublish screen: %w", err)
		}
		s.mu.Lock()
		s.screenPub = nil
		s.mu.Unlock()
	}

	s.emitParticipants()
	return nil
}

// SwitchInputDevice republishes the microphone from the named device
func (s *LiveKitSession) SwitchInputDevice(deviceID string) error {
	s.mu.Lock()
	room := s.room
	pub := s.micPub
	wasMuted := s.micMuted
	s.inputDeviceID = deviceID
	s.mu.Unlock()

	if room == nil {
		return ErrNotConnected
	}
	if pub == nil {
		// 偏好已记录，下次发布麦克风时生效
		return nil
	}

	track, err := s.provider.CreateMicTrack(deviceID)
	if err != nil {
		return fmt.Errorf("open microphone %q: %w", deviceID, err)
	}
	if err := room.LocalParticipant.UnpublishTrack(pub.SID()); err != nil {
		return fmt.Errorf("unpublish microphone: %w", err)
	}
	newPub, err := room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   "microphone",
		Source: livekit.TrackSource_MICROPHONE,
	})
	if err != nil {
		return fmt.Errorf("republish microphone: %w", err)
	}
	newPub.SetMuted(wasMuted)

	s.mu.Lock()
	s.micPub = newPub
	s.mu.Unlock()
	return nil
}

// SwitchOutputDevice records the playback device. Actual playback
// routing lives in the embedding shell; the session only tracks the
// selection so snapshots report the device in effect.
func (s *LiveKitSession) SwitchOutputDevice(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil {
		return ErrNotConnected
	}
	s.outputDeviceID = deviceID
	return nil
}

// onTrackSubscribed starts speaking detection on remote audio tracks
// and applies the deafen state to late-arriving tracks
func (s *LiveKitSession) onTrackSubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() == webrtc.RTPCodecTypeAudio {
		s.mu.Lock()
		deafened := s.deafened
		detector := NewSpeakingDetector(rp.Identity(), DefaultAudioLevelExtensionID, s.onSpeakingChanged)
		s.detectors[rp.Identity()] = detector
		s.mu.Unlock()

		if deafened {
			pub.SetEnabled(false)
		}
		go s.readRTPLoop(track, detector)
	}

	s.emitParticipants()
}

func (s *LiveKitSession) onTrackUnsubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() == webrtc.RTPCodecTypeAudio {
		s.dropDetector(rp.Identity())
	}
	s.emitParticipants()
}

// readRTPLoop feeds header extensions into the detector until the track
// ends. Payloads are never decoded here.
func (s *LiveKitSession) readRTPLoop(track *webrtc.TrackRemote, detector *SpeakingDetector) {
	for {
		s.mu.RLock()
		stopped := s.room == nil
		s.mu.RUnlock()
		if stopped {
			return
		}

		pkt, _, err := track.ReadRTP()
		if err != nil {
			detector.Flush()
			return
		}
		detector.Process(pkt)
	}
}

func (s *LiveKitSession) onSpeakingChanged(identity string, speaking bool) {
	s.mu.Lock()
	s.speaking[identity] = speaking
	s.mu.Unlock()

	if s.events.OnSpeakingChanged != nil {
		s.events.OnSpeakingChanged(identity, speaking)
	}
	s.emitParticipants()
}

func (s *LiveKitSession) dropDetector(identity string) {
	s.mu.Lock()
	delete(s.detectors, identity)
	delete(s.speaking, identity)
	s.mu.Unlock()
}

// Participants builds the current roster, local participant first
func (s *LiveKitSession) Participants() []session.Participant {
	s.mu.RLock()
	room := s.room
	micPub := s.micPub
	micMuted := s.micMuted
	cameraOn := s.cameraPub != nil
	screenOn := s.screenPub != nil
	speaking := make(map[string]bool, len(s.speaking))
	for k, v := range s.speaking {
		speaking[k] = v
	}
	s.mu.RUnlock()

	if room == nil {
		return nil
	}

	local := session.Participant{
		Identity:        s.identity,
		SessionID:       room.LocalParticipant.SID(),
		IsLocal:         true,
		IsMuted:         micPub == nil || micMuted,
		IsCameraOn:      cameraOn,
		IsScreenSharing: screenOn,
		IsSpeaking:      speaking[s.identity],
	}
	out := []session.Participant{local}

	for _, rp := range room.GetRemoteParticipants() {
		p := session.Participant{
			Identity:   rp.Identity(),
			SessionID:  rp.SID(),
			IsMuted:    true,
			IsSpeaking: speaking[rp.Identity()],
		}
		for _, pub := range rp.TrackPublications() {
			switch pub.Kind() {
			case lksdk.TrackKindAudio:
				if pub.Source() == livekit.TrackSource_MICROPHONE || pub.Source() == livekit.TrackSource_UNKNOWN {
					p.IsMuted = pub.IsMuted()
				}
			case lksdk.TrackKindVideo:
				if pub.Source() == livekit.TrackSource_SCREEN_SHARE {
					p.IsScreenSharing = !pub.IsMuted()
				} else {
					p.IsCameraOn = !pub.IsMuted()
				}
			}
		}
		out = append(out, p)
	}
	return out
}

// emitParticipants pushes the full roster to the consumer
func (s *LiveKitSession) emitParticipants() {
	if s.events.OnParticipantChanged == nil {
		return
	}
	roster := s.Participants()
	if roster == nil {
		return
	}
	go s.events.OnParticipantChanged(roster)
}
