/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * SpeakingDetector - 基于 RTP ssrc-audio-level 扩展的说话检测
 *
 * 从订阅的远端音频轨道读 RTP 头扩展（不解码负载），
 * 平滑 + 挂起（hangover）后得到 isSpeaking。
 */
package media

import (
	"sync"
	"time"

	"github.com/pion/rtp"
)

const (
	// DefaultAudioLevelExtensionID is the header extension id the SFU
	// negotiates for urn:ietf:params:rtp-hdrext:ssrc-audio-level
	DefaultAudioLevelExtensionID = 1

	// speakingThreshold in dBov attenuation: 0 is loudest, 127 is
	// silence. Levels at or below this count as voice activity.
	speakingThreshold = 45

	// speakingHangover keeps isSpeaking true across short pauses so
	// the indicator does not flicker between words
	speakingHangover = 400 * time.Millisecond
)

// SpeakingDetector tracks voice activity for one audio track
type SpeakingDetector struct {
	mu sync.Mutex

	identity string
	extID    uint8

	speaking  bool
	lastVoice time.Time

	// now is swappable for tests
	now func() time.Time

	onChanged func(identity string, speaking bool)
}

// NewSpeakingDetector creates a detector for a participant's audio track
func NewSpeakingDetector(identity string, extID uint8, onChanged func(identity string, speaking bool)) *SpeakingDetector {
	if extID == 0 {
		extID = DefaultAudioLevelExtensionID
	}
	return &SpeakingDetector{
		identity:  identity,
		extID:     extID,
		now:       time.Now,
		onChanged: onChanged,
	}
}

// Process inspects one RTP packet. Packets without the audio-level
// extension only advance the hangover clock.
func (d *SpeakingDetector) Process(pkt *rtp.Packet) {
	d.mu.Lock()

	voice := false
	if ext := pkt.GetExtension(d.extID); ext != nil {
		var level rtp.AudioLevelExtension
		if err := level.Unmarshal(ext); err == nil {
			voice = level.Level <= speakingThreshold
		}
	}

	now := d.now()
	if voice {
		d.lastVoice = now
	}

	next := voice || (!d.lastVoice.IsZero() && now.Sub(d.lastVoice) <= speakingHangover)
	changed := next != d.speaking
	d.speaking = next
	onChanged := d.onChanged
	d.mu.Unlock()

	if changed && onChanged != nil {
		onChanged(d.identity, next)
	}
}

// Flush re-evaluates the hangover without new input, for callers that
// tick when the track goes quiet
func (d *SpeakingDetector) Flush() {
	d.mu.Lock()
	next := !d.lastVoice.IsZero() && d.now().Sub(d.lastVoice) <= speakingHangover
	changed := next != d.speaking
	d.speaking = next
	onChanged := d.onChanged
	identity := d.identity
	d.mu.Unlock()

	if changed && onChanged != nil {
		onChanged(identity, next)
	}
}

// IsSpeaking returns the current state
func (d *SpeakingDetector) IsSpeaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speaking
}
