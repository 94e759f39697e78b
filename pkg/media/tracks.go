/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * TrackProvider - 本地采集抽象
 *
 * server-sdk-go 不做设备采集；轨道由宿主（桌面壳）提供。
 * 桌面壳按设备 id 打开麦克风/摄像头/屏幕并喂 LocalSampleTrack。
 */
package media

import (
	"errors"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
)

// ErrNoCaptureDevice is returned when the provider cannot open the
// requested device (missing, busy, or permission denied)
var ErrNoCaptureDevice = errors.New("media: capture device unavailable")

// TrackProvider opens local capture devices and hands back publishable
// tracks. deviceID is empty for the system default device.
type TrackProvider interface {
	CreateMicTrack(deviceID string) (*lksdk.LocalSampleTrack, error)
	CreateCameraTrack(deviceID string) (*lksdk.LocalSampleTrack, error)
	CreateScreenTrack() (*lksdk.LocalSampleTrack, error)
}

// SampleTrackProvider is the default provider: it creates codec-correct
// sample tracks whose media the embedding shell writes into. Feeding
// the tracks (WriteSample) is the shell's concern.
type SampleTrackProvider struct{}

// NewSampleTrackProvider creates the default provider
func NewSampleTrackProvider() *SampleTrackProvider {
	return &SampleTrackProvider{}
}

// CreateMicTrack creates an Opus audio track
func (p *SampleTrackProvider) CreateMicTrack(deviceID string) (*lksdk.LocalSampleTrack, error) {
	return lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	})
}

// CreateCameraTrack creates a VP8 video track
func (p *SampleTrackProvider) CreateCameraTrack(deviceID string) (*lksdk.LocalSampleTrack, error) {
	return lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeVP8,
		ClockRate: 90000,
	})
}

// CreateScreenTrack creates a VP8 video track for screen capture
func (p *SampleTrackProvider) CreateScreenTrack() (*lksdk.LocalSampleTrack, error) {
	return lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeVP8,
		ClockRate: 90000,
	})
}
