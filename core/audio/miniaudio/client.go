// Package miniaudio implements the audio device interface on top of
// miniaudio via malgo.
package miniaudio

import (
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/dkrizanic/frontdesk-core/core/audio"
)

// Device owns one miniaudio context with a capture and a playback
// stream on it.
type Device struct {
	// audioContext is only kept to uninitialize it on Close
	audioContext *malgo.AllocatedContext

	capture  captureStream
	playback playbackStream
	encoding audio.EncodingInfo
}

type Option func(*Device)

// WithEncodingInfo overrides the sample rate, channel count and sample
// format both streams are opened with.
func WithEncodingInfo(encoding audio.EncodingInfo) Option {
	return func(d *Device) {
		d.encoding = encoding
	}
}

// NewDevice initializes the audio context and both streams. Playback
// starts immediately so queued agent audio plays as soon as it arrives;
// capture stays stopped until StartCapture.
func NewDevice(opts ...Option) (*Device, error) {
	device := &Device{encoding: audio.DefaultEncodingInfo()}
	for _, opt := range opts {
		opt(device)
	}
	if device.encoding.IsZero() {
		return nil, errors.New("invalid encoding info")
	}

	audioContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	device.audioContext = audioContext

	if err := device.playback.Init(audioContext, device.encoding); err != nil {
		device.Close()
		return nil, fmt.Errorf("failed to initialize playback stream: %w", err)
	}
	if err := device.playback.Start(); err != nil {
		device.Close()
		return nil, fmt.Errorf("failed to start playback stream: %w", err)
	}
	if err := device.capture.Init(audioContext, device.encoding); err != nil {
		device.Close()
		return nil, fmt.Errorf("failed to initialize capture stream: %w", err)
	}

	return device, nil
}

func (d *Device) StartCapture(onFrame func(frame []byte)) error {
	return d.capture.Start(onFrame)
}

func (d *Device) StopCapture() error {
	return d.capture.Stop()
}

func (d *Device) Play(frame []byte) error {
	return d.playback.Enqueue(frame)
}

// Flush drops any queued but not yet played agent audio.
func (d *Device) Flush() {
	d.playback.Flush()
}

func (d *Device) EncodingInfo() audio.EncodingInfo {
	return d.encoding
}

func (d *Device) Close() error {
	errs := errors.Join(
		d.capture.Uninit(),
		d.playback.Uninit(),
	)
	if d.audioContext != nil {
		errs = errors.Join(errs, d.audioContext.Uninit())
		d.audioContext.Free()
		d.audioContext = nil
	}
	return errs
}
