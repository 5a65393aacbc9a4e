package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/dkrizanic/frontdesk-core/core/audio"
)

type playbackStream struct {
	device *malgo.Device

	mu sync.Mutex

	bufferMu sync.Mutex
	buffer   []byte
	silence  byte
}

func (p *playbackStream) Init(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(encoding.SampleRate)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = uint32(encoding.Channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(encoding.SampleRate / 10)
	config.Periods = 4

	p.silence = encoding.Format.Silence()
	frameSize := encoding.FrameSize()

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			p.fill(output, int(frameCount)*frameSize)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	p.device = device
	return nil
}

func (p *playbackStream) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return fmt.Errorf("playback device not initialized")
	}
	if p.device.IsStarted() {
		return nil
	}
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (p *playbackStream) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return fmt.Errorf("playback device not initialized")
	}
	if err := p.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}
	p.Flush()
	return nil
}

func (p *playbackStream) Uninit() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	p.Flush()
	return nil
}

// Enqueue buffers one frame of agent audio for the next data callback.
func (p *playbackStream) Enqueue(frame []byte) error {
	p.mu.Lock()
	started := p.device != nil && p.device.IsStarted()
	p.mu.Unlock()

	if !started {
		return fmt.Errorf("playback device not started")
	}

	p.bufferMu.Lock()
	defer p.bufferMu.Unlock()
	p.buffer = append(p.buffer, frame...)
	return nil
}

func (p *playbackStream) Flush() {
	p.bufferMu.Lock()
	defer p.bufferMu.Unlock()
	p.buffer = p.buffer[:0]
}

// fill copies buffered audio into the device's output block, padding
// with silence on underrun.
func (p *playbackStream) fill(output []byte, need int) {
	p.bufferMu.Lock()
	n := copy(output, p.buffer)
	if n == len(p.buffer) {
		p.buffer = p.buffer[:0]
	} else {
		p.buffer = p.buffer[n:]
	}
	p.bufferMu.Unlock()

	for i := n; i < need && i < len(output); i++ {
		output[i] = p.silence
	}
}
