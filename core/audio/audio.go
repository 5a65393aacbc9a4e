// Package audio describes the PCM encodings exchanged with the room
// service and the device interface capture/playback backends implement.
package audio

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
)

type Format string

const (
	FormatLinear16 Format = "linear16"
	FormatMulaw    Format = "mulaw"
	FormatALaw     Format = "alaw"
)

// SampleSize returns the size of one sample in bytes, or -1 for an
// unknown format.
func (f Format) SampleSize() int {
	switch f {
	case FormatMulaw, FormatALaw:
		return 1
	case FormatLinear16:
		return 2
	}
	return -1
}

// Silence returns the byte value that encodes silence in this format.
func (f Format) Silence() byte {
	switch f {
	case FormatALaw:
		return 0x55
	case FormatMulaw:
		return 0xFF
	}
	return 0
}

type EncodingInfo struct {
	SampleRate int
	Channels   int
	Format     Format
}

func DefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		Format:     FormatLinear16,
	}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Channels == 0 || e.Format.SampleSize() <= 0
}

// FrameSize returns the size in bytes of one frame across all channels.
func (e EncodingInfo) FrameSize() int {
	return e.Format.SampleSize() * e.Channels
}

// Device is a duplex microphone and speaker pair. Captured frames are
// delivered through the callback passed to StartCapture; agent audio is
// queued with Play and drained by the backend at playback rate.
type Device interface {
	StartCapture(onFrame func(frame []byte)) error
	StopCapture() error
	Play(frame []byte) error
	Flush()
	EncodingInfo() EncodingInfo
	Close() error
}
