// Package audio holds the PCM plumbing between an uploaded recording and a
// speech-to-text provider: WAV decoding and encoding, resampling, channel
// down-mixing, and ffmpeg transcoding for compressed containers.
//
// All PCM in this package is 16-bit signed little-endian, interleaved when
// there is more than one channel.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const bytesPerSample = 2

// Format describes the sample rate and channel count of a PCM buffer.
type Format struct {
	SampleRate int
	Channels   int
}

// SpeechFormat is the 16 kHz mono format every STT provider accepts.
var SpeechFormat = Format{SampleRate: 16000, Channels: 1}

// PCM is a decoded audio clip.
type PCM struct {
	Data []byte
	Format
}

// Duration returns the playback length of the clip. It is zero when the
// format is unset.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 || p.Channels <= 0 {
		return 0
	}
	frames := len(p.Data) / (bytesPerSample * p.Channels)
	return time.Duration(frames) * time.Second / time.Duration(p.SampleRate)
}

// Seconds is [PCM.Duration] expressed in seconds.
func (p PCM) Seconds() float64 { return p.Duration().Seconds() }

// Float32 converts mono PCM to samples in [-1, 1]. Multi-channel input is
// averaged per frame. A trailing odd byte is ignored.
func (p PCM) Float32() []float32 {
	ch := max(p.Channels, 1)
	frames := len(p.Data) / (bytesPerSample * ch)
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for c := range ch {
			idx := (i*ch + c) * bytesPerSample
			sum += float32(int16(binary.LittleEndian.Uint16(p.Data[idx:idx+2]))) / 32768.0
		}
		out[i] = sum / float32(ch)
	}
	return out
}

// RMS returns the root-mean-square energy of pcm in sample units (0-32767).
// It returns 0 for buffers shorter than one sample.
func RMS(pcm []byte) float64 {
	n := len(pcm) / bytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
