package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// ErrUnsupportedWAV is returned by [DecodeWAV] for WAV files that are not
// 16-bit integer PCM.
var ErrUnsupportedWAV = errors.New("audio: unsupported WAV encoding")

// EncodeWAV wraps 16-bit PCM in a canonical 44-byte RIFF/WAVE header.
func EncodeWAV(p PCM) []byte {
	byteRate := p.SampleRate * p.Channels * bytesPerSample
	blockAlign := p.Channels * bytesPerSample
	dataSize := len(p.Data)

	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(p.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(p.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], 8*bytesPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], p.Data)

	return buf
}

// DecodeWAV parses a RIFF/WAVE file holding 16-bit integer PCM. Chunks other
// than "fmt " and "data" are skipped. A data chunk whose declared size runs
// past the end of the file (common for streamed recordings) is truncated to
// what is present.
func DecodeWAV(b []byte) (PCM, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return PCM{}, errors.New("audio: not a RIFF/WAVE file")
	}

	var (
		f       Format
		haveFmt bool
	)
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(b) {
				return PCM{}, errors.New("audio: truncated fmt chunk")
			}
			tag := binary.LittleEndian.Uint16(b[body : body+2])
			f.Channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(b[body+14 : body+16])
			if (tag != wavFormatPCM && tag != wavFormatExtensible) || bits != 16 {
				return PCM{}, fmt.Errorf("%w: format tag %#x, %d bits", ErrUnsupportedWAV, tag, bits)
			}
			if f.Channels <= 0 || f.SampleRate <= 0 {
				return PCM{}, fmt.Errorf("%w: %s", ErrUnsupportedWAV, f)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return PCM{}, errors.New("audio: data chunk before fmt chunk")
			}
			end := min(body+size, len(b))
			data := b[body:end]
			data = data[:len(data)-len(data)%(bytesPerSample*f.Channels)]
			return PCM{Data: data, Format: f}, nil
		}

		// Chunks are word-aligned.
		next := body + size + size%2
		if next <= off {
			break
		}
		off = next
	}
	return PCM{}, errors.New("audio: no data chunk")
}
