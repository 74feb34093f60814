package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"os/exec"
	"strconv"
	"strings"
)

// ErrUnsupportedMedia is returned for MIME types the service does not accept,
// or for compressed containers when no transcoder is configured.
var ErrUnsupportedMedia = errors.New("audio: unsupported media type")

var supportedMIME = map[string]bool{
	"audio/webm":  true,
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/m4a":   true,
	"audio/mp4":   true,
	"audio/aac":   true,
}

// MediaType strips parameters such as "codecs=opus" from a Content-Type and
// lower-cases the result.
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// Supported reports whether contentType names an accepted recording format.
func Supported(contentType string) bool {
	return supportedMIME[MediaType(contentType)]
}

// IsWAV reports whether contentType is a WAV media type.
func IsWAV(contentType string) bool {
	mt := MediaType(contentType)
	return mt == "audio/wav" || mt == "audio/x-wav"
}

// Transcoder turns a compressed recording into 16 kHz mono WAV by running
// ffmpeg. The zero value is unusable; see [NewTranscoder].
type Transcoder struct {
	ffmpeg string
	target Format
}

// NewTranscoder returns a Transcoder that invokes the ffmpeg binary at path.
func NewTranscoder(path string) *Transcoder {
	return &Transcoder{ffmpeg: path, target: SpeechFormat}
}

// Transcode pipes src through ffmpeg and decodes the resulting WAV.
func (t *Transcoder) Transcode(ctx context.Context, src []byte) (PCM, error) {
	cmd := exec.CommandContext(ctx, t.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ac", strconv.Itoa(t.target.Channels),
		"-ar", strconv.Itoa(t.target.SampleRate),
		"-f", "wav", "pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return PCM{}, fmt.Errorf("audio: ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return DecodeWAV(stdout.Bytes())
}

// Decoder turns an uploaded recording into PCM in [SpeechFormat]. WAV is
// decoded in-process; other supported types go through the transcoder when
// one is configured.
type Decoder struct {
	transcoder *Transcoder
}

// NewDecoder returns a Decoder. A nil transcoder limits it to WAV input.
func NewDecoder(t *Transcoder) *Decoder {
	return &Decoder{transcoder: t}
}

// Decode returns the recording as 16 kHz mono PCM.
func (d *Decoder) Decode(ctx context.Context, contentType string, src []byte) (PCM, error) {
	if !Supported(contentType) {
		return PCM{}, fmt.Errorf("%w: %q", ErrUnsupportedMedia, contentType)
	}
	var (
		p   PCM
		err error
	)
	switch {
	case IsWAV(contentType):
		p, err = DecodeWAV(src)
	case d.transcoder != nil:
		p, err = d.transcoder.Transcode(ctx, src)
	default:
		return PCM{}, fmt.Errorf("%w: %q requires ffmpeg", ErrUnsupportedMedia, MediaType(contentType))
	}
	if err != nil {
		return PCM{}, err
	}
	return Convert(p, SpeechFormat)
}
