package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/MrWong99/mouthsync/internal/practice"
	"github.com/MrWong99/mouthsync/pkg/audio"
	"github.com/MrWong99/mouthsync/pkg/provider/stt"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

type sttResponse struct {
	RawText      string        `json:"rawText"`
	NormText     string        `json:"normText"`
	Words        []viseme.Span `json:"words"`
	Duration     float64       `json:"duration"`
	ProcessingMS int64         `json:"processing_ms"`
	Language     string        `json:"language"`
	Model        string        `json:"model"`
	Version      string        `json:"version"`
}

func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	pcm, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var wordTS bool
	switch ts := r.FormValue("timestamps"); ts {
	case "", "word":
		wordTS = true
	case "none":
	default:
		writeError(w, r, badRequest("timestamps must be \"word\" or \"none\", got %q", ts))
		return
	}

	start := s.now()
	tr, err := s.svc.Transcribe(r.Context(), practice.TranscribeRequest{
		Audio:          pcm,
		Language:       r.FormValue("language"),
		WordTimestamps: wordTS,
	})
	if err != nil {
		writeError(w, r, practiceError(err))
		return
	}
	elapsed := s.now().Sub(start)

	words := tr.Words
	if !wordTS {
		words = []viseme.Span{}
	}
	resp := sttResponse{
		RawText:      tr.RawText,
		NormText:     tr.NormText,
		Words:        words,
		Duration:     tr.Duration,
		ProcessingMS: elapsed.Milliseconds(),
		Language:     tr.Language,
		Model:        tr.Model,
		Version:      s.version,
	}
	if stt.AutoLanguage(resp.Language) {
		resp.Language = "auto"
	}
	if resp.Model == "" {
		resp.Model = "unknown"
	}
	writeJSON(w, http.StatusOK, resp)
}

// readUpload validates and decodes the "audio" part of a multipart request.
// Checks run in order: model readiness, declared size, media type, decoding.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (audio.PCM, error) {
	if err := s.checkReady(r.Context()); err != nil {
		return audio.PCM{}, err
	}
	if r.ContentLength > s.maxBytes {
		return audio.PCM{}, tooLarge("Payload exceeds %d bytes", s.maxBytes)
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return audio.PCM{}, tooLarge("Payload exceeds %d bytes", s.maxBytes)
		}
		return audio.PCM{}, badRequest("expected a multipart/form-data body: %v", err)
	}

	file, hdr, err := r.FormFile("audio")
	if err != nil {
		return audio.PCM{}, badRequest("missing form file %q", "audio")
	}
	defer file.Close()

	contentType := hdr.Header.Get("Content-Type")
	if !audio.Supported(contentType) {
		return audio.PCM{}, unsupportedMedia("Only webm/wav/m4a/mp4/aac supported", "")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return audio.PCM{}, badRequest("read audio: %v", err)
	}

	pcm, err := s.decoder.Decode(r.Context(), contentType, data)
	switch {
	case errors.Is(err, audio.ErrUnsupportedMedia):
		return audio.PCM{}, unsupportedMedia(err.Error(), "upload 16-bit PCM WAV or configure transcription.ffmpeg_path")
	case errors.Is(err, audio.ErrUnsupportedWAV):
		return audio.PCM{}, unsupportedMedia(err.Error(), "upload 16-bit PCM WAV")
	case err != nil:
		return audio.PCM{}, badRequest("could not decode audio: %v", err)
	}
	return pcm, nil
}

func (s *Server) checkReady(ctx context.Context) error {
	if s.ready == nil {
		return nil
	}
	if err := s.ready(ctx); err != nil {
		e := notReady("Model not loaded yet")
		e.Details = map[string]any{"reason": err.Error()}
		return e
	}
	return nil
}

// practiceError maps pipeline errors to API errors.
func practiceError(err error) error {
	switch {
	case errors.Is(err, practice.ErrTooLong):
		return tooLarge("%s", err.Error())
	case errors.Is(err, practice.ErrEmptyReference):
		return badRequest("reference_text must not be empty")
	case errors.Is(err, stt.ErrNotReady):
		return notReady("Model not loaded yet")
	default:
		return err
	}
}
