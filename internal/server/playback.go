package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/mouthsync/internal/observe"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

const playbackWriteTimeout = 5 * time.Second

// playbackMessage is one client message on /playback. A message carrying
// ipa or words loads a new session; t and seek move the clock.
type playbackMessage struct {
	IPA   *string       `json:"ipa"`
	Words []viseme.Span `json:"words"`
	T     *float64      `json:"t"`
	Seek  *int          `json:"seek"`
}

// playbackSession is the transcription a connection plays against. It is
// replaced on reload, never mutated.
type playbackSession struct {
	tr    viseme.Transcription
	spans []viseme.Span
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		observe.Logger(r.Context()).Debug("server: playback upgrade failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	log := observe.Logger(ctx)
	s.metrics.PlaybackSessions.Add(ctx, 1)
	defer s.metrics.PlaybackSessions.Add(context.WithoutCancel(ctx), -1)

	var sess *playbackSession
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if !errors.Is(err, context.Canceled) {
					log.Debug("server: playback read", "err", err)
				}
			}
			return
		}

		var reply any
		if typ != websocket.MessageText {
			reply = errorEnvelope{Error: badRequest("playback messages must be JSON text")}
		} else {
			next, f, err := s.playbackStep(sess, data)
			if err != nil {
				var apiErr *Error
				if !errors.As(err, &apiErr) {
					apiErr = serverError(err)
				}
				reply = errorEnvelope{Error: apiErr}
			} else {
				sess = next
				s.metrics.RecordFrame(ctx, f.Category.String())
				reply = f
			}
		}

		if err := writeWS(ctx, conn, reply); err != nil {
			log.Debug("server: playback write", "err", err)
			return
		}
	}
}

// playbackStep applies one client message to sess and resolves the frame to
// send back.
func (s *Server) playbackStep(sess *playbackSession, data []byte) (*playbackSession, viseme.Frame, error) {
	var msg playbackMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return sess, viseme.Frame{}, badRequest("invalid playback message: %v", err)
	}

	loaded := msg.IPA != nil || msg.Words != nil
	if loaded {
		var ipa string
		if msg.IPA != nil {
			ipa = *msg.IPA
		}
		sess = &playbackSession{tr: viseme.Tokenize(ipa), spans: slices.Clone(msg.Words)}
	}
	if sess == nil {
		return nil, viseme.Frame{}, badRequest(`load a session with {"ipa","words"} first`)
	}

	var clock viseme.Clock
	switch {
	case msg.Seek != nil:
		clock = viseme.At(viseme.SeekTime(sess.spans, *msg.Seek))
	case msg.T != nil:
		clock = viseme.At(*msg.T)
	case !loaded:
		return sess, viseme.Frame{}, badRequest(`playback message needs "t" or "seek"`)
	}
	return sess, s.engine.FrameAt(sess.tr, sess.spans, clock), nil
}

func writeWS(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, playbackWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// originPatterns turns the CORS origins into the host patterns the
// websocket handshake checks.
func (s *Server) originPatterns() []string {
	if s.cors == nil {
		return nil
	}
	origins := s.cors.Origins()
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
