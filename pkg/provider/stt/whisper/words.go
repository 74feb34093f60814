package whisper

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MrWong99/mouthsync/pkg/provider/stt"
)

// splitSegment divides a segment's text into whitespace-separated words and
// assigns each a share of [start, end) proportional to its length in runes.
func splitSegment(text string, start, end time.Duration) []stt.Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	total := 0
	for _, f := range fields {
		total += utf8.RuneCountInString(f)
	}
	span := end - start
	if span < 0 {
		span = 0
	}

	out := make([]stt.Word, 0, len(fields))
	cursor := start
	seen := 0
	for i, f := range fields {
		seen += utf8.RuneCountInString(f)
		wEnd := start + time.Duration(int64(span)*int64(seen)/int64(total))
		if i == len(fields)-1 {
			wEnd = start + span
		}
		out = append(out, stt.Word{Word: f, Start: cursor, End: wEnd})
		cursor = wEnd
	}
	return out
}

// piece is one decoded text token with its timing.
type piece struct {
	text       string
	start, end time.Duration
	p          float64
}

// mergePieces joins sub-word tokens into words. A token that begins with a
// space starts a new word; any other token extends the current one. Word
// confidence is the mean of its token probabilities.
func mergePieces(pieces []piece) []stt.Word {
	var (
		out   []stt.Word
		cur   strings.Builder
		first piece
		last  piece
		psum  float64
		n     int
	)
	flush := func() {
		word := strings.TrimSpace(cur.String())
		if word != "" {
			out = append(out, stt.Word{
				Word:       word,
				Start:      first.start,
				End:        last.end,
				Confidence: psum / float64(n),
			})
		}
		cur.Reset()
		psum, n = 0, 0
	}
	for _, pc := range pieces {
		if strings.HasPrefix(pc.text, " ") && cur.Len() > 0 {
			flush()
		}
		if cur.Len() == 0 {
			first = pc
		}
		cur.WriteString(pc.text)
		last = pc
		psum += pc.p
		n++
	}
	if cur.Len() > 0 {
		flush()
	}
	return out
}
