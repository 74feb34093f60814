package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/mouthsync/internal/pronounce"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const wordsJSON = `[{"word":"마","start":0,"end":1},{"word":"로","start":1,"end":2}]`

func TestTokenizeCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "tokenize", "  ma\tlo  θɪŋk ")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if diff := cmp.Diff("ma\nlo\nθɪŋk\n", out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "classify", "ma", "θɪŋk")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2:\n%s", len(lines), out)
	}
	if f := strings.Fields(lines[1]); f[0] != "ma" || f[1] != string(viseme.BMP) {
		t.Errorf("row 1 = %q", lines[1])
	}
	if f := strings.Fields(lines[2]); f[0] != "θɪŋk" || f[1] != string(viseme.TH) {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestClassifyCmd_RequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := execute(t, "", "classify"); err == nil {
		t.Error("expected an error without tokens")
	}
}

func TestFrameCmd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "words.json")
	if err := os.WriteFile(path, []byte(wordsJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "frame", "--ipa", "ma lo", "--words", path, "--t", "1.5")
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	var got viseme.Frame
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	want := viseme.New().FrameAt(viseme.Transcription{"ma", "lo"}, []viseme.Span{
		{Text: "마", Start: 0, End: 1},
		{Text: "로", Start: 1, End: 2},
	}, viseme.At(1.5))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameCmd_UnknownClockFromStdin(t *testing.T) {
	t.Parallel()

	out, err := execute(t, wordsJSON, "frame", "--ipa", "ma lo", "--words", "-")
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	var got viseme.Frame
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SpanIndex != -1 || got.Token != "ma" {
		t.Errorf("frame = %+v, want the idle frame on the first token", got)
	}
}

func TestFrameCmd_Errors(t *testing.T) {
	t.Parallel()

	if _, err := execute(t, "", "frame", "--t", "1"); err == nil {
		t.Error("missing --ipa: expected error")
	}
	if _, err := execute(t, "not json", "frame", "--ipa", "ma", "--words", "-"); err == nil {
		t.Error("bad words: expected error")
	}
	if _, err := execute(t, "", "frame", "--ipa", "ma", "--words", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing words file: expected error")
	}
}

func TestTimelineCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, wordsJSON, "timeline", "--ipa", "ma lo", "--words", "-", "--fps", "2")
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	var frames []viseme.Frame
	if err := json.Unmarshal([]byte(out), &frames); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("got %d frames, want 5", len(frames))
	}
	if frames[2].Time != 1 || frames[2].Word != "로" {
		t.Errorf("frame 2 = %+v, want 로 at t=1", frames[2])
	}

	if _, err := execute(t, "", "timeline", "--ipa", "ma", "--fps", "-1"); err == nil {
		t.Error("negative fps: expected error")
	}
}

func TestIPACmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "ipa", "저는", "학생")
	if err != nil {
		t.Fatalf("ipa: %v", err)
	}
	var got struct {
		IPA       string `json:"ipa"`
		Romanized string `json:"romanized"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.IPA != "tɕʌnɯn hak̚sɛŋ" || got.Romanized != "jeoneun haksaeng" {
		t.Errorf("got %+v", got)
	}
}

func TestEvalCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "eval",
		"--reference", "안녕하세요", "--recognized", "안녕하세요", "--duration", "1.25")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	var got pronounce.Evaluation
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Report.Accuracy != 100 {
		t.Errorf("accuracy = %v, want 100", got.Report.Accuracy)
	}
	if got.AIFeedback.Source != pronounce.SourceRules {
		t.Errorf("source = %q, want rules", got.AIFeedback.Source)
	}

	if _, err := execute(t, "", "eval", "--reference", "a", "--recognized", "a", "--duration", "-1"); err == nil {
		t.Error("negative duration: expected error")
	}
}
