package viseme_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/mouthsync/pkg/viseme"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  viseme.Category
	}{
		{"", viseme.Neutral},
		{"oʊ", viseme.O},
		{"koʊ", viseme.O},
		{"aɪ", viseme.O},
		{"siː", viseme.EE},
		{"θɪŋk", viseme.TH},
		{"ðə", viseme.TH},
		{"tɕʌ", viseme.CHJSH},
		{"t͡ʃ", viseme.CHJSH},
		{"ʃi", viseme.CHJSH},
		{"wa", viseme.QW},
		{"la", viseme.L},
		{"ɹɛd", viseme.R},
		{"ma", viseme.BMP},
		{"im", viseme.BMP},
		{"hak", viseme.AEI},
		{"s͈ɛŋ", viseme.AEI},
		{"nɯn", viseme.U},
		{"ʊ", viseme.U},
		{"ʌ", viseme.O},
		{"ŋ", viseme.CORE},
		{"k̚", viseme.CORE},
		{"ʔ", viseme.Neutral},
		{"ɾ", viseme.Neutral},
		{"f", viseme.Neutral},
		{"?!", viseme.Neutral},
	}
	for _, tt := range tests {
		if got := viseme.Classify(tt.token); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.token, got, tt.want)
		}
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"M", "Ma", "MA"} {
		if got := viseme.Classify(tok); got != viseme.BMP {
			t.Errorf("Classify(%q) = %s, want %s", tok, got, viseme.BMP)
		}
	}
	if got := viseme.Classify("W"); got != viseme.QW {
		t.Errorf("Classify(%q) = %s, want %s", "W", got, viseme.QW)
	}
}

func TestClassify_DiphthongBeatsSingleVowel(t *testing.T) {
	t.Parallel()

	// "eɪ" contains the single vowel "e", which alone would be AEI.
	if got := viseme.Classify("e"); got != viseme.AEI {
		t.Fatalf("Classify(%q) = %s, want %s", "e", got, viseme.AEI)
	}
	if got := viseme.Classify("eɪ"); got != viseme.O {
		t.Errorf("Classify(%q) = %s, want %s", "eɪ", got, viseme.O)
	}
}

func TestClassify_AffricateBeatsConstituents(t *testing.T) {
	t.Parallel()

	// "t" alone is CORE; "tɕ" must win as an affricate.
	if got := viseme.Classify("t"); got != viseme.CORE {
		t.Fatalf("Classify(%q) = %s, want %s", "t", got, viseme.CORE)
	}
	if got := viseme.Classify("tɕ"); got != viseme.CHJSH {
		t.Errorf("Classify(%q) = %s, want %s", "tɕ", got, viseme.CHJSH)
	}
}

func TestClassifyToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  viseme.Category
	}{
		{"tɕʌ", viseme.CHJSH},
		{"d͡ʒʌmp", viseme.CHJSH},
		{"ʔ", viseme.Neutral},
		{"", viseme.Neutral},
		{"  ", viseme.Neutral},
		{"ʔa", viseme.AEI},
	}
	for _, tt := range tests {
		if got := viseme.ClassifyToken(tt.token); got != tt.want {
			t.Errorf("ClassifyToken(%q) = %s, want %s", tt.token, got, tt.want)
		}
	}
}

func TestUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  []string
	}{
		{"tɕʌ", []string{"tɕ", "ʌ"}},
		{"t͡ʃa", []string{"t͡ʃ", "a"}},
		{"a.b", []string{"a", "b"}},
		{"k̚", []string{"k"}},
		{"ʔ", []string{"ʔ"}},
		{"", []string{""}},
		{"HAK", []string{"hak"}},
	}
	for _, tt := range tests {
		if got := viseme.Units(tt.token); !slices.Equal(got, tt.want) {
			t.Errorf("Units(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestGroups(t *testing.T) {
	t.Parallel()

	got := viseme.Groups("tɕʌ nɯn hak s͈ɛŋ im ni da")
	want := []viseme.Category{
		viseme.CHJSH, viseme.U, viseme.AEI, viseme.AEI, viseme.BMP, viseme.AEI, viseme.AEI,
	}
	if !slices.Equal(got, want) {
		t.Errorf("Groups() = %v, want %v", got, want)
	}
	if got := viseme.Groups("   "); len(got) != 0 {
		t.Errorf("Groups(whitespace) = %v, want empty", got)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"tɕʌ", "oʊ", "ʔ", "", "hak"} {
		a, b := viseme.ClassifyToken(tok), viseme.ClassifyToken(tok)
		if a != b {
			t.Errorf("ClassifyToken(%q) not stable: %s then %s", tok, a, b)
		}
	}
}

func FuzzClassifyToken(f *testing.F) {
	for _, seed := range []string{"", " ", "tɕʌ", "oʊ", "\xff", "t͡", "ʔʔʔ", "ABC"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		if c := viseme.Classify(s); !c.Valid() {
			t.Errorf("Classify(%q) = %q, not a known category", s, c)
		}
		if c := viseme.ClassifyToken(s); !c.Valid() {
			t.Errorf("ClassifyToken(%q) = %q, not a known category", s, c)
		}
		if len(viseme.Tokenize(s)) == 0 {
			t.Errorf("Tokenize(%q) returned no tokens", s)
		}
	})
}
