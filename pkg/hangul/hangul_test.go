package hangul_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/mouthsync/pkg/hangul"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

func TestDecompose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		r                    rune
		onset, nucleus, coda rune
	}{
		{'가', 'ㄱ', 'ㅏ', 0},
		{'저', 'ㅈ', 'ㅓ', 0},
		{'학', 'ㅎ', 'ㅏ', 'ㄱ'},
		{'생', 'ㅅ', 'ㅐ', 'ㅇ'},
		{'닭', 'ㄷ', 'ㅏ', 'ㄺ'},
		{'힣', 'ㅎ', 'ㅣ', 'ㅎ'},
	}
	for _, tt := range tests {
		on, nu, co, ok := hangul.Decompose(tt.r)
		if !ok || on != tt.onset || nu != tt.nucleus || co != tt.coda {
			t.Errorf("Decompose(%q) = (%q, %q, %q, %v), want (%q, %q, %q, true)",
				tt.r, on, nu, co, ok, tt.onset, tt.nucleus, tt.coda)
		}
	}
	if _, _, _, ok := hangul.Decompose('a'); ok {
		t.Error("Decompose('a'): ok = true, want false")
	}
}

func TestMapSyllable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		r         rune
		ipa, roma string
	}{
		{'저', "tɕʌ", "jeo"},
		{'는', "nɯn", "neun"},
		{'학', "hak̚", "hak"},
		{'생', "sɛŋ", "saeng"},
		{'입', "ip̚", "ip"},
		{'의', "ɰi", "ui"},
		{'쌍', "s͈aŋ", "ssang"},
		{'닭', "tak̚", "dak"},
		{'.', ".", "."},
	}
	for _, tt := range tests {
		ipa, roma := hangul.MapSyllable(tt.r)
		if ipa != tt.ipa || roma != tt.roma {
			t.Errorf("MapSyllable(%q) = (%q, %q), want (%q, %q)", tt.r, ipa, roma, tt.ipa, tt.roma)
		}
	}
}

func TestConvert(t *testing.T) {
	t.Parallel()

	got := hangul.Convert("  저는   학생")
	want := hangul.Result{
		Original:  "  저는   학생",
		Phonetic:  "저는 학생",
		IPA:       "tɕʌnɯn hak̚sɛŋ",
		Romanized: "jeoneun haksaeng",
		Syllables: []hangul.Syllable{
			{Char: "저", IPA: "tɕʌ", Roman: "jeo"},
			{Char: "는", IPA: "nɯn", Roman: "neun"},
			{Char: " ", IPA: " ", Roman: " "},
			{Char: "학", IPA: "hak̚", Roman: "hak"},
			{Char: "생", IPA: "sɛŋ", Roman: "saeng"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Convert() mismatch (-want +got):\n%s", diff)
	}
}

func TestConvert_NormalizesDecomposedInput(t *testing.T) {
	t.Parallel()

	nfd := norm.NFD.String("한국")
	if nfd == "한국" {
		t.Fatal("test setup: NFD form equals NFC form")
	}
	if got, want := hangul.Convert(nfd).IPA, hangul.Convert("한국").IPA; got != want {
		t.Errorf("Convert(NFD).IPA = %q, want %q", got, want)
	}
}

func TestConvert_Empty(t *testing.T) {
	t.Parallel()

	got := hangul.Convert("   ")
	if got.IPA != "" || got.Romanized != "" || len(got.Syllables) != 0 {
		t.Errorf("Convert(blank) = %+v, want empty transcription", got)
	}
}

func TestConvert_FeedsVisemeEngine(t *testing.T) {
	t.Parallel()

	ipa := hangul.Convert("저는 학생입니다").IPA
	groups := viseme.Groups(ipa)
	want := []viseme.Category{viseme.CHJSH, viseme.BMP}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Errorf("Groups(%q) mismatch (-want +got):\n%s", ipa, diff)
	}
}
