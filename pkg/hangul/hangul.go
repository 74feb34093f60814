// Package hangul converts Korean text to a broad IPA transcription and a
// Revised-Romanization-style spelling, one precomposed syllable at a time.
//
// Conversion is purely orthographic: each syllable is decomposed into its
// onset, nucleus and coda jamo and every jamo is looked up in a fixed table.
// Sound-change rules between syllables (liaison, nasalisation, tensing) are
// not applied, so the output follows the spelling rather than the
// pronunciation.
package hangul

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	syllableBase  = 0xAC00
	syllableLast  = 0xD7A3
	nucleusCount  = 21
	codaCount     = 28
	onsetStride   = nucleusCount * codaCount
	wordSeparator = " "
)

var onsets = [...]rune{
	'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ', 'ㅅ',
	'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

var nuclei = [...]rune{
	'ㅏ', 'ㅐ', 'ㅑ', 'ㅒ', 'ㅓ', 'ㅔ', 'ㅕ', 'ㅖ', 'ㅗ', 'ㅘ', 'ㅙ',
	'ㅚ', 'ㅛ', 'ㅜ', 'ㅝ', 'ㅞ', 'ㅟ', 'ㅠ', 'ㅡ', 'ㅢ', 'ㅣ',
}

// codas[0] is the empty coda.
var codas = [...]rune{
	0, 'ㄱ', 'ㄲ', 'ㄳ', 'ㄴ', 'ㄵ', 'ㄶ', 'ㄷ', 'ㄹ', 'ㄺ',
	'ㄻ', 'ㄼ', 'ㄽ', 'ㄾ', 'ㄿ', 'ㅀ', 'ㅁ', 'ㅂ', 'ㅄ', 'ㅅ',
	'ㅆ', 'ㅇ', 'ㅈ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

var onsetIPA = map[rune]string{
	'ㄱ': "k", 'ㄲ': "k͈", 'ㄴ': "n", 'ㄷ': "t", 'ㄸ': "t͈", 'ㄹ': "ɾ", 'ㅁ': "m",
	'ㅂ': "p", 'ㅃ': "p͈", 'ㅅ': "s", 'ㅆ': "s͈", 'ㅇ': "", 'ㅈ': "tɕ", 'ㅉ': "tɕ͈",
	'ㅊ': "tɕʰ", 'ㅋ': "kʰ", 'ㅌ': "tʰ", 'ㅍ': "pʰ", 'ㅎ': "h",
}

var nucleusIPA = map[rune]string{
	'ㅏ': "a", 'ㅐ': "ɛ", 'ㅑ': "ja", 'ㅒ': "jɛ", 'ㅓ': "ʌ", 'ㅔ': "e", 'ㅕ': "jʌ",
	'ㅖ': "je", 'ㅗ': "o", 'ㅘ': "wa", 'ㅙ': "wɛ", 'ㅚ': "we", 'ㅛ': "jo", 'ㅜ': "u",
	'ㅝ': "wʌ", 'ㅞ': "we", 'ㅟ': "wi", 'ㅠ': "ju", 'ㅡ': "ɯ", 'ㅢ': "ɰi", 'ㅣ': "i",
}

// Cluster codas use the consonant that surfaces before a pause.
var codaIPA = map[rune]string{
	'ㄱ': "k̚", 'ㄲ': "k̚", 'ㅋ': "k̚", 'ㄳ': "k̚", 'ㄺ': "k̚",
	'ㄴ': "n", 'ㄵ': "n", 'ㄶ': "n",
	'ㄷ': "t̚", 'ㅌ': "t̚", 'ㅅ': "t̚", 'ㅆ': "t̚", 'ㅈ': "t̚", 'ㅊ': "t̚", 'ㅎ': "t̚",
	'ㄹ': "l", 'ㄼ': "l", 'ㄽ': "l", 'ㄾ': "l", 'ㅀ': "l",
	'ㅁ': "m", 'ㄻ': "m",
	'ㅂ': "p̚", 'ㅍ': "p̚", 'ㅄ': "p̚", 'ㄿ': "p̚",
	'ㅇ': "ŋ",
}

var onsetRoman = map[rune]string{
	'ㄱ': "g", 'ㄲ': "kk", 'ㄴ': "n", 'ㄷ': "d", 'ㄸ': "tt", 'ㄹ': "r", 'ㅁ': "m",
	'ㅂ': "b", 'ㅃ': "pp", 'ㅅ': "s", 'ㅆ': "ss", 'ㅇ': "", 'ㅈ': "j", 'ㅉ': "jj",
	'ㅊ': "ch", 'ㅋ': "k", 'ㅌ': "t", 'ㅍ': "p", 'ㅎ': "h",
}

var nucleusRoman = map[rune]string{
	'ㅏ': "a", 'ㅐ': "ae", 'ㅑ': "ya", 'ㅒ': "yae", 'ㅓ': "eo", 'ㅔ': "e", 'ㅕ': "yeo",
	'ㅖ': "ye", 'ㅗ': "o", 'ㅘ': "wa", 'ㅙ': "wae", 'ㅚ': "oe", 'ㅛ': "yo", 'ㅜ': "u",
	'ㅝ': "wo", 'ㅞ': "we", 'ㅟ': "wi", 'ㅠ': "yu", 'ㅡ': "eu", 'ㅢ': "ui", 'ㅣ': "i",
}

var codaRoman = map[rune]string{
	'ㄱ': "k", 'ㄲ': "k", 'ㅋ': "k", 'ㄳ': "k", 'ㄺ': "k",
	'ㄴ': "n", 'ㄵ': "n", 'ㄶ': "n",
	'ㄷ': "t", 'ㅌ': "t", 'ㅅ': "t", 'ㅆ': "t", 'ㅈ': "t", 'ㅊ': "t", 'ㅎ': "t",
	'ㄹ': "l", 'ㄼ': "l", 'ㄽ': "l", 'ㄾ': "l", 'ㅀ': "l",
	'ㅁ': "m", 'ㄻ': "m",
	'ㅂ': "p", 'ㅍ': "p", 'ㅄ': "p", 'ㄿ': "p",
	'ㅇ': "ng",
}

// Syllable is the conversion of a single character.
type Syllable struct {
	Char  string `json:"char"`
	IPA   string `json:"ipa"`
	Roman string `json:"roman"`
}

// Result is the conversion of a whole text.
type Result struct {
	Original  string     `json:"original"`
	Phonetic  string     `json:"phonetic"`
	IPA       string     `json:"ipa"`
	Romanized string     `json:"romanized"`
	Syllables []Syllable `json:"syllables"`
}

// IsSyllable reports whether r is a precomposed Hangul syllable.
func IsSyllable(r rune) bool {
	return r >= syllableBase && r <= syllableLast
}

// Decompose splits a precomposed syllable into compatibility jamo. coda is 0
// for open syllables. ok is false when r is not a Hangul syllable.
func Decompose(r rune) (onset, nucleus, coda rune, ok bool) {
	if !IsSyllable(r) {
		return 0, 0, 0, false
	}
	idx := int(r - syllableBase)
	return onsets[idx/onsetStride], nuclei[(idx%onsetStride)/codaCount], codas[idx%codaCount], true
}

// MapSyllable returns the IPA and romanization of r. Characters that are not
// Hangul syllables map to themselves.
func MapSyllable(r rune) (ipa, roman string) {
	on, nu, co, ok := Decompose(r)
	if !ok {
		return string(r), string(r)
	}
	ipa = onsetIPA[on] + nucleusIPA[nu] + codaIPA[co]
	roman = onsetRoman[on] + nucleusRoman[nu] + codaRoman[co]
	return ipa, roman
}

// Convert transcribes text word by word. The input is NFC-normalised first,
// so decomposed jamo sequences are handled like precomposed syllables. Words
// are joined by single spaces in IPA and Romanized, and consecutive words are
// separated by a " " entry in Syllables.
func Convert(text string) Result {
	phonetic := strings.Join(strings.Fields(norm.NFC.String(text)), " ")

	res := Result{
		Original:  text,
		Phonetic:  phonetic,
		Syllables: []Syllable{},
	}
	words := strings.Fields(phonetic)
	ipaWords := make([]string, 0, len(words))
	romanWords := make([]string, 0, len(words))

	for i, w := range words {
		if i > 0 {
			res.Syllables = append(res.Syllables, Syllable{Char: wordSeparator, IPA: wordSeparator, Roman: wordSeparator})
		}
		var ipaB, romanB strings.Builder
		for _, r := range w {
			ipa, roman := MapSyllable(r)
			ipaB.WriteString(ipa)
			romanB.WriteString(roman)
			res.Syllables = append(res.Syllables, Syllable{Char: string(r), IPA: ipa, Roman: roman})
		}
		ipaWords = append(ipaWords, ipaB.String())
		romanWords = append(romanWords, romanB.String())
	}

	res.IPA = strings.Join(ipaWords, " ")
	res.Romanized = strings.Join(romanWords, " ")
	return res
}
