package viseme

import (
	"strings"
	"unicode/utf8"
)

// tieBar is the combining double inverted breve (U+0361) that may join the
// two halves of an affricate, as in "t͡ʃ".
const tieBar = "͡"

// rule is one entry in the classifier table. A rule fires when any of its
// patterns occurs as a substring of the lower-cased token.
type rule struct {
	patterns []string
	category Category
}

// rules is evaluated top to bottom and the first match wins. The order is
// part of the contract: diphthongs must shadow their single-vowel
// constituents and affricates must shadow the single consonants they are
// built from.
var rules = []rule{
	{[]string{"aɪ", "eɪ", "oʊ", "ɔɪ", "aʊ"}, O},
	{[]string{"iː"}, EE},
	{[]string{"θ", "ð"}, TH},
	{[]string{"t" + tieBar + "ʃ", "tʃ", "d" + tieBar + "ʒ", "dʒ", "tɕ", "dʑ", "ʃ", "ʒ", "ɕ"}, CHJSH},
	{[]string{"w"}, QW},
	{[]string{"l"}, L},
	{[]string{"ɹ", "r"}, R},
	{[]string{"b", "m", "p"}, BMP},
	{[]string{"i", "ɪ", "e", "ɛ", "æ", "a"}, AEI},
	{[]string{"u", "ʊ", "ɯ"}, U},
	{[]string{"o", "ɔ", "oʊ", "ʌ"}, O},
	{[]string{"k", "g", "ŋ", "t", "d", "n", "s", "z", "j", "x", "ç", "h"}, CORE},
}

// Classify returns the category of the first rule whose pattern occurs
// anywhere in token. Matching is case-insensitive. An empty or unrecognised
// token yields [Neutral].
func Classify(token string) Category {
	if token == "" {
		return Neutral
	}
	lower := strings.ToLower(token)
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(lower, p) {
				return r.category
			}
		}
	}
	return Neutral
}

// ClassifyToken classifies token as a whole and, when that yields [Neutral],
// retries on its phonetic sub-units (see [Units]) and returns the first
// non-neutral result.
func ClassifyToken(token string) Category {
	if c := Classify(token); c != Neutral {
		return c
	}
	for _, u := range Units(token) {
		if c := Classify(u); c != Neutral {
			return c
		}
	}
	return Neutral
}

// Groups tokenizes ipa on whitespace and classifies each token with
// [ClassifyToken]. Whitespace-only input yields an empty slice.
func Groups(ipa string) []Category {
	fields := strings.Fields(ipa)
	out := make([]Category, 0, len(fields))
	for _, f := range fields {
		out = append(out, ClassifyToken(f))
	}
	return out
}

// affricates are matched as atomic units during decomposition, longest
// spelling first.
var affricates = []string{
	"t" + tieBar + "ʃ", "tʃ",
	"d" + tieBar + "ʒ", "dʒ",
	"tɕ", "dʑ",
}

// Units splits token into phonetic sub-units, scanning left to right. At each
// position an affricate is taken as a single unit if one starts there;
// otherwise a maximal run of phonetic letters is taken. Characters that are
// neither are skipped. Units are lower-cased. If nothing is found the token
// itself is the only unit.
func Units(token string) []string {
	var units []string
	lower := strings.ToLower(token)
	for i := 0; i < len(lower); {
		if a, ok := affricateAt(lower, i); ok {
			units = append(units, a)
			i += len(a)
			continue
		}
		j := i
		for j < len(lower) {
			r, size := utf8.DecodeRuneInString(lower[j:])
			if !isPhoneticLetter(r) {
				break
			}
			j += size
		}
		if j > i {
			units = append(units, lower[i:j])
			i = j
			continue
		}
		_, size := utf8.DecodeRuneInString(lower[i:])
		i += size
	}
	if len(units) == 0 {
		return []string{token}
	}
	return units
}

func affricateAt(s string, i int) (string, bool) {
	for _, a := range affricates {
		if strings.HasPrefix(s[i:], a) {
			return a, true
		}
	}
	return "", false
}

// isPhoneticLetter reports whether r belongs to the letter class used for
// decomposition: ASCII a-z, the IPA extensions block from ɑ to ʒ, and a few
// symbols outside that range.
func isPhoneticLetter(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'ɑ' && r <= 'ʒ':
		return true
	}
	switch r {
	case 'ʃ', 'ɕ', 'ɯ', 'ʊ', 'ɔ', 'ɪ', 'ː', 'ʌ':
		return true
	}
	return false
}
