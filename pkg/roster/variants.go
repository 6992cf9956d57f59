package roster

import (
	"golang.org/x/text/unicode/norm"
)

// Jamo orders used by Unicode for conjoining leading consonants (U+1100..) and vowels (U+1161..).
var (
	leadOrder  = []rune("ㄱㄲㄴㄷㄸㄹㅁㅂㅃㅅㅆㅇㅈㅉㅊㅋㅌㅍㅎ")
	vowelOrder = []rune("ㅏㅐㅑㅒㅓㅔㅕㅖㅗㅘㅙㅚㅛㅜㅝㅞㅟㅠㅡㅢㅣ")
)

const (
	conjoiningLeadBase  = 0x1100
	conjoiningVowelBase = 0x1161
	// more matching positions than this only explores the first ones
	maxSwapPositions = 6
)

// vowelConfusions are medial vowels the party panel font makes hard to tell apart.
var vowelConfusions = [][2]rune{
	{'ㅐ', 'ㅔ'},
	{'ㅒ', 'ㅖ'},
	{'ㅏ', 'ㅑ'},
	{'ㅓ', 'ㅕ'},
	{'ㅗ', 'ㅛ'},
	{'ㅜ', 'ㅠ'},
	{'ㅚ', 'ㅙ'},
	{'ㅢ', 'ㅣ'},
}

// consonantConfusions are leading consonants misread at small font sizes.
var consonantConfusions = [][2]rune{
	{'ㄱ', 'ㄲ'},
	{'ㄷ', 'ㄸ'},
	{'ㅂ', 'ㅃ'},
	{'ㅅ', 'ㅆ'},
	{'ㅈ', 'ㅉ'},
	{'ㅎ', 'ㅋ'},
	{'ㅋ', 'ㅌ'},
	{'ㅇ', 'ㅁ'},
}

// syllable is a decomposed Hangul syllable. Non-Hangul runes keep raw and ok=false.
type syllable struct {
	raw  rune
	ok   bool
	jamo []rune // conjoining lead, vowel, optional tail
}

func isHangulSyllable(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

func decompose(name string) []syllable {
	rs := []rune(name)
	out := make([]syllable, len(rs))
	for i, r := range rs {
		out[i] = syllable{raw: r}
		if !isHangulSyllable(r) {
			continue
		}
		j := []rune(norm.NFD.String(string(r)))
		if len(j) < 2 {
			continue
		}
		out[i].ok = true
		out[i].jamo = j
	}
	return out
}

func compose(syls []syllable) string {
	rs := make([]rune, 0, len(syls)*3)
	for _, s := range syls {
		if s.ok {
			rs = append(rs, s.jamo...)
		} else {
			rs = append(rs, s.raw)
		}
	}
	return norm.NFC.String(string(rs))
}

func conjoining(order []rune, base int, compat rune) rune {
	for i, r := range order {
		if r == compat {
			return rune(base + i)
		}
	}
	return 0
}

// GenerateVariants returns alternate spellings of name for the known recognition confusions.
// Every variant has the same rune length as name; the original is never included.
// The result is deterministic for a given input.
func GenerateVariants(name string) []string {
	syls := decompose(name)
	want := len(syls)
	seen := map[string]bool{name: true}
	var out []string
	add := func(v string) {
		if seen[v] || runeLen(v) != want {
			return
		}
		seen[v] = true
		out = append(out, v)
	}
	for _, p := range vowelConfusions {
		a := conjoining(vowelOrder, conjoiningVowelBase, p[0])
		b := conjoining(vowelOrder, conjoiningVowelBase, p[1])
		for _, v := range swapFamily(syls, 1, a, b) {
			add(v)
		}
	}
	for _, p := range consonantConfusions {
		a := conjoining(leadOrder, conjoiningLeadBase, p[0])
		b := conjoining(leadOrder, conjoiningLeadBase, p[1])
		for _, v := range swapFamily(syls, 0, a, b) {
			add(v)
		}
	}
	return out
}

// swapFamily toggles component slot between a and b at every combination of matching positions.
func swapFamily(syls []syllable, slot int, a, b rune) []string {
	var pos []int
	for i, s := range syls {
		if !s.ok {
			continue
		}
		if c := s.jamo[slot]; c == a || c == b {
			pos = append(pos, i)
		}
	}
	if len(pos) == 0 {
		return nil
	}
	if len(pos) > maxSwapPositions {
		pos = pos[:maxSwapPositions]
	}
	var out []string
	for mask := 1; mask < 1<<len(pos); mask++ {
		work := cloneSyllables(syls)
		for bit, i := range pos {
			if mask&(1<<bit) == 0 {
				continue
			}
			if work[i].jamo[slot] == a {
				work[i].jamo[slot] = b
			} else {
				work[i].jamo[slot] = a
			}
		}
		out = append(out, compose(work))
	}
	return out
}

func cloneSyllables(in []syllable) []syllable {
	out := make([]syllable, len(in))
	for i, s := range in {
		out[i] = s
		if s.jamo != nil {
			out[i].jamo = append([]rune(nil), s.jamo...)
		}
	}
	return out
}
