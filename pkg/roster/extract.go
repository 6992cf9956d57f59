package roster

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// bracketRE matches `name[location]`; OCR often renders the brackets as full-width or round ones.
var bracketRE = regexp.MustCompile(`([가-힣a-zA-Z0-9]+)\s*[\[［(]\s*([가-힣a-zA-Z0-9]+)\s*[\]］)]`)

var (
	nameCleanRE = regexp.MustCompile(`[^a-zA-Z0-9가-힣]`)
	levelRE     = regexp.MustCompile(`(?i)^lv\.?\d*$`)
)

// statusWords are party panel labels that look like names but never are.
var statusWords = map[string]bool{
	"준비":   true,
	"완료":   true,
	"준비완료": true,
	"준비중":  true,
	"대기":   true,
	"대기중":  true,
	"파티":   true,
	"파티원":  true,
	"파티장":  true,
	"레벨":   true,
	"오프라인": true,
	"온라인":  true,
	"전투력":  true,
}

// cleanName strips everything except Latin letters, digits and Hangul syllables.
func cleanName(s string) string {
	return nameCleanRE.ReplaceAllString(s, "")
}

// flatten joins OCR lines into one space separated string.
func flatten(text string) string {
	text = norm.NFKC.String(text)
	// NFKC folds full-width brackets; keep the regex tolerant anyway
	return strings.Join(strings.Fields(text), " ")
}

// Extract turns raw OCR text into at most PartySize candidates. The pinned identity,
// when present, is always candidate 0 and is never emitted again from the text.
func Extract(text string, pinned *Identity, n *Normalizer) []ParsedCandidate {
	if n == nil {
		n = NewNormalizer(nil)
	}
	var out []ParsedCandidate
	seen := map[string]bool{}

	if pinned != nil && pinned.Name != "" {
		out = append(out, ParsedCandidate{
			Name:              pinned.Name,
			RawLocationToken:  pinned.Location,
			PossibleLocations: []string{pinned.Location},
			IsPinned:          true,
		})
		seen[pinned.Name] = true
	}

	flat := flatten(text)
	for _, m := range bracketRE.FindAllStringSubmatch(flat, -1) {
		if len(out) >= PartySize {
			break
		}
		name := cleanName(m[1])
		loc := strings.TrimSpace(m[2])
		if isNumeric(loc) || runeLen(loc) < 2 {
			continue
		}
		if runeLen(name) < 2 || isNumeric(name) || seen[name] {
			continue
		}
		var locs []string
		if loc == PlaceholderLocation && pinned != nil {
			locs = []string{pinned.Location}
		} else {
			locs = n.Normalize(loc, pinned)
		}
		out = append(out, ParsedCandidate{
			Name:              name,
			RawLocationToken:  loc,
			PossibleLocations: locs,
		})
		seen[name] = true
	}

	if pinned != nil && pinned.Name != "" && len(out) < PartySize {
		rest := bracketRE.ReplaceAllString(flat, " ")
		for _, tok := range strings.Fields(rest) {
			if len(out) >= PartySize {
				break
			}
			name := cleanName(tok)
			if !isBareName(name, n) || seen[name] {
				continue
			}
			out = append(out, ParsedCandidate{
				Name:              name,
				RawLocationToken:  pinned.Location,
				PossibleLocations: []string{pinned.Location},
			})
			seen[name] = true
		}
	}

	if len(out) > PartySize {
		out = out[:PartySize]
	}
	return out
}

func isBareName(name string, n *Normalizer) bool {
	if runeLen(name) < 2 || isNumeric(name) {
		return false
	}
	if statusWords[name] || levelRE.MatchString(name) {
		return false
	}
	if n.IsLocationName(name) {
		return false
	}
	hasLetter := false
	for _, r := range name {
		if r < '0' || r > '9' {
			hasLetter = true
			break
		}
	}
	return hasLetter
}
