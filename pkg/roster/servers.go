package roster

import (
	"strings"
)

// Server is one canonical game server (the "location" of a character).
type Server struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Race string `json:"race"`
}

// PlaceholderLocation is the template text the party panel shows before it is filled in.
const PlaceholderLocation = "서버명"

// Servers is the canonical server table. Order matters: normalizer results follow it.
var Servers = []Server{
	{1001, "시엘", "elyos"},
	{1002, "네자칸", "elyos"},
	{1003, "바이젤", "elyos"},
	{1004, "카이시넬", "elyos"},
	{1005, "유스티엘", "elyos"},
	{1006, "아리엘", "elyos"},
	{1007, "프레기온", "elyos"},
	{1008, "메스람타에다", "elyos"},
	{1009, "히타니에", "elyos"},
	{1010, "나니아", "elyos"},
	{1011, "타하바타", "elyos"},
	{1012, "루터스", "elyos"},
	{1013, "페르노스", "elyos"},
	{1014, "다미누", "elyos"},
	{1015, "카사카", "elyos"},
	{1016, "바카르마", "elyos"},
	{1017, "챈가룽", "elyos"},
	{1018, "코치룽", "elyos"},
	{1019, "이슈타르", "elyos"},
	{1020, "티아마트", "elyos"},
	{1021, "포에타", "elyos"},
	{2001, "이스라펠", "asmodian"},
	{2002, "지켈", "asmodian"},
	{2003, "트리니엘", "asmodian"},
	{2004, "루미엘", "asmodian"},
	{2005, "마르쿠탄", "asmodian"},
	{2006, "아스펠", "asmodian"},
	{2007, "에레슈키갈", "asmodian"},
	{2008, "브리트라", "asmodian"},
	{2009, "네몬", "asmodian"},
	{2010, "하달", "asmodian"},
	{2011, "루드라", "asmodian"},
	{2012, "울고른", "asmodian"},
	{2013, "무닌", "asmodian"},
	{2014, "오다르", "asmodian"},
	{2015, "젠카카", "asmodian"},
	{2016, "크로메데", "asmodian"},
	{2017, "콰이링", "asmodian"},
	{2018, "바바룽", "asmodian"},
	{2019, "파프니르", "asmodian"},
	{2020, "인드나흐", "asmodian"},
	{2021, "이스할겐", "asmodian"},
}

// serverAliases maps truncations and misreads seen in party panels to canonical names.
// A key may map to several servers; callers must treat every target as possible.
var serverAliases = map[string][]string{
	"이스":   {"이슈타르"},
	"지켇":   {"지켈"},
	"지헬":   {"지켈"},
	"시앨":   {"시엘"},
	"카이시":  {"카이시넬"},
	"메스람":  {"메스람타에다"},
	"에레슈":  {"에레슈키갈"},
	"마르쿠":  {"마르쿠탄"},
	"루미앨":  {"루미엘"},
	"트리니":  {"트리니엘"},
	"유스티":  {"유스티엘"},
	"바카르":  {"바카르마"},
	"크로메":  {"크로메데"},
	"인드나":  {"인드나흐"},
	"파프니":  {"파프니르"},
	"이스라":  {"이스라펠"},
	"이스할":  {"이스할겐"},
	"프레기":  {"프레기온"},
	"히타니":  {"히타니에"},
	"타하바":  {"타하바타"},
	"티아마":  {"티아마트"},
	"에레슈키": {"에레슈키갈"},
}

// Normalizer maps a recognized location token to canonical server names.
type Normalizer struct {
	servers []Server
	byName  map[string]Server
	aliases map[string][]string
}

// NewNormalizer builds a normalizer over the given table; nil uses Servers.
func NewNormalizer(servers []Server) *Normalizer {
	if servers == nil {
		servers = Servers
	}
	n := &Normalizer{
		servers: servers,
		byName:  make(map[string]Server, len(servers)),
		aliases: serverAliases,
	}
	for _, s := range servers {
		n.byName[s.Name] = s
	}
	return n
}

// Lookup returns the canonical server by exact name.
func (n *Normalizer) Lookup(name string) (Server, bool) {
	s, ok := n.byName[strings.TrimSpace(name)]
	return s, ok
}

// IsLocationName reports whether tok is a canonical server name or a known alias.
func (n *Normalizer) IsLocationName(tok string) bool {
	if _, ok := n.byName[tok]; ok {
		return true
	}
	_, ok := n.aliases[tok]
	return ok || tok == PlaceholderLocation
}

// Normalize resolves a location token to zero or more canonical server names.
// Ties are returned in full, in table order.
func (n *Normalizer) Normalize(token string, pinned *Identity) []string {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return nil
	}
	if tok == PlaceholderLocation {
		if pinned != nil && pinned.Location != "" {
			return []string{pinned.Location}
		}
		return nil
	}
	if _, ok := n.byName[tok]; ok {
		return []string{tok}
	}
	if isNumeric(tok) || runeLen(tok) < 2 {
		return nil
	}

	hit := map[string]bool{}
	for _, name := range n.aliases[tok] {
		hit[name] = true
	}
	for _, s := range n.servers {
		// truncated token, or canonical name followed by OCR junk
		if strings.HasPrefix(s.Name, tok) || strings.HasPrefix(tok, s.Name) {
			hit[s.Name] = true
		}
	}
	if len(hit) == 0 {
		return nil
	}
	out := make([]string, 0, len(hit))
	for _, s := range n.servers {
		if hit[s.Name] {
			out = append(out, s.Name)
		}
	}
	return out
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func runeLen(s string) int {
	return len([]rune(s))
}
