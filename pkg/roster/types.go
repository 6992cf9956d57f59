package roster

// PartySize is the maximum number of members a party panel shows.
const PartySize = 4

// Identity is the user's own character, supplied per scan.
type Identity struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Entity is one character record returned by the directory.
// Loose payload fields are resolved into this shape by the directory adapters.
type Entity struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Server     string  `json:"server"`
	ServerID   int     `json:"server_id"`
	Level      int     `json:"level"`
	ClassName  string  `json:"class_name,omitempty"`
	PowerScore float64 `json:"power_score"`
	// Confidence is set by the source; the merged directory keeps the higher one per key.
	Confidence float64 `json:"-"`
}

// ParsedCandidate is a name+location pair pulled from OCR text before any lookup.
type ParsedCandidate struct {
	Name              string   `json:"name"`
	RawLocationToken  string   `json:"raw_location_token"`
	PossibleLocations []string `json:"possible_locations"`
	IsPinned          bool     `json:"is_pinned"`
}

// ServerCandidate is the outcome of one resolution attempt at one location.
type ServerCandidate struct {
	Location       string  `json:"location"`
	Found          bool    `json:"found"`
	Entity         *Entity `json:"entity,omitempty"`
	MatchedVariant string  `json:"matched_variant,omitempty"`
}

// SelectionKind says what the user is asked to choose.
type SelectionKind string

const (
	LocationChoice SelectionKind = "location"
	NameChoice     SelectionKind = "name"
)

// PendingSelection is an ambiguity waiting for a human decision.
type PendingSelection struct {
	SlotIndex        int               `json:"slot_index"`
	OriginalName     string            `json:"original_name"`
	RawLocationToken string            `json:"raw_location_token"`
	Kind             SelectionKind     `json:"kind"`
	Options          []ServerCandidate `json:"options"`
}

// RosterEntry is the per-slot state of one party member.
type RosterEntry struct {
	SlotIndex      int     `json:"slot_index"`
	Name           string  `json:"name"`
	Location       string  `json:"location"`
	EntityID       string  `json:"entity_id,omitempty"`
	PowerScore     float64 `json:"power_score"`
	Level          int     `json:"level"`
	ClassName      string  `json:"class_name,omitempty"`
	MatchedVariant string  `json:"matched_variant,omitempty"`
	IsPinned       bool    `json:"is_pinned"`
	IsTopScorer    bool    `json:"is_top_scorer"`
	Resolved       bool    `json:"resolved"`
}

// Grade is the party tier derived from mean power.
type Grade string

const (
	GradeD Grade = "D"
	GradeC Grade = "C"
	GradeB Grade = "B"
	GradeA Grade = "A"
	GradeS Grade = "S"
)

// RosterSummary is the derived view of a scan. It is rebuilt from entries on every read.
type RosterSummary struct {
	Entries           []RosterEntry      `json:"entries"`
	TotalPower        float64            `json:"total_power"`
	Grade             Grade              `json:"grade"`
	PendingSelections []PendingSelection `json:"pending_selections"`
}

// clone copies the selection including the entities behind its options.
func (p PendingSelection) clone() PendingSelection {
	opts := make([]ServerCandidate, len(p.Options))
	for i, o := range p.Options {
		if o.Entity != nil {
			e := *o.Entity
			o.Entity = &e
		}
		opts[i] = o
	}
	p.Options = opts
	return p
}

// apply copies the entity-derived fields of e into the entry.
func (r *RosterEntry) apply(location string, e Entity) {
	r.Name = e.Name
	r.Location = location
	r.EntityID = e.ID
	r.PowerScore = e.PowerScore
	r.Level = e.Level
	r.ClassName = e.ClassName
	r.Resolved = true
}
