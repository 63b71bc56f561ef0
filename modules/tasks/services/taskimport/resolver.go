package taskimport

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
)

type Confidence string

const (
	ConfidenceExact  Confidence = "exact"
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	// ConfidenceLow marks an ambiguous lookup: several candidates, no winner.
	ConfidenceLow  Confidence = "low"
	ConfidenceNone Confidence = "none"
)

// Resolution is the outcome of resolving one free-text name. Member is nil
// unless a single roster entry was selected.
type Resolution struct {
	Member     *member.Member  `json:"member,omitempty"`
	Confidence Confidence      `json:"confidence"`
	Candidates []member.Member `json:"candidates,omitempty"`
}

func (r Resolution) Matched() bool   { return r.Member != nil }
func (r Resolution) Ambiguous() bool { return r.Confidence == ConfidenceLow }

// rosterEntry caches the normalized name parts of a member.
type rosterEntry struct {
	member   member.Member
	full     string
	first    string
	last     string
	nickname string
}

func newRosterEntry(m member.Member) rosterEntry {
	full := Normalize(m.Name)
	parts := strings.Fields(full)
	e := rosterEntry{member: m, full: full, nickname: Normalize(m.Nickname)}
	if len(parts) > 0 {
		e.first = parts[0]
	}
	if len(parts) > 1 {
		e.last = parts[len(parts)-1]
	}
	return e
}

// Resolver matches names against a roster snapshot. It never mutates the
// roster; build a new Resolver after the roster changes.
type Resolver struct {
	entries []rosterEntry
}

func NewResolver(roster []member.Member) *Resolver {
	entries := make([]rosterEntry, len(roster))
	for i, m := range roster {
		entries[i] = newRosterEntry(m)
	}
	return &Resolver{entries: entries}
}

// Resolve is a convenience wrapper for one-off lookups.
func Resolve(name string, roster []member.Member) Resolution {
	return NewResolver(roster).Resolve(name)
}

// Resolve applies the match strategies in priority order; the first hit
// wins. Strategies that only look at a single name part must find exactly
// one candidate, otherwise the result is ambiguous.
func (r *Resolver) Resolve(name string) Resolution {
	search := Normalize(name)
	if search == "" {
		return Resolution{Confidence: ConfidenceNone}
	}
	words := strings.Fields(search)
	searchFirst := words[0]
	searchLast := ""
	if len(words) > 1 {
		searchLast = words[len(words)-1]
	}

	for _, e := range r.entries {
		if e.full == search {
			return matched(e, ConfidenceExact)
		}
	}

	if searchLast != "" {
		for _, e := range r.entries {
			if e.first == searchFirst && e.last == searchLast {
				return matched(e, ConfidenceHigh)
			}
		}
	}

	for _, e := range r.entries {
		if e.nickname != "" && e.nickname == search {
			return matched(e, ConfidenceHigh)
		}
	}

	unique := []func(e rosterEntry) bool{
		func(e rosterEntry) bool {
			return e.first == search || (e.nickname != "" && e.nickname == search)
		},
		func(e rosterEntry) bool {
			return e.last != "" && e.last == search
		},
		func(e rosterEntry) bool {
			return e.nickname != "" && (strings.Contains(e.nickname, search) || strings.Contains(search, e.nickname))
		},
	}
	for _, match := range unique {
		candidates := r.collect(match)
		switch len(candidates) {
		case 0:
			continue
		case 1:
			m := candidates[0]
			return Resolution{Member: &m, Confidence: ConfidenceMedium}
		default:
			return Resolution{Confidence: ConfidenceLow, Candidates: candidates}
		}
	}

	return Resolution{Confidence: ConfidenceNone}
}

func (r *Resolver) collect(match func(e rosterEntry) bool) []member.Member {
	var out []member.Member
	seen := make(map[uuid.UUID]struct{})
	for _, e := range r.entries {
		if !match(e) {
			continue
		}
		if _, dup := seen[e.member.ID]; dup {
			continue
		}
		seen[e.member.ID] = struct{}{}
		out = append(out, e.member)
	}
	return out
}

func matched(e rosterEntry, c Confidence) Resolution {
	m := e.member
	return Resolution{Member: &m, Confidence: c}
}

type AmbiguousName struct {
	Name       string          `json:"name"`
	Candidates []member.Member `json:"candidates"`
}

type BatchResolution struct {
	// Matched members, deduplicated by id in first-seen order.
	Matched   []member.Member `json:"matched"`
	Unmatched []string        `json:"unmatched"`
	Ambiguous []AmbiguousName `json:"ambiguous"`
}

func (r *Resolver) ResolveAll(names []string) BatchResolution {
	out := BatchResolution{
		Matched:   []member.Member{},
		Unmatched: []string{},
		Ambiguous: []AmbiguousName{},
	}
	seen := make(map[uuid.UUID]struct{})
	for _, name := range names {
		res := r.Resolve(name)
		switch {
		case res.Matched():
			if _, dup := seen[res.Member.ID]; dup {
				continue
			}
			seen[res.Member.ID] = struct{}{}
			out.Matched = append(out.Matched, *res.Member)
		case res.Ambiguous():
			out.Ambiguous = append(out.Ambiguous, AmbiguousName{Name: name, Candidates: res.Candidates})
		default:
			out.Unmatched = append(out.Unmatched, name)
		}
	}
	return out
}

// Suggest ranks roster names by fuzzy similarity to name, best first.
func (r *Resolver) Suggest(name string, limit int) []string {
	search := Normalize(name)
	if search == "" || limit <= 0 || len(r.entries) == 0 {
		return nil
	}
	targets := make([]string, len(r.entries))
	for i, e := range r.entries {
		targets[i] = e.full
	}
	ranks := fuzzy.RankFindNormalizedFold(search, targets)
	sort.Sort(ranks)

	out := make([]string, 0, limit)
	for _, rank := range ranks {
		if len(out) == limit {
			break
		}
		out = append(out, r.entries[rank.OriginalIndex].member.Name)
	}
	return out
}
