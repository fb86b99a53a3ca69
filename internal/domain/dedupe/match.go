package dedupe

import (
	"sort"

	"github.com/okian/campsift/internal/domain/model"
)

// Group is a set of sessions sharing one exact dedupe key. The first
// element is the canonical survivor; the rest are safe to collapse.
type Group struct {
	Key      string
	Keep     model.Session
	Collapse []model.Session
}

// Match is one probable cross-source duplicate pair, recorded for human
// review only.
type Match struct {
	A     model.Session
	B     model.Session
	Score float64
}

// GroupDuplicates buckets sessions by exact dedupe key and returns the
// groups holding more than one session. Sessions without a parsed start
// date never participate: their keys would not be deterministic.
//
// Within a group the session with the highest completeness score survives;
// ties keep the oldest row.
func GroupDuplicates(sessions []model.Session) []Group {
	byKey := make(map[string][]model.Session)
	for _, s := range sessions {
		if s.Dates.Start.IsZero() {
			continue
		}
		k := Key(s.SourceID, s.Name, s.Dates.Start)
		byKey[k] = append(byKey[k], s)
	}

	var groups []Group
	for k, members := range byKey {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if members[i].CompletenessScore != members[j].CompletenessScore {
				return members[i].CompletenessScore > members[j].CompletenessScore
			}
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		})
		groups = append(groups, Group{Key: k, Keep: members[0], Collapse: members[1:]})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// CrossSourceMatches finds probable duplicates among sessions from
// different sources: overlapping date ranges and name similarity at or
// above threshold. Callers group by city first; matches are never merged
// automatically because two distinct camps can share a generic name.
func CrossSourceMatches(sessions []model.Session, threshold float64) []Match {
	var matches []Match
	for i := 0; i < len(sessions); i++ {
		for j := i + 1; j < len(sessions); j++ {
			a, b := sessions[i], sessions[j]
			if a.SourceID == b.SourceID {
				continue
			}
			if !a.HasDates() || !b.HasDates() || !overlaps(a.Dates, b.Dates) {
				continue
			}
			if score := Similarity(a.Name, b.Name); score >= threshold {
				matches = append(matches, Match{A: a, B: b, Score: score})
			}
		}
	}
	return matches
}

func overlaps(a, b model.DateRange) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}
