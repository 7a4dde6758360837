package rules

import (
	"sort"
	"strings"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
)

const (
	interestWeight = 70
	styleWeight    = 30
)

type CandidateSort string

const (
	SortCompatibility CandidateSort = "compatibility"
	SortRecent        CandidateSort = "recent"
)

func ParseCandidateSort(raw string) (CandidateSort, bool) {
	switch CandidateSort(strings.ToLower(strings.TrimSpace(raw))) {
	case SortCompatibility, "interests", "":
		return SortCompatibility, true
	case SortRecent:
		return SortRecent, true
	default:
		return "", false
	}
}

// Candidate is a user the viewer may propose to, with its score against the viewer.
type Candidate struct {
	User  model.User
	Score int
}

// CandidateFilter constrains a candidate set. Each list is any-of; an empty
// list does not constrain.
type CandidateFilter struct {
	Genders      []string
	SocialStyles []enums.SocialStyle
	Interests    []string
}

// Compatibility scores other against viewer in [0, 100] from shared interests
// (Jaccard over lower-cased names) and social-style distance.
func Compatibility(viewer, other model.User) int {
	a := nameSet(viewer.InterestNames())
	b := nameSet(other.InterestNames())

	shared := 0
	for name := range a {
		if _, ok := b[name]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared

	score := 0
	if union > 0 {
		score += interestWeight * shared / union
	}

	if viewer.SocialStyle.Valid() && other.SocialStyle.Valid() {
		distance := viewer.SocialStyle.Rank() - other.SocialStyle.Rank()
		if distance < 0 {
			distance = -distance
		}
		score += styleWeight - distance*styleWeight/2
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// FilterCandidates keeps input order.
func FilterCandidates(in []Candidate, filter CandidateFilter) []Candidate {
	genders := nameSet(filter.Genders)
	interests := nameSet(filter.Interests)
	styles := make(map[enums.SocialStyle]struct{}, len(filter.SocialStyles))
	for _, style := range filter.SocialStyles {
		styles[style] = struct{}{}
	}

	out := make([]Candidate, 0, len(in))
	for _, candidate := range in {
		if len(genders) > 0 && !anyIn(candidate.User.Gender, genders) {
			continue
		}
		if len(styles) > 0 {
			if _, ok := styles[candidate.User.SocialStyle]; !ok {
				continue
			}
		}
		if len(interests) > 0 && !anyIn(candidate.User.InterestNames(), interests) {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

// SortCandidates returns a sorted copy; ties keep input order.
func SortCandidates(in []Candidate, by CandidateSort) []Candidate {
	out := make([]Candidate, len(in))
	copy(out, in)

	switch by {
	case SortRecent:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].User.LastActiveAt.After(out[j].User.LastActiveAt)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Score > out[j].Score
		})
	}
	return out
}

func nameSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		set[value] = struct{}{}
	}
	return set
}

func anyIn(values []string, set map[string]struct{}) bool {
	for _, value := range values {
		if _, ok := set[strings.ToLower(strings.TrimSpace(value))]; ok {
			return true
		}
	}
	return false
}
