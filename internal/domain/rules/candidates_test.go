package rules

import (
	"testing"
	"time"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
)

func interests(names ...string) []model.Interest {
	out := make([]model.Interest, 0, len(names))
	for _, name := range names {
		out = append(out, model.Interest{Name: name})
	}
	return out
}

func ids(in []Candidate) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, c.User.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCompatibilityBounds(t *testing.T) {
	viewer := model.User{SocialStyle: enums.SocialStyleIntrovert, Interests: interests("Hiking", "Chess")}

	same := model.User{SocialStyle: enums.SocialStyleIntrovert, Interests: interests("hiking", "chess")}
	if got := Compatibility(viewer, same); got != 100 {
		t.Fatalf("unexpected identical score: got %d want 100", got)
	}

	opposite := model.User{SocialStyle: enums.SocialStyleExtrovert, Interests: interests("Surfing")}
	if got := Compatibility(viewer, opposite); got != 0 {
		t.Fatalf("unexpected opposite score: got %d want 0", got)
	}

	partial := model.User{SocialStyle: enums.SocialStyleAmbivert, Interests: interests("Hiking")}
	if got := Compatibility(viewer, partial); got != 70/2+15 {
		t.Fatalf("unexpected partial score: got %d want %d", got, 70/2+15)
	}
}

func TestFilterCandidatesAnyOf(t *testing.T) {
	in := []Candidate{
		{User: model.User{ID: "a", Gender: []string{"female"}, SocialStyle: enums.SocialStyleIntrovert, Interests: interests("Books")}},
		{User: model.User{ID: "b", Gender: []string{"male"}, SocialStyle: enums.SocialStyleExtrovert, Interests: interests("Music", "Books")}},
		{User: model.User{ID: "c", Gender: []string{"non-binary"}, SocialStyle: enums.SocialStyleAmbivert, Interests: interests("Running")}},
	}

	tests := []struct {
		name   string
		filter CandidateFilter
		want   []string
	}{
		{name: "empty filter", filter: CandidateFilter{}, want: []string{"a", "b", "c"}},
		{name: "gender any-of", filter: CandidateFilter{Genders: []string{"Female", "non-binary"}}, want: []string{"a", "c"}},
		{name: "style any-of", filter: CandidateFilter{SocialStyles: []enums.SocialStyle{enums.SocialStyleExtrovert}}, want: []string{"b"}},
		{name: "interest any-of", filter: CandidateFilter{Interests: []string{"books"}}, want: []string{"a", "b"}},
		{name: "combined", filter: CandidateFilter{Genders: []string{"male", "female"}, Interests: []string{"music"}}, want: []string{"b"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(FilterCandidates(in, tc.filter))
			if !equalIDs(got, tc.want) {
				t.Fatalf("unexpected ids: got %v want %v", got, tc.want)
			}
		})
	}
}

func TestSortCandidatesIsStable(t *testing.T) {
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	in := []Candidate{
		{User: model.User{ID: "a", LastActiveAt: base}, Score: 50},
		{User: model.User{ID: "b", LastActiveAt: base.Add(time.Hour)}, Score: 80},
		{User: model.User{ID: "c", LastActiveAt: base}, Score: 50},
		{User: model.User{ID: "d", LastActiveAt: base.Add(2 * time.Hour)}, Score: 50},
	}

	byScore := ids(SortCandidates(in, SortCompatibility))
	if want := []string{"b", "a", "c", "d"}; !equalIDs(byScore, want) {
		t.Fatalf("unexpected compatibility order: got %v want %v", byScore, want)
	}

	byRecent := ids(SortCandidates(in, SortRecent))
	if want := []string{"d", "b", "a", "c"}; !equalIDs(byRecent, want) {
		t.Fatalf("unexpected recent order: got %v want %v", byRecent, want)
	}

	if got := ids(in); !equalIDs(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("input mutated: %v", got)
	}
}

func TestParseCandidateSort(t *testing.T) {
	if got, ok := ParseCandidateSort("interests"); !ok || got != SortCompatibility {
		t.Fatalf("interests alias: got %s ok=%v", got, ok)
	}
	if got, ok := ParseCandidateSort("Recent"); !ok || got != SortRecent {
		t.Fatalf("recent: got %s ok=%v", got, ok)
	}
	if _, ok := ParseCandidateSort("distance"); ok {
		t.Fatalf("unexpected ok for unknown sort")
	}
}
