package rules

import (
	"reflect"
	"testing"
	"time"

	"github.com/samber/lo"
)

func mustCompile(t *testing.T, c Criteria) *Compiled {
	t.Helper()
	cc, err := c.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return cc
}

func TestEvaluate_NeverWatched(t *testing.T) {
	now := time.Now()
	cc := mustCompile(t, Criteria{NeverWatched: lo.ToPtr(true), Operator: OperatorAnd})

	tests := []struct {
		name      string
		playCount int
		want      bool
	}{
		{"unwatched item matches", 0, true},
		{"watched item does not match", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cc.Evaluate(&MediaItem{PlayCount: tt.playCount}, now)
			if got.Matches != tt.want {
				t.Errorf("Evaluate() matches = %v, want %v", got.Matches, tt.want)
			}
			if len(got.Conditions) != 1 {
				t.Fatalf("Evaluate() returned %d condition results, want 1", len(got.Conditions))
			}
			if got.Conditions[0].Field != FieldNeverWatched {
				t.Errorf("condition field = %s, want %s", got.Conditions[0].Field, FieldNeverWatched)
			}
		})
	}
}

func TestEvaluate_LastWatchedBefore(t *testing.T) {
	now := time.Now()
	cc := mustCompile(t, Criteria{
		LastWatchedBefore: &TimeThreshold{Value: 30, Unit: TimeUnitDays},
		Operator:          OperatorAnd,
	})

	tests := []struct {
		name        string
		lastWatched *time.Time
		want        bool
	}{
		{"watched 45 days ago passes", lo.ToPtr(now.AddDate(0, 0, -45)), true},
		{"watched 10 days ago fails", lo.ToPtr(now.AddDate(0, 0, -10)), false},
		{"never watched passes", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cc.Evaluate(&MediaItem{LastWatchedAt: tt.lastWatched}, now)
			if got.Matches != tt.want {
				t.Errorf("Evaluate() matches = %v, want %v", got.Matches, tt.want)
			}
		})
	}
}

func TestEvaluate_Combinators(t *testing.T) {
	now := time.Now()
	// neverWatched passes, minFileSize fails for this item.
	item := &MediaItem{PlayCount: 0, FileSize: lo.ToPtr(int64(100 << 20))}

	criteria := Criteria{
		NeverWatched: lo.ToPtr(true),
		MinFileSize:  &SizeThreshold{Value: 1, Unit: SizeUnitGigabytes},
	}

	criteria.Operator = OperatorAnd
	if got := mustCompile(t, criteria).Evaluate(item, now); got.Matches {
		t.Error("AND with one failing condition must not match")
	}

	criteria.Operator = OperatorOr
	if got := mustCompile(t, criteria).Evaluate(item, now); !got.Matches {
		t.Error("OR with one passing condition must match")
	}
}

func TestEvaluate_AndOrLaws(t *testing.T) {
	now := time.Now()
	cc := mustCompile(t, Criteria{
		NeverWatched: lo.ToPtr(true),
		MaxPlayCount: lo.ToPtr(2),
		MaxRating:    lo.ToPtr(5.0),
		Operator:     OperatorAnd,
	})

	items := []*MediaItem{
		{PlayCount: 0, Rating: lo.ToPtr(3.0)},
		{PlayCount: 1, Rating: lo.ToPtr(3.0)},
		{PlayCount: 5, Rating: nil},
		{PlayCount: 0, Rating: lo.ToPtr(9.9)},
	}

	for _, item := range items {
		andResult := cc.Evaluate(item, now)
		all := lo.EveryBy(andResult.Conditions, func(r ConditionResult) bool { return r.Passed })
		if andResult.Matches != all {
			t.Errorf("AND law violated: matches=%v but all-passed=%v (%+v)", andResult.Matches, all, andResult.Conditions)
		}

		orCompiled := &Compiled{Operator: OperatorOr, Conditions: cc.Conditions}
		orResult := orCompiled.Evaluate(item, now)
		any := lo.SomeBy(orResult.Conditions, func(r ConditionResult) bool { return r.Passed })
		if orResult.Matches != any {
			t.Errorf("OR law violated: matches=%v but any-passed=%v (%+v)", orResult.Matches, any, orResult.Conditions)
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	now := time.Now()
	cc := mustCompile(t, Criteria{
		NeverWatched:      lo.ToPtr(true),
		LastWatchedBefore: &TimeThreshold{Value: 6, Unit: TimeUnitMonths},
		MaxQuality:        lo.ToPtr("1080p"),
		Tags:              []string{"low-priority"},
		Operator:          OperatorOr,
	})
	item := &MediaItem{
		PlayCount:     2,
		LastWatchedAt: lo.ToPtr(now.AddDate(-1, 0, 0)),
		Quality:       "720p",
		Tags:          []string{"kids", "low-priority"},
	}

	first := cc.Evaluate(item, now)
	second := cc.Evaluate(item, now)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("evaluation is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestEvaluate_NoConditionsNeverMatches(t *testing.T) {
	cc := mustCompile(t, Criteria{Operator: OperatorOr})
	got := cc.Evaluate(&MediaItem{PlayCount: 0}, time.Now())
	if got.Matches {
		t.Error("criteria with zero defined conditions must never match")
	}
	if len(got.Conditions) != 0 {
		t.Errorf("expected no condition results, got %d", len(got.Conditions))
	}
}

func TestEvaluate_FailsClosed(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		criteria Criteria
		item     MediaItem
	}{
		{
			name:     "unknown quality",
			criteria: Criteria{MaxQuality: lo.ToPtr("1080p")},
			item:     MediaItem{Quality: "betamax"},
		},
		{
			name:     "missing added date",
			criteria: Criteria{AddedBefore: &TimeThreshold{Value: 1, Unit: TimeUnitYears}},
			item:     MediaItem{},
		},
		{
			name:     "missing file size",
			criteria: Criteria{MinFileSize: &SizeThreshold{Value: 1, Unit: SizeUnitMegabytes}},
			item:     MediaItem{},
		},
		{
			name:     "missing rating",
			criteria: Criteria{MaxRating: lo.ToPtr(10.0)},
			item:     MediaItem{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustCompile(t, tt.criteria).Evaluate(&tt.item, now)
			if got.Matches {
				t.Error("condition on missing/unknown data must fail closed")
			}
		})
	}
}

func TestEvaluate_QualityRanking(t *testing.T) {
	now := time.Now()
	cc := mustCompile(t, Criteria{MaxQuality: lo.ToPtr("HD"), Operator: OperatorAnd})

	tests := []struct {
		quality string
		want    bool
	}{
		{"sd", true},
		{"480p", true},
		{"720p", true},
		{"1080p", false},
		{"4K", false},
	}
	for _, tt := range tests {
		got := cc.Evaluate(&MediaItem{Quality: tt.quality}, now)
		if got.Matches != tt.want {
			t.Errorf("quality %q: matches = %v, want %v", tt.quality, got.Matches, tt.want)
		}
	}
}
