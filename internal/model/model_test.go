package model

import "testing"

func TestSummaryPoints(t *testing.T) {
	cases := []struct {
		name     string
		extended string
		want     []string
	}{
		{name: "empty", extended: "   ", want: nil},
		{name: "single point", extended: "Only one point.", want: []string{"Only one point."}},
		{name: "two points", extended: "First.|||Second.", want: []string{"First.", "Second."}},
		{name: "trims points", extended: " First. ||| Second. ", want: []string{"First.", "Second."}},
		{name: "drops empty parts", extended: "First.|||", want: []string{"First."}},
		{name: "only delimiters", extended: "|||", want: []string{"|||"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SummaryPoints(tc.extended)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d points, got %d (%q)", len(tc.want), len(got), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("point %d: expected %q, got %q", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestJoinSummaryPoints(t *testing.T) {
	if got := JoinSummaryPoints("one", ""); got != "one" {
		t.Fatalf("expected no delimiter for a single point, got %q", got)
	}
	if got := JoinSummaryPoints("one", "two"); got != "one|||two" {
		t.Fatalf("unexpected encoding: %q", got)
	}
}
