package runtime

import "testing"

const sampleAnswer = `ROOT CAUSE: The container was OOM-killed.

FINDINGS:
- restart count is elevated
- exit code 137 observed
• memory climbed before each restart

RECOMMENDATIONS:
1. raise the memory limit
2. add a memory alert

AUTO-FIX: yes
kubectl patch deployment api -n production -p '{"spec":{}}'
`

func TestParseAnswer_ExtractsSections(t *testing.T) {
	result := parseAnswer(sampleAnswer)

	if result.RootCause == "" {
		t.Fatal("expected non-empty root cause")
	}
	if len(result.Findings) != 3 {
		t.Fatalf("expected 3 findings, got %d: %+v", len(result.Findings), result.Findings)
	}
	if len(result.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(result.Recommendations))
	}
	if result.Recommendations[0].Priority != 1 || result.Recommendations[1].Priority != 2 {
		t.Fatalf("expected ascending priorities, got %+v", result.Recommendations)
	}
	if !result.CanAutoFix {
		t.Fatal("expected auto-fix to be true")
	}
	if result.FixCommand == "" {
		t.Fatal("expected a fix command to be extracted")
	}
}

func TestParseAnswer_NoAutoFix(t *testing.T) {
	answer := "ROOT CAUSE: unknown\nFINDINGS:\n- none\nRECOMMENDATIONS:\n- none\nAUTO-FIX: no"
	result := parseAnswer(answer)
	if result.CanAutoFix {
		t.Fatal("expected auto-fix to be false")
	}
	if result.FixCommand != "" {
		t.Fatalf("expected no fix command, got %q", result.FixCommand)
	}
}

func TestParseConfidence(t *testing.T) {
	cases := map[string]float64{
		"85":                 0.85,
		"confidence: 42":     0.42,
		"  100  ":            1.0,
		"not a number at all": 0.6,
		"0":                   0.6,
		"150":                 0.6,
	}
	for input, want := range cases {
		if got := parseConfidence(input); got != want {
			t.Errorf("parseConfidence(%q) = %v, want %v", input, got, want)
		}
	}
}
