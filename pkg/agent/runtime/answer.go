package runtime

import (
	"regexp"
	"strings"

	"github.com/alertflow/operator/pkg/types"
)

var sectionLabels = []string{"ROOT CAUSE:", "FINDINGS:", "RECOMMENDATIONS:", "AUTO-FIX:"}

var bulletPattern = regexp.MustCompile(`^(-|•|\d+\.)\s*(.+)$`)

var kubectlLinePattern = regexp.MustCompile(`(?m)^.*\bkubectl\b.*$`)

// parseAnswer scans answer for the four labeled sections and extracts
// structured findings, recommendations, and an optional fix command
// (spec.md §4.3 step 4).
func parseAnswer(answer string) types.AgentResult {
	sections := splitSections(answer)

	result := types.AgentResult{
		Summary:   strings.TrimSpace(answer),
		RootCause: strings.TrimSpace(sections["ROOT CAUSE:"]),
	}

	for _, line := range bulletLines(sections["FINDINGS:"]) {
		result.Findings = append(result.Findings, types.Finding{Description: line})
	}

	priority := 1
	for _, line := range bulletLines(sections["RECOMMENDATIONS:"]) {
		result.Recommendations = append(result.Recommendations, types.Recommendation{
			Priority: priority,
			Action:   line,
		})
		priority++
	}

	autoFixBody := strings.ToLower(sections["AUTO-FIX:"])
	if strings.Contains(autoFixBody, "yes") || strings.Contains(autoFixBody, "true") {
		result.CanAutoFix = true
		if match := kubectlLinePattern.FindString(sections["AUTO-FIX:"]); match != "" {
			result.FixCommand = strings.TrimSpace(match)
		}
	}

	return result
}

// splitSections breaks answer into the body text following each of the
// four labels. Each region ends at the next label, the literal
// "SUMMARY:", or a triple newline.
func splitSections(answer string) map[string]string {
	upper := strings.ToUpper(answer)
	type marker struct {
		label string
		start int
		end   int
	}
	var markers []marker
	for _, label := range sectionLabels {
		idx := strings.Index(upper, label)
		if idx < 0 {
			continue
		}
		markers = append(markers, marker{label: label, start: idx, end: idx + len(label)})
	}
	// sort by position
	for i := 1; i < len(markers); i++ {
		for j := i; j > 0 && markers[j].start < markers[j-1].start; j-- {
			markers[j], markers[j-1] = markers[j-1], markers[j]
		}
	}

	sections := make(map[string]string, len(markers))
	for i, m := range markers {
		bodyEnd := len(answer)
		if i+1 < len(markers) {
			bodyEnd = markers[i+1].start
		}
		body := answer[m.end:bodyEnd]
		if idx := strings.Index(strings.ToUpper(body), "SUMMARY:"); idx >= 0 {
			body = body[:idx]
		}
		if idx := strings.Index(body, "\n\n\n"); idx >= 0 {
			body = body[:idx]
		}
		sections[m.label] = body
	}
	return sections
}

func bulletLines(section string) []string {
	var out []string
	for _, raw := range strings.Split(section, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if match := bulletPattern.FindStringSubmatch(line); match != nil {
			out = append(out, strings.TrimSpace(match[2]))
		}
	}
	return out
}
