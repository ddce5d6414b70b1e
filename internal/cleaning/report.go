package cleaning

import (
	"fmt"
	"strings"
)

const reportRule = 60

// RenderReport renders the consolidated multi-section text report, one
// section per cleaned table. The output is deterministic for a given
// input so reports can be diffed between runs.
func RenderReport(results []*CleaningResult) string {
	var b strings.Builder
	b.WriteString("Multi-File Cleaning Report\n")
	b.WriteString(strings.Repeat("=", reportRule))
	b.WriteString("\n\n")

	for _, result := range results {
		writeSection(&b, result)
	}
	return b.String()
}

func writeSection(b *strings.Builder, result *CleaningResult) {
	fmt.Fprintf(b, "File: %s\n", result.Table.Name)
	fmt.Fprintf(b, "  Dirty BEFORE: %.2f%% (%s)\n", result.Before.DirtyScore, result.Before.Severity)
	fmt.Fprintf(b, "  Dirty AFTER : %.2f%% (%s)\n", result.After.DirtyScore, result.After.Severity)
	fmt.Fprintf(b, "  Imputed: %.2f%% of original cells\n", result.After.ImputedRatio)
	fmt.Fprintf(b, "  ML readiness: %s\n", result.Verdict)

	b.WriteString("  Changes applied:\n")
	writeItems(b, result.Changes)

	b.WriteString("  Remaining issues:\n")
	writeItems(b, result.RemainingIssues)

	b.WriteString(strings.Repeat("-", reportRule))
	b.WriteString("\n\n")
}

func writeItems(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("    • (none)\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "    • %s\n", item)
	}
}
