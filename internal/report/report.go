package report

import (
	"fmt"
	"strings"

	"sdtfit/domain/delta"
	"sdtfit/domain/model"
	"sdtfit/domain/sdt"
	"sdtfit/domain/trial"
	"sdtfit/ports"
)

// Markdown renders a complete run report: manifest, SDT table, dropped
// cells, per-participant shifts and posterior summaries. The API serves it
// rendered to HTML.
func Markdown(manifest ports.RunManifest, codes trial.Codes,
	sdtTable sdt.Table, deltaTable delta.Table, posterior *model.Posterior) (string, error) {

	var b strings.Builder

	fmt.Fprintf(&b, "# Run %s\n\n", manifest.RunID)
	fmt.Fprintf(&b, "- Source: `%s`\n", manifest.SourcePath)
	fmt.Fprintf(&b, "- Trials: %d\n", manifest.TrialCount)
	fmt.Fprintf(&b, "- SDT cells: %d (dropped %d)\n", manifest.CellCount, manifest.DroppedCells)
	fmt.Fprintf(&b, "- Seed: %d\n\n", manifest.Seed)

	b.WriteString("## SDT summary\n\n")
	b.WriteString("| pnum | condition | hits | misses | false alarms | correct rejections | nSignal | nNoise |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, c := range sdtTable.Cells {
		fmt.Fprintf(&b, "| %d | %s | %d | %d | %d | %d | %d | %d |\n",
			c.Pnum, codes.ConditionName(c.Condition),
			c.Hits, c.Misses, c.FalseAlarms, c.CorrectRejections, c.NSignal, c.NNoise)
	}
	b.WriteString("\n")

	if len(sdtTable.Dropped) > 0 {
		b.WriteString("## Dropped cells\n\n")
		for _, d := range sdtTable.Dropped {
			fmt.Fprintf(&b, "- participant %d, %s: missing %s trials\n",
				d.Pnum, codes.ConditionName(d.Condition), d.MissingSide)
		}
		b.WriteString("\n")
	}

	shifts, err := Shifts(deltaTable, participantsOf(deltaTable))
	if err != nil {
		return "", err
	}
	b.WriteString("## Delta-plot shifts (overall mode)\n\n")
	b.WriteString("| pnum | hard - easy (s) | complex - simple (s) |\n")
	b.WriteString("|---|---|---|\n")
	for _, s := range shifts {
		fmt.Fprintf(&b, "| %d | %+.4f | %+.4f |\n", s.Pnum, s.DifficultyShift, s.ComplexityShift)
	}
	b.WriteString("\n")

	if posterior != nil {
		b.WriteString("## Posterior (group-level parameters)\n\n")
		b.WriteString("| parameter | mean | 94% HDI | R-hat |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, s := range posterior.Summaries {
			if strings.Contains(s.Name, "[") {
				continue // individual-level latents stay out of the report table
			}
			fmt.Fprintf(&b, "| %s | %.3f | [%.3f, %.3f] | %.3f |\n",
				s.Name, s.Mean, s.HDILow, s.HDIHigh, s.RHat)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

func participantsOf(table delta.Table) []int {
	seen := make(map[int]bool)
	var pnums []int
	for _, r := range table.Rows {
		if !seen[r.Pnum] {
			seen[r.Pnum] = true
			pnums = append(pnums, r.Pnum)
		}
	}
	return pnums
}
