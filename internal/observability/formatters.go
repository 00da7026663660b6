// Package observability provides logger setup, prometheus metrics and
// formatted summaries for CLI output.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/wiki-generator/internal/platform"
	"github.com/jonathan/wiki-generator/internal/project"
	"github.com/jonathan/wiki-generator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI summaries
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// PrintBatchResult outputs the success/failure counts of a batch and the failed titles.
func (p *Printer) PrintBatchResult(title string, result *types.BatchResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	total := len(result.Success) + len(result.Failed)
	sb.WriteString(fmt.Sprintf("Succeeded: %d/%d\n", len(result.Success), total))
	sb.WriteString(fmt.Sprintf("Failed:    %d/%d", len(result.Failed), total))

	if len(result.Failed) > 0 {
		sb.WriteString("\n\n")
		count := min(len(result.Failed), maxItemsToShow)
		for i := 0; i < count; i++ {
			name := result.Failed[i]
			sb.WriteString(fmt.Sprintf("✗ %s", name))
			if msg := result.Errors[name]; msg != "" {
				sb.WriteString(fmt.Sprintf(": %s", msg))
			}
			if i < count-1 {
				sb.WriteString("\n")
			}
		}
		if len(result.Failed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("\n... and %d more failures", len(result.Failed)-maxItemsToShow))
		}
	}

	p.printBox(title, sb.String())
}

// PrintLinkSummary outputs target vs. actual placement of each link bank URL.
func (p *Printer) PrintLinkSummary(summary []project.LinkPlacement) {
	if len(summary) == 0 {
		return
	}

	var sb strings.Builder
	for i, l := range summary {
		target := "∞"
		if l.TargetCount > 0 {
			target = fmt.Sprintf("%d", l.TargetCount)
		}
		mark := "✓"
		if l.TargetCount > 0 && l.ActualCount < l.TargetCount {
			mark = "○"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", mark, l.URL))
		sb.WriteString(fmt.Sprintf("  placed %d / target %s", l.ActualCount, target))
		if len(l.Pages) > 0 {
			sb.WriteString(fmt.Sprintf("\n  on: %s", strings.Join(l.Pages, ", ")))
		}
		if i < len(summary)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("LINK BANK PLACEMENT", sb.String())
}

// PrintConnection outputs the result of a connection test.
func (p *Printer) PrintConnection(platformName string, res platform.ConnectionResult) {
	check := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "✗"
	}

	var sb strings.Builder
	if res.SiteName != "" {
		sb.WriteString(fmt.Sprintf("Site:            %s\n", res.SiteName))
	}
	sb.WriteString(fmt.Sprintf("API accessible:  %s\n", check(res.APIAccessible)))
	sb.WriteString(fmt.Sprintf("Login:           %s\n", check(res.LoginSuccess)))
	sb.WriteString(fmt.Sprintf("Edit permission: %s", check(res.EditPermission)))
	if res.Error != "" {
		sb.WriteString(fmt.Sprintf("\n\nError: %s", res.Error))
	}

	p.printBox(strings.ToUpper(platformName)+" CONNECTION", sb.String())
}

// PrintProjects outputs one line per project.
func (p *Printer) PrintProjects(projects []*types.Project) {
	if len(projects) == 0 {
		p.printBox("PROJECTS", "No projects found")
		return
	}

	var sb strings.Builder
	for i, pr := range projects {
		sb.WriteString(fmt.Sprintf("%s  %-10s %s", pr.ID, pr.Platform, pr.Name))
		if i < len(projects)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("PROJECTS", sb.String())
}
