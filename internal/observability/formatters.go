// Package observability provides logging setup and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-builder/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
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
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// PrintResume outputs a human-readable summary of a structured resume.
func (p *Printer) PrintResume(title string, record *types.ResumeRecord) {
	if record == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", record.Profile.Name))
	if record.Profile.Email != "" {
		sb.WriteString(fmt.Sprintf("Email:    %s\n", record.Profile.Email))
	}
	if record.Profile.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", record.Profile.Location))
	}
	if record.Summary != "" {
		sb.WriteString(fmt.Sprintf("Summary:  %s\n", truncate(record.Summary, 45)))
	}
	sb.WriteString("\n")

	if len(record.Experience) > 0 {
		sb.WriteString(fmt.Sprintf("Experience (%d roles, %d bullets):\n", len(record.Experience), record.CountBullets()))
		count := min(len(record.Experience), maxItemsToShow)
		for i := 0; i < count; i++ {
			exp := record.Experience[i]
			sb.WriteString(fmt.Sprintf("  • %s, %s\n", exp.Role, exp.Company))
			if exp.IsCurrent() {
				sb.WriteString(fmt.Sprintf("    %s - %s (current)\n", exp.StartDate, exp.EndDate))
			} else {
				sb.WriteString(fmt.Sprintf("    %s - %s\n", exp.StartDate, exp.EndDate))
			}
		}
		if len(record.Experience) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(record.Experience)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(record.Education) > 0 {
		sb.WriteString("Education:\n")
		for _, edu := range record.Education {
			sb.WriteString(fmt.Sprintf("  • %s, %s\n", edu.Degree, edu.School))
		}
		sb.WriteString("\n")
	}

	if len(record.Skills) > 0 {
		sb.WriteString("Skills:\n")
		count := min(len(record.Skills), maxItemsToShow)
		for i := 0; i < count; i++ {
			group := record.Skills[i]
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", group.Category, strings.Join(group.Items, ", ")))
		}
		if len(record.Skills) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(record.Skills)-maxItemsToShow))
		}
	}

	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTailoringChanges compares the input and tailored resumes at a glance.
func (p *Printer) PrintTailoringChanges(before, after *types.ResumeRecord) {
	if before == nil || after == nil {
		return
	}

	var sb strings.Builder
	if before.Summary == after.Summary {
		sb.WriteString("Summary:     unchanged\n")
	} else {
		sb.WriteString("Summary:     rewritten\n")
	}
	sb.WriteString(fmt.Sprintf("Roles:       %d -> %d\n", len(before.Experience), len(after.Experience)))
	sb.WriteString(fmt.Sprintf("Bullets:     %d -> %d\n", before.CountBullets(), after.CountBullets()))
	sb.WriteString(fmt.Sprintf("Skill groups: %d -> %d", len(before.Skills), len(after.Skills)))

	if len(after.Experience) > len(before.Experience) {
		sb.WriteString("\n\n⚠ tailored resume lists roles not in the input")
	}

	p.printBox("TAILORING CHANGES", sb.String())
}

// PrintFailure outputs a failed operation with its reason and diagnostic detail.
func (p *Printer) PrintFailure(name, reason, diagnostic string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚠ %s\n", reason))
	if diagnostic != "" && diagnostic != reason {
		sb.WriteString("\nDetail:\n")
		lines := strings.Split(strings.TrimSpace(diagnostic), "\n")
		count := min(len(lines), maxItemsToShow)
		for _, line := range lines[:count] {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
		if len(lines) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more lines\n", len(lines)-maxItemsToShow))
		}
	}

	p.printBox("FAILED: "+name, strings.TrimSuffix(sb.String(), "\n"))
}
