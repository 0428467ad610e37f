// Package report lays out a scorecard snapshot as text tables and rows.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"scorecard/internal/core"
)

const (
	difficultyMark = "⚪"
	chartMark      = "█"
	chartWidth     = 40
)

// Section is one titled table of the report.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
	Footer  string
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	printer = message.NewPrinter(language.English)
)

// FormatMoney rounds v to cents and groups thousands: $50,000.00.
func FormatMoney(v float64) string {
	return "$" + printer.Sprintf("%.2f", core.RoundCents(v).InexactFloat64())
}

// FormatPercent renders p with two decimals: 33.33%.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}

// Difficulty renders d as repeated circles.
func Difficulty(d core.Difficulty) string {
	return strings.Repeat(difficultyMark, int(core.ClampDifficulty(d)))
}

// Sections returns the report content in display order.
func Sections(s core.Snapshot) []Section {
	p := s.Profile
	profile := Section{
		Title:   "Brand Profile",
		Headers: []string{"Field", "Value"},
		Rows: [][]string{
			{"Name", p.Name},
			{"Total Budget", FormatMoney(p.TotalBudget)},
			{"Personnel", strings.Join(p.Personnel, ", ")},
			{"Products", p.Products},
			{"Industry", p.Industry},
			{"Segments", strings.Join(p.Segments, ", ")},
			{"Channels", strings.Join(p.Channels, ", ")},
		},
	}

	mix := Section{Title: "Marketing Mix", Headers: []string{"Channel", "Percentage", "Amount"}}
	for _, e := range s.Mix.Entries {
		mix.Rows = append(mix.Rows, []string{e.Key, FormatPercent(e.Percentage), FormatMoney(e.Amount)})
	}
	mix.Footer = balanceLine(s.Mix)

	benchmarks := Section{Title: "Benchmarks & Goals", Headers: []string{"Timeline", "Metric", "Benchmark", "Goal"}}
	initiatives := Section{
		Title:   "Marketing Initiatives",
		Headers: []string{"Initiative", "Cost", "Budget %", "Difficulty", "Personnel", "Status"},
	}
	for _, b := range s.Benchmarks {
		benchmarks.Rows = append(benchmarks.Rows, []string{b.Timeline, b.MetricName, b.Benchmark, b.Goal})
		for _, in := range b.Initiatives {
			initiatives.Rows = append(initiatives.Rows, []string{
				in.Name,
				FormatMoney(in.Cost),
				FormatPercent(in.BudgetPercent),
				Difficulty(in.Difficulty),
				strings.Join(in.Personnel, ", "),
				string(in.Status),
			})
		}
	}
	if len(initiatives.Rows) > 0 {
		initiatives.Footer = fmt.Sprintf("Committed: %s (%s of budget)",
			FormatMoney(core.AmountOf(s.Initiatives.TotalAllocated, s.Initiatives.TotalBudget)),
			FormatPercent(s.Initiatives.TotalAllocated))
	}

	return []Section{profile, mix, benchmarks, initiatives}
}

func balanceLine(l core.LedgerSnapshot) string {
	total := "Total: " + FormatPercent(l.TotalAllocated)
	switch {
	case l.Balanced:
		return total + " (balanced)"
	case l.TotalAllocated > 100:
		return total + fmt.Sprintf(" (over-allocated by %s)", FormatPercent(l.TotalAllocated-100))
	default:
		return total + fmt.Sprintf(" (%s unallocated)", FormatPercent(100-l.TotalAllocated))
	}
}

// Render lays the snapshot out as bordered text tables.
func Render(s core.Snapshot) string {
	var b strings.Builder
	title := "Marketing Scorecard"
	if s.Name != "" {
		title += ": " + s.Name
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	for _, sec := range Sections(s) {
		b.WriteString(sectionStyle.Render(sec.Title))
		b.WriteString("\n")
		if len(sec.Rows) == 0 {
			b.WriteString("(none)\n")
			continue
		}
		b.WriteString(renderTable(sec.Headers, sec.Rows))
		b.WriteString("\n")
		if sec.Footer != "" {
			footer := sec.Footer
			if sec.Title == "Marketing Mix" && !s.Mix.Balanced {
				footer = warnStyle.Render(footer)
			}
			b.WriteString(footer)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

// RenderLedger lays out one ledger as a table, its balance line and a bar
// chart of the non-zero allocations.
func RenderLedger(title string, l core.LedgerSnapshot) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(title))
	b.WriteString("\n")
	b.WriteString("Total budget: " + FormatMoney(l.TotalBudget) + "\n")

	if len(l.Entries) == 0 {
		b.WriteString("(none)\n")
	} else {
		rows := make([][]string, 0, len(l.Entries))
		for _, e := range l.Entries {
			rows = append(rows, []string{e.Key, FormatPercent(e.Percentage), FormatMoney(e.Amount)})
		}
		b.WriteString(renderTable([]string{"Key", "Percentage", "Amount"}, rows))
		b.WriteString("\n")
	}
	line := balanceLine(l)
	if !l.Balanced {
		line = warnStyle.Render(line)
	}
	b.WriteString(line)
	b.WriteString("\n")

	chart := l.Chart()
	width := 0
	for _, c := range chart {
		width = max(width, len(c.Key))
	}
	for _, c := range chart {
		bar := strings.Repeat(chartMark, int(math.Round(c.Value/100*chartWidth)))
		fmt.Fprintf(&b, "%-*s %s %s\n", width, c.Key, bar, FormatPercent(c.Value))
	}
	return b.String()
}

// Rows flattens the report for spreadsheet sinks: a title row per section,
// its header row, data rows, an optional footer row and a blank separator.
func Rows(s core.Snapshot) [][]string {
	var out [][]string
	for _, sec := range Sections(s) {
		out = append(out, []string{sec.Title}, sec.Headers)
		out = append(out, sec.Rows...)
		if sec.Footer != "" {
			out = append(out, []string{sec.Footer})
		}
		out = append(out, []string{})
	}
	return out
}
