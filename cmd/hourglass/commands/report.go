package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/hourglass/pkg/config"
	"github.com/Sumatoshi-tech/hourglass/pkg/hours"
	"github.com/Sumatoshi-tech/hourglass/pkg/pipeline"
)

// ErrUnknownFormat is returned for an output format that cannot be rendered.
var ErrUnknownFormat = errors.New("unknown output format")

const (
	hourDigits = 2
	yamlIndent = 2
)

// renderOptions controls report rendering.
type renderOptions struct {
	Format  string
	ShowPII bool
	Color   bool
}

// writeReport renders report to w in the requested format. Names and emails
// are only written when ShowPII is set.
func writeReport(w io.Writer, report *pipeline.Report, opts renderOptions) error {
	if !opts.ShowPII {
		anonymized := *report
		anonymized.People = nil
		report = &anonymized
	}

	switch opts.Format {
	case config.FormatText, "":
		return writeText(w, report, opts.Color)
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(report)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(yamlIndent)

		err := enc.Encode(report)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	}

	return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
}

func writeText(w io.Writer, report *pipeline.Report, useColor bool) error {
	heading := color.New(color.Bold, color.FgCyan)
	warning := color.New(color.FgYellow)

	if !useColor {
		heading.DisableColor()
		warning.DisableColor()
	}

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleLight)
	summary.SetTitle(heading.Sprint("Estimated work"))

	summary.AppendRows([]table.Row{
		{"total hours", humanize.CommafWithDigits(report.TotalHours, hourDigits)},
		{"total 8-hour days", humanize.CommafWithDigits(report.TotalDays, hourDigits)},
		{"total commits", humanize.Comma(int64(report.TotalCommits))},
		{"total authors", humanize.Comma(int64(report.Authors))},
	})

	if report.Mined {
		summary.AppendRow(table.Row{"total files added/removed/modified", fmt.Sprintf("%s/%s/%s",
			humanize.Comma(int64(report.Files.Added)),
			humanize.Comma(int64(report.Files.Removed)),
			humanize.Comma(int64(report.Files.Modified)))})
	}

	if report.LineStats {
		summary.AppendRow(table.Row{"total lines added/removed", fmt.Sprintf("%s/%s",
			humanize.Comma(int64(report.Lines.Added)),
			humanize.Comma(int64(report.Lines.Removed)))})
	}

	if report.BotsIgnored > 0 {
		summary.AppendRow(table.Row{"bots ignored", humanize.Comma(int64(report.BotsIgnored))})
	}

	summary.AppendFooter(table.Row{"commits walked", fmt.Sprintf("%s in %s",
		humanize.Comma(int64(report.Commits)), report.Elapsed.Round(time.Millisecond))})

	summary.Render()

	if len(report.People) > 0 {
		writePeople(w, report, heading)
	}

	if report.Interrupted {
		_, err := warning.Fprintln(w, "interrupted: statistics cover only part of the history")
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	return nil
}

func writePeople(w io.Writer, report *pipeline.Report, heading *color.Color) {
	people := table.NewWriter()
	people.SetOutputMirror(w)
	people.SetStyle(table.StyleLight)
	people.SetTitle(heading.Sprint("Contributors"))

	header := table.Row{"#", "Author", "Email", "Hours", "Days", "Commits", "Share"}
	if report.Mined {
		header = append(header, "Files +/-/~")
	}

	if report.LineStats {
		header = append(header, "Lines +/-")
	}

	people.AppendHeader(header)

	for i, person := range report.People {
		people.AppendRow(personRow(i+1, person, report.Mined, report.LineStats))
	}

	people.Render()
}

func personRow(rank int, person hours.PersonShare, files, lines bool) table.Row {
	row := table.Row{
		strconv.Itoa(rank),
		person.Name,
		person.Email,
		humanize.CommafWithDigits(person.Hours, hourDigits),
		humanize.CommafWithDigits(person.Days(), hourDigits),
		humanize.Comma(int64(person.NumCommits)),
		fmt.Sprintf("%.1f%%", person.Percent),
	}

	if files {
		row = append(row, fmt.Sprintf("%d/%d/%d", person.Files.Added, person.Files.Removed, person.Files.Modified))
	}

	if lines {
		row = append(row, fmt.Sprintf("%d/%d", person.Lines.Added, person.Lines.Removed))
	}

	return row
}
