package hours

import (
	"cmp"
	"slices"

	"github.com/Sumatoshi-tech/hourglass/pkg/plumbing"
)

// percent scales a fraction for display.
const percent = 100

// PersonShare is a person with their share of the total hours.
type PersonShare struct {
	WorkByPerson `yaml:",inline"`

	// Percent of the total estimated hours.
	Percent float64 `json:"percent" yaml:"percent"`
}

// Summary totals a run.
type Summary struct {
	TotalHours   float64            `json:"total_hours" yaml:"total_hours"`
	TotalDays    float64            `json:"total_days" yaml:"total_days"`
	TotalCommits uint32             `json:"total_commits" yaml:"total_commits"`
	Authors      int                `json:"authors" yaml:"authors"`
	Files        plumbing.FileStats `json:"files" yaml:"files"`
	Lines        plumbing.LineStats `json:"lines" yaml:"lines"`
	BotsIgnored  int                `json:"bots_ignored" yaml:"bots_ignored"`
	People       []PersonShare      `json:"people,omitempty" yaml:"people,omitempty"`
}

// Summarize totals people, sorted by hours descending then email.
func Summarize(people []WorkByPerson, botsIgnored int) Summary {
	summary := Summary{
		Authors:     len(people),
		BotsIgnored: botsIgnored,
		People:      make([]PersonShare, 0, len(people)),
	}

	for _, person := range people {
		summary.TotalHours += person.Hours
		summary.TotalCommits += person.NumCommits
		summary.Files.Add(person.Files)
		summary.Lines.Add(person.Lines)
	}

	summary.TotalDays = summary.TotalHours / HoursPerWorkday

	for _, person := range people {
		share := PersonShare{WorkByPerson: person}

		if summary.TotalHours > 0 {
			share.Percent = person.Hours / summary.TotalHours * percent
		}

		summary.People = append(summary.People, share)
	}

	slices.SortStableFunc(summary.People, func(a, b PersonShare) int {
		if byHours := cmp.Compare(b.Hours, a.Hours); byHours != 0 {
			return byHours
		}

		return cmp.Compare(a.Email, b.Email)
	})

	return summary
}
