// Package hours estimates the time contributors spent on a repository from the
// spacing of their commits, and merges contributors that share a name or email.
package hours

import (
	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib"
	"github.com/Sumatoshi-tech/hourglass/pkg/plumbing"
)

// HoursPerWorkday converts hours to workdays in summaries.
const HoursPerWorkday = 8

// AuthorCommit is one commit of a contributor: its history index and resolved author.
type AuthorCommit struct {
	Index  uint32
	Author gitlib.Signature
}

// WorkByEmail aggregates the commits of one distinct email.
type WorkByEmail struct {
	Name       string             `json:"name" yaml:"name"`
	Email      string             `json:"email" yaml:"email"`
	Hours      float64            `json:"hours" yaml:"hours"`
	NumCommits uint32             `json:"commits" yaml:"commits"`
	Files      plumbing.FileStats `json:"files" yaml:"files"`
	Lines      plumbing.LineStats `json:"lines" yaml:"lines"`
}

// WorkByPerson aggregates one deduplicated human. Name and Email are those of
// the first record merged into it.
type WorkByPerson struct {
	Name       string             `json:"name" yaml:"name"`
	Email      string             `json:"email" yaml:"email"`
	Hours      float64            `json:"hours" yaml:"hours"`
	NumCommits uint32             `json:"commits" yaml:"commits"`
	Files      plumbing.FileStats `json:"files" yaml:"files"`
	Lines      plumbing.LineStats `json:"lines" yaml:"lines"`
}

// NewWorkByPerson promotes a per-email record to a person.
func NewWorkByPerson(work WorkByEmail) WorkByPerson {
	return WorkByPerson(work)
}

// Merge adds the counters of work, keeping the receiver's name and email.
func (p *WorkByPerson) Merge(work WorkByEmail) {
	p.Hours += work.Hours
	p.NumCommits += work.NumCommits
	p.Files.Add(work.Files)
	p.Lines.Add(work.Lines)
}

// Days returns the hours in workdays.
func (p WorkByPerson) Days() float64 {
	return p.Hours / HoursPerWorkday
}
