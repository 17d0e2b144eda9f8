package hours

import (
	"errors"

	"github.com/Sumatoshi-tech/hourglass/pkg/plumbing"
	"github.com/Sumatoshi-tech/hourglass/pkg/safeconv"
)

const (
	minutesPerHour = 60.0
	// maxCommitGapMinutes is the longest gap still counted as continuous work.
	maxCommitGapMinutes = 2 * minutesPerHour
	// sessionStartMinutes is credited once for the work before the first commit
	// and for every gap that starts a new session.
	sessionStartMinutes = 2 * minutesPerHour
)

// ErrNoCommits is returned by Estimate for an empty commit list.
var ErrNoCommits = errors.New("no commits to estimate")

// Estimate computes the work of one email. commits must be newest first and
// belong to the same email; stats must be sorted by index. Name and email are
// taken from the most recent commit.
func Estimate(commits []AuthorCommit, stats []plumbing.CommitStat) (WorkByEmail, error) {
	if len(commits) == 0 {
		return WorkByEmail{}, ErrNoCommits
	}

	hours := sessionStartMinutes / minutesPerHour

	for i := len(commits) - 1; i > 0; i-- {
		older, newer := commits[i].Author.Seconds(), commits[i-1].Author.Seconds()

		gapMinutes := float64(max(newer-older, 0)) / minutesPerHour
		if gapMinutes < maxCommitGapMinutes {
			hours += gapMinutes / minutesPerHour
		} else {
			hours += sessionStartMinutes / minutesPerHour
		}
	}

	work := WorkByEmail{
		Name:       commits[0].Author.Name,
		Email:      commits[0].Author.Email,
		Hours:      hours,
		NumCommits: safeconv.MustIntToUint32(len(commits)),
	}

	for _, commit := range commits {
		stat, ok := plumbing.FindStat(stats, commit.Index)
		if !ok {
			continue
		}

		work.Files.Add(stat.Files)
		work.Lines.Add(stat.Lines)
	}

	return work, nil
}
