package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Sumatoshi-tech/hourglass/pkg/framework"
	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib"
	"github.com/Sumatoshi-tech/hourglass/pkg/hours"
	"github.com/Sumatoshi-tech/hourglass/pkg/identity"
	"github.com/Sumatoshi-tech/hourglass/pkg/plumbing"
)

const tracerName = "hourglass/pipeline"

// botSuffix marks automated authors such as "dependabot[bot]".
const botSuffix = "[bot]"

// ErrEmptyHistory is returned when no commit is left to estimate.
var ErrEmptyHistory = errors.New("no commits to process")

// Options configures Run.
type Options struct {
	Collect CollectOptions
	Mining  framework.Config

	// FileStats mines added, removed and modified file counts. Line stats
	// (Mining.LineStats) imply a mining pass as well.
	FileStats bool

	// Rules canonicalizes author signatures. Nil means no rules.
	Rules *identity.Table

	// OmitUnifyIdentities reports one entry per email instead of per person.
	OmitUnifyIdentities bool

	// IgnoreBots drops authors whose name ends in "[bot]".
	IgnoreBots bool

	// Progress receives mining events. Nil means no observer.
	Progress framework.Progress

	// Logger is the structured logger. When nil, a discard logger is used.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mines reports whether change statistics are needed.
func (o Options) mines() bool {
	return o.FileStats || o.Mining.LineStats
}

// Report is the outcome of a run.
type Report struct {
	hours.Summary `yaml:",inline"`

	// Commits is the number of commits walked, bots included.
	Commits int `json:"commits_walked" yaml:"commits_walked"`
	// Mined is true when file or line statistics were computed.
	Mined bool `json:"mined" yaml:"mined"`
	// LineStats is true when line statistics were computed.
	LineStats bool `json:"line_stats" yaml:"line_stats"`
	// Interrupted is true when cancellation cut the history walk or the
	// mining short; the report then covers only part of the history.
	Interrupted bool          `json:"interrupted" yaml:"interrupted"`
	Elapsed     time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Run estimates the work of every contributor of repo.
func Run(ctx context.Context, repo *gitlib.Repository, opts Options) (report *Report, err error) {
	start := time.Now()
	logger := opts.logger()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "hourglass.run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("run.authors", report.Authors),
				attribute.Bool("run.interrupted", report.Interrupted),
			)
		}

		span.End()
	}()

	records, walkInterrupted, err := CollectCommits(ctx, repo, opts.Collect)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("run.commits", len(records)))

	logger.InfoContext(ctx, "collected commits", "count", len(records))

	rules := opts.Rules
	if rules == nil {
		rules = identity.NewTable(nil)
	}

	authored, bots := resolveAuthors(ctx, logger, records, rules, opts.IgnoreBots)
	if len(authored) == 0 {
		if walkInterrupted {
			return nil, fmt.Errorf("walk history: %w", context.Cause(ctx))
		}

		return nil, ErrEmptyHistory
	}

	if bots > 0 {
		logger.InfoContext(ctx, "ignored bot authors", "count", bots)
	}

	report = &Report{
		Commits:     len(records),
		Mined:       opts.mines(),
		LineStats:   opts.Mining.LineStats,
		Interrupted: walkInterrupted,
	}

	var stats []plumbing.CommitStat

	if report.Mined && !walkInterrupted {
		stats, report.Interrupted, err = mine(ctx, repo, opts, authored)
		if err != nil {
			return nil, err
		}
	}

	works, err := estimateByEmail(authored, stats)
	if err != nil {
		return nil, err
	}

	var people []hours.WorkByPerson
	if opts.OmitUnifyIdentities {
		people = hours.FromEmails(works)
	} else {
		people = hours.Deduplicate(works)
	}

	report.Summary = hours.Summarize(people, bots)
	report.Elapsed = time.Since(start)

	logger.InfoContext(ctx, "estimated hours",
		"authors", report.Authors, "total_hours", report.TotalHours,
		"interrupted", report.Interrupted, "elapsed", report.Elapsed)

	return report, nil
}

// authoredCommit is a record with its resolved author.
type authoredCommit struct {
	CommitRecord

	resolved gitlib.Signature
}

// resolveAuthors applies the rules and drops bots. It returns the surviving
// commits, still newest first, and the number of distinct bot emails dropped.
func resolveAuthors(
	ctx context.Context, logger *slog.Logger, records []CommitRecord, rules *identity.Table, ignoreBots bool,
) ([]authoredCommit, int) {
	out := make([]authoredCommit, 0, len(records))
	bots := make(map[string]struct{})

	for _, record := range records {
		if ignoreBots && strings.HasSuffix(record.Author.Name, botSuffix) {
			if _, seen := bots[record.Author.Email]; !seen {
				logger.DebugContext(ctx, "ignoring bot author",
					"name", record.Author.Name, "email", record.Author.Email, "commit", record.Hash.Short())
			}

			bots[record.Author.Email] = struct{}{}

			continue
		}

		out = append(out, authoredCommit{CommitRecord: record, resolved: rules.Resolve(record.Author)})
	}

	return out, len(bots)
}

// mine computes change statistics of commits. interrupted reports that
// cancellation left some of them unmined.
func mine(
	ctx context.Context, repo *gitlib.Repository, opts Options, commits []authoredCommit,
) ([]plumbing.CommitStat, bool, error) {
	err := gitlib.SetObjectCacheLimit(opts.Mining.ObjectCacheSize)
	if err != nil {
		return nil, false, err
	}

	items := make([]framework.WorkItem, len(commits))
	for i, commit := range commits {
		items[i] = commit.WorkItem()
	}

	stats, interrupted, err := framework.Mine(ctx, repo, opts.Mining, framework.Options{
		Progress: opts.Progress,
		Logger:   opts.Logger,
	}, items)
	if err != nil {
		return nil, false, fmt.Errorf("mine statistics: %w", err)
	}

	return stats, interrupted, nil
}

// estimateByEmail groups commits by resolved email, ordered by email, and
// estimates each group.
func estimateByEmail(commits []authoredCommit, stats []plumbing.CommitStat) ([]hours.WorkByEmail, error) {
	sorted := slices.Clone(commits)
	slices.SortStableFunc(sorted, func(a, b authoredCommit) int {
		return cmp.Compare(a.resolved.Email, b.resolved.Email)
	})

	var works []hours.WorkByEmail

	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].resolved.Email == sorted[start].resolved.Email {
			end++
		}

		group := make([]hours.AuthorCommit, 0, end-start)
		for _, commit := range sorted[start:end] {
			group = append(group, hours.AuthorCommit{Index: commit.Index, Author: commit.resolved})
		}

		work, err := hours.Estimate(group, stats)
		if err != nil {
			return nil, err
		}

		works = append(works, work)
		start = end
	}

	return works, nil
}
