// Package ingest loads the problem catalog from the platforms and keeps
// its tags normalized. It backs the cmd/ingest batch job.
//
// Writes are chunked and run through batch.Run: catalog upserts in chunks
// of UpsertBatchSize, tag rewrites in chunks of TagBatchSize. Chunks are
// independent upserts, so a failed run can simply be repeated.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sakif/devcompass/internal/batch"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
	"github.com/sakif/devcompass/internal/tags"
	"github.com/sakif/devcompass/internal/upstream"
)

const (
	UpsertBatchSize = 500
	TagBatchSize    = 100
)

// CodeforcesSource lists the Codeforces problemset.
type CodeforcesSource interface {
	Problemset(ctx context.Context) ([]model.Problem, error)
}

// LeetCodeSource pages through the LeetCode problem list.
type LeetCodeSource interface {
	ProblemList(ctx context.Context, skip, limit int) (*upstream.ProblemPage, error)
}

// SlugSet is a set of LeetCode problem slugs.
type SlugSet map[string]struct{}

func (s SlugSet) Has(slug string) bool {
	_, ok := s[slug]
	return ok
}

// Lists holds the curated study lists that flag LeetCode problems.
type Lists struct {
	Neetcode SlugSet
	Striver  SlugSet
}

type Ingester struct {
	problems repository.ProblemRepository
	workers  int
	pageSize int
	logger   *slog.Logger
}

func New(problems repository.ProblemRepository, workers int, logger *slog.Logger) *Ingester {
	if workers <= 0 {
		workers = batch.DefaultWorkers
	}
	return &Ingester{
		problems: problems,
		workers:  workers,
		pageSize: upstream.DefaultProblemPageSize,
		logger:   logger,
	}
}

// Codeforces upserts every rated problem of the Codeforces problemset.
func (in *Ingester) Codeforces(ctx context.Context, src CodeforcesSource) (int, error) {
	problems, err := src.Problemset(ctx)
	if err != nil {
		return 0, fmt.Errorf("ingest: fetching codeforces problemset: %w", err)
	}
	return in.upsert(ctx, model.PlatformCodeforces, problems)
}

// LeetCode pages through the whole problem list, flags the problems that
// appear in lists, and upserts them.
func (in *Ingester) LeetCode(ctx context.Context, src LeetCodeSource, lists Lists) (int, error) {
	var problems []model.Problem
	for skip := 0; ; {
		page, err := src.ProblemList(ctx, skip, in.pageSize)
		if err != nil {
			return 0, fmt.Errorf("ingest: fetching leetcode problems at %d: %w", skip, err)
		}
		if len(page.Problems) == 0 {
			break
		}
		for _, p := range page.Problems {
			p.IsNeetcode = lists.Neetcode.Has(p.Slug)
			p.IsStriver = lists.Striver.Has(p.Slug)
			problems = append(problems, p)
		}
		skip += len(page.Problems)
		if skip >= page.Total {
			break
		}
	}
	return in.upsert(ctx, model.PlatformLeetCode, problems)
}

func (in *Ingester) upsert(ctx context.Context, platform model.Platform, problems []model.Problem) (int, error) {
	n, err := batch.Run(ctx, problems, UpsertBatchSize, in.workers,
		func(ctx context.Context, chunk []model.Problem) (int, error) {
			return in.problems.UpsertBatch(ctx, chunk)
		})
	if err != nil {
		return n, fmt.Errorf("ingest: upserting %s problems: %w", platform, err)
	}
	in.logger.Info("catalog ingested",
		slog.String("platform", string(platform)),
		slog.Int("fetched", len(problems)),
		slog.Int("upserted", n),
	)
	return n, nil
}

// NormalizeTags rewrites the tags of every problem whose stored tags are
// not already normalized. Running it twice changes nothing the second
// time.
func (in *Ingester) NormalizeTags(ctx context.Context) (int, error) {
	var updates []repository.TagUpdate
	for _, platform := range model.Platforms {
		problems, err := in.problems.ByPlatform(ctx, platform)
		if err != nil {
			return 0, fmt.Errorf("ingest: loading %s problems: %w", platform, err)
		}
		for _, p := range problems {
			normalized := tags.NormalizeAll(p.Tags)
			if tags.Equal(normalized, p.Tags) {
				continue
			}
			updates = append(updates, repository.TagUpdate{ProblemID: p.ID, Tags: normalized})
		}
	}
	if len(updates) == 0 {
		in.logger.Info("tags already normalized")
		return 0, nil
	}

	n, err := batch.Run(ctx, updates, TagBatchSize, in.workers,
		func(ctx context.Context, chunk []repository.TagUpdate) (int, error) {
			return in.problems.UpdateTags(ctx, chunk)
		})
	if err != nil {
		return n, fmt.Errorf("ingest: updating tags: %w", err)
	}
	in.logger.Info("tags normalized", slog.Int("updated", n))
	return n, nil
}

// LoadSlugList reads a newline-delimited slug file. Blank lines and lines
// starting with '#' are skipped. An empty path yields an empty set.
func LoadSlugList(path string) (SlugSet, error) {
	set := make(SlugSet)
	if path == "" {
		return set, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening slug list: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ingest: reading slug list %s: %w", path, err)
	}
	return set, nil
}
