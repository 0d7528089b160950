package service

import (
	"context"
	"fmt"

	"github.com/sakif/devcompass/internal/cache"
	"github.com/sakif/devcompass/internal/model"
)

// StatsFetcher reads per-platform stats through the stats cache. Each
// method returns the typed stats or the provider's error; nothing is
// cached unless the fetch succeeded.
type StatsFetcher struct {
	cache      *cache.StatsCache
	codeforces CodeforcesProvider
	leetcode   LeetCodeProvider
	github     GithubProvider
	atcoder    AtCoderProvider
}

func NewStatsFetcher(c *cache.StatsCache, cf CodeforcesProvider, lc LeetCodeProvider, gh GithubProvider, ac AtCoderProvider) *StatsFetcher {
	return &StatsFetcher{cache: c, codeforces: cf, leetcode: lc, github: gh, atcoder: ac}
}

func (f *StatsFetcher) Codeforces(ctx context.Context, handle string) (*model.CodeforcesStats, error) {
	return cache.GetOrFetch(ctx, f.cache, model.PlatformCodeforces, handle,
		func(ctx context.Context) (*model.CodeforcesStats, error) {
			return f.codeforces.FetchStats(ctx, handle)
		})
}

func (f *StatsFetcher) LeetCode(ctx context.Context, username string) (*model.LeetCodeStats, error) {
	return cache.GetOrFetch(ctx, f.cache, model.PlatformLeetCode, username,
		func(ctx context.Context) (*model.LeetCodeStats, error) {
			return f.leetcode.FetchStats(ctx, username)
		})
}

// Github keys the cache by login only; the token just decides which
// credentials a miss is fetched with.
func (f *StatsFetcher) Github(ctx context.Context, login, token string) (*model.GithubStats, error) {
	return cache.GetOrFetch(ctx, f.cache, model.PlatformGitHub, login,
		func(ctx context.Context) (*model.GithubStats, error) {
			return f.github.FetchStatsWithToken(ctx, login, token)
		})
}

func (f *StatsFetcher) AtCoder(ctx context.Context, handle string) (*model.AtCoderStats, error) {
	return cache.GetOrFetch(ctx, f.cache, model.PlatformAtCoder, handle,
		func(ctx context.Context) (*model.AtCoderStats, error) {
			return f.atcoder.FetchStats(ctx, handle)
		})
}

// Fetch returns the stats of any platform as the common Stats interface.
// A nil result is a nil interface, never a typed nil pointer.
func (f *StatsFetcher) Fetch(ctx context.Context, platform model.Platform, handle string) (model.Stats, error) {
	switch platform {
	case model.PlatformCodeforces:
		s, err := f.Codeforces(ctx, handle)
		if err != nil || s == nil {
			return nil, err
		}
		return s, nil
	case model.PlatformLeetCode:
		s, err := f.LeetCode(ctx, handle)
		if err != nil || s == nil {
			return nil, err
		}
		return s, nil
	case model.PlatformGitHub:
		s, err := f.Github(ctx, handle, "")
		if err != nil || s == nil {
			return nil, err
		}
		return s, nil
	case model.PlatformAtCoder:
		s, err := f.AtCoder(ctx, handle)
		if err != nil || s == nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("service: no stats provider for platform %q", platform)
}

// Invalidate drops the cached stats of handle on platform.
func (f *StatsFetcher) Invalidate(ctx context.Context, platform model.Platform, handle string) error {
	return f.cache.Invalidate(ctx, platform, handle)
}
