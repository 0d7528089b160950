package upstream

import (
	"log/slog"

	"github.com/sakif/devcompass/internal/config"
)

// Provider names used in errors, logs and metric labels.
const (
	ProviderCodeforces = "codeforces"
	ProviderLeetCode   = "leetcode"
	ProviderGithub     = "github"
	ProviderAtCoder    = "atcoder"
	ProviderInsight    = "insight"
)

// Clients holds one client per upstream, each behind its own Caller so a
// failing provider trips only its own breaker.
type Clients struct {
	Codeforces *CodeforcesClient
	LeetCode   *LeetCodeClient
	Github     *GithubClient
	AtCoder    *AtCoderClient
	Insight    *InsightClient
}

// NewClients builds every client from configuration.
func NewClients(up config.UpstreamConfig, insight config.InsightConfig, logger *slog.Logger) *Clients {
	caller := func(provider string, cfg config.UpstreamConfig) *Caller {
		return NewCaller(CallerConfig{
			Provider: provider,
			Timeout:  cfg.Timeout,
			Retry: RetryPolicy{
				MaxAttempts: cfg.RetryAttempts,
				BaseDelay:   cfg.RetryBaseDelay,
				Multiplier:  2,
				MaxDelay:    cfg.RetryMaxDelay,
			},
			Breaker: BreakerConfig{
				MinRequests:  cfg.BreakerMinRequests,
				FailureRatio: cfg.BreakerFailureRatio,
				Interval:     DefaultBreakerConfig().Interval,
				OpenTimeout:  cfg.BreakerOpenTimeout,
			},
			RateLimit: cfg.RateLimit,
			Burst:     cfg.Burst,
			UserAgent: cfg.UserAgent,
		}, nil, logger)
	}

	insightCfg := up
	insightCfg.Timeout = insight.Timeout
	// Generation is expensive and not idempotent from the user's view.
	insightCfg.RetryAttempts = 1

	return &Clients{
		Codeforces: NewCodeforcesClient(caller(ProviderCodeforces, up), up.CodeforcesURL, logger),
		LeetCode:   NewLeetCodeClient(caller(ProviderLeetCode, up), up.LeetCodeURL),
		Github:     NewGithubClient(caller(ProviderGithub, up), up.GithubURL, up.GithubToken, up.GithubTimeout),
		AtCoder:    NewAtCoderClient(caller(ProviderAtCoder, up), up.AtCoderURL, up.KenkooooURL),
		Insight:    NewInsightClient(caller(ProviderInsight, insightCfg), insight.WebhookURL, insight.WebhookSecret),
	}
}
