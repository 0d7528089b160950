// Package service contains the business logic layer of the application.
//
// THE THREE LAYERS:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services depend on the repository interfaces and on the small provider
// interfaces below, never on sqlite or on concrete HTTP clients. main.go
// wires the real implementations; tests pass hand-written mocks.
//
// THE VERIFIED-HANDLE GATE:
// Nothing in this package fetches stats or builds recommendations for a
// handle whose VerifiedAt is nil. Every entry point that acts on a
// platform account goes through verifiedHandle first.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
)

// CodeforcesProvider fetches Codeforces stats. *upstream.CodeforcesClient
// implements it.
type CodeforcesProvider interface {
	FetchStats(ctx context.Context, handle string) (*model.CodeforcesStats, error)
}

type LeetCodeProvider interface {
	FetchStats(ctx context.Context, username string) (*model.LeetCodeStats, error)
}

// GithubProvider fetches a GitHub profile. An empty token means "use the
// server's own credentials".
type GithubProvider interface {
	FetchStatsWithToken(ctx context.Context, login, token string) (*model.GithubStats, error)
}

type AtCoderProvider interface {
	FetchStats(ctx context.Context, handle string) (*model.AtCoderStats, error)
}

// ProfileTextSource returns the user-editable text of a public profile,
// which is where verification tokens are placed.
type ProfileTextSource interface {
	ProfileText(ctx context.Context, handle string) (string, error)
}

// InsightGenerator turns a user's stats into coaching text.
// *upstream.InsightClient implements it.
type InsightGenerator interface {
	Generate(ctx context.Context, userID string, stats any) (string, error)
}

// verifiedHandle loads the user's handle on platform and refuses it unless
// it is verified. A missing handle is reported the same way as an
// unverified one so callers get one actionable message.
func verifiedHandle(ctx context.Context, repo repository.HandleRepository, userID string, platform model.Platform) (*model.PlatformHandle, error) {
	h, err := repo.Get(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Forbidden(fmt.Sprintf("link and verify a %s handle first", platform))
		}
		return nil, err
	}
	if !h.Verified() {
		return nil, apperror.Forbidden(fmt.Sprintf("%s handle %q is not verified", platform, h.Handle))
	}
	return h, nil
}
