package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/weakness"
)

// LookupResult is the public stats of any handle. WeakTags is set for
// Codeforces only.
type LookupResult struct {
	Platform model.Platform `json:"platform"`
	Handle   string         `json:"handle"`
	Stats    model.Stats    `json:"stats"`
	WeakTags []string       `json:"weakTags,omitempty"`
}

// LookupService shows the stats of a handle that need not belong to the
// caller, for example to compare against a friend. It reads through the
// stats cache and never builds recommendations or touches the ledger, so
// the verified-handle gate does not apply.
type LookupService struct {
	stats    *StatsFetcher
	validate *validator.Validate
}

func NewLookupService(stats *StatsFetcher) *LookupService {
	return &LookupService{stats: stats, validate: newValidator()}
}

func (s *LookupService) Lookup(ctx context.Context, platform model.Platform, handle string) (*LookupResult, error) {
	if !platform.Valid() {
		return nil, apperror.ValidationFailed("platform", fmt.Sprintf("unknown platform %q", platform))
	}
	handle = strings.TrimSpace(handle)
	if err := s.validate.Struct(linkRequest{Handle: handle}); err != nil {
		return nil, validationError(err)
	}

	stats, err := s.stats.Fetch(ctx, platform, handle)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, apperror.NotFound(string(platform)+" user", handle)
	}

	result := &LookupResult{Platform: platform, Handle: handle, Stats: stats}
	if cf, ok := stats.(*model.CodeforcesStats); ok {
		result.WeakTags = weakness.Tags(weakness.Codeforces(cf.Submissions))
	}
	return result, nil
}
