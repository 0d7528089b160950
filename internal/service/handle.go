package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
)

// TokenPrefix starts every verification token.
const TokenPrefix = "DEVCOMPASS-"

// linkRequest is validated before a handle is stored.
type linkRequest struct {
	Handle string `validate:"required,max=64,nospace"`
}

// HandleService links platform accounts to users and proves ownership.
//
// Verification works by asking the user to paste a token into a free-text
// field of their public profile (Codeforces name/organization, LeetCode
// "About me", GitHub bio). Verify then reads that text back through the
// platform's ProfileTextSource.
type HandleService struct {
	repo     repository.HandleRepository
	profiles map[model.Platform]ProfileTextSource
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewHandleService(repo repository.HandleRepository, profiles map[model.Platform]ProfileTextSource, logger *slog.Logger) *HandleService {
	return &HandleService{
		repo:     repo,
		profiles: profiles,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// Link stores handle as the user's account on platform. Re-linking a
// different handle drops any verification of the old one.
func (s *HandleService) Link(ctx context.Context, userID string, platform model.Platform, handle string) (*model.PlatformHandle, error) {
	if !platform.Valid() {
		return nil, apperror.ValidationFailed("platform", fmt.Sprintf("unknown platform %q", platform))
	}
	handle = strings.TrimSpace(handle)
	if err := s.validate.Struct(linkRequest{Handle: handle}); err != nil {
		return nil, validationError(err)
	}

	h := &model.PlatformHandle{
		UserID:   userID,
		Platform: platform,
		Handle:   handle,
		URL:      platform.ProfileURL(handle),
	}
	if err := s.repo.Upsert(ctx, h); err != nil {
		s.logger.Error("failed to link handle",
			slog.String("user_id", userID),
			slog.String("platform", string(platform)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("linking %s handle: %w", platform, err)
	}

	s.logger.Info("handle linked",
		slog.String("user_id", userID),
		slog.String("platform", string(platform)),
		slog.String("handle", handle),
	)
	return h, nil
}

// IssueToken generates a fresh verification token for the user's handle on
// platform. Any earlier verification is revoked until the new token is
// confirmed.
func (s *HandleService) IssueToken(ctx context.Context, userID string, platform model.Platform) (string, error) {
	if _, ok := s.profiles[platform]; !ok {
		return "", apperror.ValidationFailed("platform",
			fmt.Sprintf("%s handles cannot be verified through a profile token", platform))
	}
	if _, err := s.repo.Get(ctx, userID, platform); err != nil {
		return "", err
	}

	token := newVerificationToken()
	if err := s.repo.SetVerificationToken(ctx, userID, platform, token); err != nil {
		return "", fmt.Errorf("storing verification token: %w", err)
	}
	return token, nil
}

// newVerificationToken returns "DEVCOMPASS-" followed by 8 upper-case hex
// characters taken from a random UUID.
func newVerificationToken() string {
	id := uuid.New()
	return TokenPrefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// Verify checks that the pending token appears in the user's public
// profile and, if so, marks the handle verified.
func (s *HandleService) Verify(ctx context.Context, userID string, platform model.Platform) (*model.PlatformHandle, error) {
	source, ok := s.profiles[platform]
	if !ok {
		return nil, apperror.ValidationFailed("platform",
			fmt.Sprintf("%s handles cannot be verified through a profile token", platform))
	}
	h, err := s.repo.Get(ctx, userID, platform)
	if err != nil {
		return nil, err
	}
	if h.VerificationToken == nil || *h.VerificationToken == "" {
		return nil, apperror.ValidationFailed("token", "request a verification token first")
	}

	text, err := source.ProfileText(ctx, h.Handle)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(text, *h.VerificationToken) {
		return nil, apperror.ValidationFailed("token", fmt.Sprintf(
			"token %s not found on %s profile %q; add it to %s and try again",
			*h.VerificationToken, platform, h.Handle, profileField(platform)))
	}

	if err := s.MarkVerified(ctx, userID, platform); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, platform)
}

// MarkVerified verifies a handle without a token. It is the operator path
// for platforms that have no editable profile text.
func (s *HandleService) MarkVerified(ctx context.Context, userID string, platform model.Platform) error {
	if err := s.repo.MarkVerified(ctx, userID, platform, s.now()); err != nil {
		return err
	}
	s.logger.Info("handle verified",
		slog.String("user_id", userID),
		slog.String("platform", string(platform)),
	)
	return nil
}

func (s *HandleService) List(ctx context.Context, userID string) ([]model.PlatformHandle, error) {
	return s.repo.ListByUser(ctx, userID)
}

func profileField(p model.Platform) string {
	switch p {
	case model.PlatformCodeforces:
		return "your first name, last name or organization"
	case model.PlatformLeetCode:
		return `your "About me" section`
	case model.PlatformGitHub:
		return "your bio"
	}
	return "your profile"
}
