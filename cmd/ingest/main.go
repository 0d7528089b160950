// Command ingest loads the problem catalog and maintains it.
//
// Usage:
//
//	ingest [-codeforces] [-leetcode] [-neetcode FILE] [-striver FILE] [-normalize]
//	ingest -verify USER:PLATFORM
//
// With no job flag it runs both catalog imports followed by the tag
// normalization pass. -verify marks a linked handle verified without a
// token, for platforms such as AtCoder that have no editable profile text.
// The job is one-shot: every write is an upsert, so a failed run is simply
// run again.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sakif/devcompass/internal/config"
	"github.com/sakif/devcompass/internal/ingest"
	"github.com/sakif/devcompass/internal/logging"
	"github.com/sakif/devcompass/internal/model"
	sqliteRepo "github.com/sakif/devcompass/internal/repository/sqlite"
	"github.com/sakif/devcompass/internal/service"
	"github.com/sakif/devcompass/internal/upstream"
)

type options struct {
	codeforces bool
	leetcode   bool
	normalize  bool
	neetcode   string
	striver    string
	verify     string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var opts options
	flag.BoolVar(&opts.codeforces, "codeforces", false, "import the Codeforces problemset")
	flag.BoolVar(&opts.leetcode, "leetcode", false, "import the LeetCode problem list")
	flag.BoolVar(&opts.normalize, "normalize", false, "rewrite stored tags into normalized form")
	flag.StringVar(&opts.neetcode, "neetcode", cfg.Ingest.NeetcodeList, "file of NeetCode slugs, one per line")
	flag.StringVar(&opts.striver, "striver", cfg.Ingest.StriverList, "file of Striver sheet slugs, one per line")
	flag.StringVar(&opts.verify, "verify", "", "mark USER:PLATFORM verified and exit")
	flag.Parse()

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options, logger *slog.Logger) error {
	if err := os.MkdirAll(dirOf(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.verify != "" {
		return verify(ctx, db, opts.verify, logger)
	}

	if !opts.codeforces && !opts.leetcode && !opts.normalize {
		opts.codeforces, opts.leetcode, opts.normalize = true, true, true
	}

	clients := upstream.NewClients(cfg.Upstream, cfg.Insight, logger)
	in := ingest.New(db, cfg.Ingest.Workers, logger)

	if opts.codeforces {
		if _, err := in.Codeforces(ctx, clients.Codeforces); err != nil {
			return err
		}
	}
	if opts.leetcode {
		neetcode, err := ingest.LoadSlugList(opts.neetcode)
		if err != nil {
			return err
		}
		striver, err := ingest.LoadSlugList(opts.striver)
		if err != nil {
			return err
		}
		lists := ingest.Lists{Neetcode: neetcode, Striver: striver}
		if _, err := in.LeetCode(ctx, clients.LeetCode, lists); err != nil {
			return err
		}
	}
	if opts.normalize {
		if _, err := in.NormalizeTags(ctx); err != nil {
			return err
		}
	}
	return nil
}

func verify(ctx context.Context, db *sqliteRepo.DB, target string, logger *slog.Logger) error {
	userID, platformName, ok := strings.Cut(target, ":")
	if !ok || userID == "" {
		return errors.New("-verify expects USER:PLATFORM")
	}
	platform, err := model.ParsePlatform(platformName)
	if err != nil {
		return err
	}
	handles := service.NewHandleService(db, nil, logger)
	return handles.MarkVerified(ctx, userID, platform)
}

func dirOf(path string) string {
	if path == ":memory:" {
		return "."
	}
	i := strings.LastIndexAny(path, `/\`)
	if i < 0 {
		return "."
	}
	return path[:i]
}
