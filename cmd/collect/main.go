// Command collect gathers pull request review metrics for every repository
// in the registry over a date window and writes one CSV table per repository
// plus a run record in the ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericfisherdev/reviewlens/internal/adapter/driven/csvstore"
	githubadapter "github.com/ericfisherdev/reviewlens/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/reviewlens/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewlens/internal/application"
	"github.com/ericfisherdev/reviewlens/internal/config"
	"github.com/ericfisherdev/reviewlens/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		startFlag = flag.String("start", "", "window start date, inclusive (YYYY-MM-DD)")
		endFlag   = flag.String("end", "", "window end date, exclusive (YYYY-MM-DD)")
		repoFlag  = flag.String("repo", "", "collect a single repository (owner/name) instead of the full registry")
		outFlag   = flag.String("out", "", "directory for the collected tables (overrides REVIEWLENS_DATA_DIR)")
		dbFlag    = flag.String("db", "", "path to the run ledger database (overrides REVIEWLENS_DB_PATH)")
	)
	flag.Parse()

	window, err := parseWindow(*startFlag, *endFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.HasGitHubToken() {
		return fmt.Errorf("GITHUB_TOKEN is not set; collection requires an API token")
	}
	if *outFlag != "" {
		cfg.DataDir = *outFlag
	}
	if *dbFlag != "" {
		cfg.DBPath = *dbFlag
	}

	repos := model.Registry()
	if *repoFlag != "" {
		repos, err = selectRepo(repos, *repoFlag)
		if err != nil {
			return err
		}
	}

	slog.Info("config loaded",
		"data_dir", cfg.DataDir,
		"db_path", cfg.DBPath,
		"concurrency", cfg.Concurrency,
		"repos", len(repos),
		"window_start", window.Start.Format("2006-01-02"),
		"window_end", window.End.Format("2006-01-02"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing ledger", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	metrics, err := csvstore.NewStore(cfg.DataDir)
	if err != nil {
		return err
	}

	client := githubadapter.NewClient(cfg.GitHubToken,
		githubadapter.WithRetryMaxElapsed(cfg.RetryMaxElapsed),
	)

	svc := application.NewCollectService(client, metrics, sqliteadapter.NewRunRepo(db), application.Options{
		SkipBotPRs:    cfg.SkipBotPRs,
		SkipNoReviews: cfg.SkipNoReviews,
		Concurrency:   cfg.Concurrency,
		MaxPRsPerRepo: cfg.MaxPRsPerRepo,
	})

	failures, err := svc.CollectAll(ctx, repos, window)
	if err != nil {
		return err
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d repositories failed to collect", failures, len(repos))
	}
	return nil
}

// parseWindow validates the date flags into a half-open [start, end) window.
func parseWindow(start, end string) (model.Window, error) {
	if start == "" || end == "" {
		return model.Window{}, fmt.Errorf("both -start and -end are required (YYYY-MM-DD)")
	}

	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return model.Window{}, fmt.Errorf("invalid -start date %q: %w", start, err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return model.Window{}, fmt.Errorf("invalid -end date %q: %w", end, err)
	}
	if !s.Before(e) {
		return model.Window{}, fmt.Errorf("-start %s must precede -end %s", start, end)
	}

	return model.Window{Start: s.UTC(), End: e.UTC()}, nil
}

// selectRepo narrows the registry to one named repository.
func selectRepo(repos []model.Repository, fullName string) ([]model.Repository, error) {
	for _, repo := range repos {
		if repo.FullName == fullName {
			return []model.Repository{repo}, nil
		}
	}
	return nil, fmt.Errorf("repository %q is not in the registry", fullName)
}
