// Command report loads the collected per-repository tables, derives
// per-reviewer aggregates, prints the comparative statistics, and renders
// the study figures.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ericfisherdev/reviewlens/internal/adapter/driven/csvstore"
	sqliteadapter "github.com/ericfisherdev/reviewlens/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewlens/internal/analysis"
	"github.com/ericfisherdev/reviewlens/internal/analysis/plot"
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
		filterOutliers = flag.Bool("filter-outliers", false, "drop per-repo aggregate values outside 1.5*IQR")
		logTransform   = flag.Bool("log-transform", true, "plot log10(1+x) of every value")
		histograms     = flag.Bool("histograms", false, "also render per-repository histograms")
		skipPlots      = flag.Bool("no-plots", false, "print statistics only")
		dataFlag       = flag.String("data", "", "directory holding the collected tables (overrides REVIEWLENS_DATA_DIR)")
		imagesFlag     = flag.String("images", "", "directory for rendered figures (overrides REVIEWLENS_IMAGES_DIR)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *dataFlag != "" {
		cfg.DataDir = *dataFlag
	}
	if *imagesFlag != "" {
		cfg.ImagesDir = *imagesFlag
	}

	store, err := csvstore.NewStore(cfg.DataDir)
	if err != nil {
		return err
	}
	reader := analysis.NewReader(store, *filterOutliers)

	repos := reader.CollectedRepos(model.Registry())
	if len(repos) == 0 {
		return fmt.Errorf("no collected tables found under %s; run collect first", cfg.DataDir)
	}

	printRunLedger(cfg.DBPath)
	printDateRanges(reader, repos)

	for _, metric := range analysis.Metrics() {
		if err := reportMetric(reader, repos, metric); err != nil {
			return err
		}
	}
	reportCorrelations(reader, repos)

	if *skipPlots {
		return nil
	}

	renderer, err := plot.NewRenderer(cfg.ImagesDir, *logTransform)
	if err != nil {
		return err
	}
	return renderPlots(reader, renderer, repos, *histograms)
}

// printRunLedger lists recorded collection runs. The ledger is advisory for
// reporting; a missing or unreadable database only logs a notice.
func printRunLedger(dbPath string) {
	db, err := sqliteadapter.NewDB(dbPath)
	if err != nil {
		slog.Warn("run ledger unavailable", "path", dbPath, "error", err)
		return
	}
	defer db.Close()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		slog.Warn("run ledger migration failed", "error", err)
		return
	}

	runs, err := sqliteadapter.NewRunRepo(db).ListAll(context.Background())
	if err != nil {
		slog.Warn("listing runs failed", "error", err)
		return
	}

	fmt.Println("== Collection runs ==")
	for _, run := range runs {
		fmt.Printf("%s  %s..%s  %d rows  %s\n",
			run.RepoFullName,
			run.WindowStart.Format("2006-01-02"),
			run.WindowEnd.Format("2006-01-02"),
			run.RowCount,
			run.FinishedAt.Format("2006-01-02 15:04"),
		)
	}
	fmt.Println()
}

// printDateRanges summarizes each repository's collected window.
func printDateRanges(reader *analysis.Reader, repos []model.Repository) {
	fmt.Println("== Collected repositories ==")
	for _, repo := range repos {
		start, end, rows, reviewers, err := reader.DateRange(repo)
		if err != nil {
			slog.Warn("date range unavailable", "repo", repo.FullName, "error", err)
			continue
		}
		fmt.Printf("%-14s %s .. %s  (%s)  rows: %d  reviewers: %d\n",
			repo.DisplayName,
			start.Format("02-01-2006"),
			end.Format("02-01-2006"),
			end.Sub(start).Round(24*time.Hour),
			rows,
			reviewers,
		)
	}
	fmt.Println()
}

// categoryValues splits per-repo aggregate values into the two category
// samples, concatenating across repositories.
func categoryValues(reader *analysis.Reader, repos []model.Repository, agg analysis.Aggregator) (industry, community []float64, err error) {
	for _, repo := range repos {
		a, err := reader.Aggregate(repo, agg)
		if err != nil {
			return nil, nil, err
		}
		if repo.IndustryBacked {
			industry = append(industry, a.Values()...)
		} else {
			community = append(community, a.Values()...)
		}
	}
	return industry, community, nil
}

// reportMetric prints the comparative statistics for one metric.
func reportMetric(reader *analysis.Reader, repos []model.Repository, metric analysis.Metric) error {
	industry, community, err := categoryValues(reader, repos, metric.Aggregator)
	if err != nil {
		return err
	}

	fmt.Printf("== %s ==\n", metric.Label)
	fmt.Printf("n: industry=%d community=%d\n", len(industry), len(community))

	for _, group := range []struct {
		name   string
		values []float64
	}{
		{"industry", industry},
		{"community", community},
	} {
		sw, err := analysis.ShapiroWilk(group.values)
		if err != nil {
			fmt.Printf("shapiro-wilk (%s): skipped: %v\n", group.name, err)
			continue
		}
		fmt.Printf("shapiro-wilk (%s): W=%.4f p=%.4g\n", group.name, sw.Statistic, sw.PValue)
	}

	mw, err := analysis.MannWhitneyU(industry, community)
	if err != nil {
		fmt.Printf("mann-whitney: skipped: %v\n", err)
	} else {
		fmt.Printf("mann-whitney: U=%.0f / %d  p=%.4g\n",
			mw.Statistic, len(industry)*len(community), mw.PValue)
	}

	fmt.Printf("cliff's delta: %.4f\n", analysis.CliffsDelta(industry, community))

	groups := make([][]float64, 0, len(repos))
	for _, repo := range repos {
		a, err := reader.Aggregate(repo, metric.Aggregator)
		if err != nil {
			return err
		}
		if len(a) > 0 {
			groups = append(groups, a.Values())
		}
	}
	kw, err := analysis.KruskalWallis(groups...)
	if err != nil {
		fmt.Printf("kruskal-wallis: skipped: %v\n", err)
	} else {
		fmt.Printf("kruskal-wallis (%d repos): H=%.4f p=%.4g\n", len(groups), kw.Statistic, kw.PValue)
	}

	fmt.Println()
	return nil
}

// metricPairs are the metric combinations correlated and scattered.
func metricPairs() [][2]analysis.Metric {
	metrics := analysis.Metrics()
	numReviews, loc, responseTime := metrics[0], metrics[1], metrics[3]
	return [][2]analysis.Metric{
		{numReviews, responseTime},
		{numReviews, loc},
		{responseTime, loc},
	}
}

// reportCorrelations prints Spearman rank correlations per category for each
// metric pair, restricted to reviewers present in both aggregates.
func reportCorrelations(reader *analysis.Reader, repos []model.Repository) {
	fmt.Println("== Spearman rank correlations ==")

	for _, pair := range metricPairs() {
		for _, industryBacked := range []bool{true, false} {
			x, y := mergedCategoryAggregates(reader, repos, pair, industryBacked)

			name := "community"
			if industryBacked {
				name = "industry"
			}

			rho, n, err := analysis.SpearmanByReviewer(x, y)
			if err != nil {
				if errors.Is(err, analysis.ErrTooFewSamples) {
					fmt.Printf("%s vs %s (%s): skipped, %d shared reviewers\n",
						pair[0].Name, pair[1].Name, name, n)
					continue
				}
				slog.Warn("correlation failed", "error", err)
				continue
			}
			fmt.Printf("%s vs %s (%s): rho=%.4f n=%d\n", pair[0].Name, pair[1].Name, name, rho, n)
		}
	}
	fmt.Println()
}

// mergedCategoryAggregates merges one category's per-repo aggregates for
// both metrics of a pair.
func mergedCategoryAggregates(reader *analysis.Reader, repos []model.Repository, pair [2]analysis.Metric, industryBacked bool) (analysis.Aggregate, analysis.Aggregate) {
	var xs, ys []analysis.Aggregate
	for _, repo := range repos {
		if repo.IndustryBacked != industryBacked {
			continue
		}
		if x, err := reader.Aggregate(repo, pair[0].Aggregator); err == nil {
			xs = append(xs, x)
		}
		if y, err := reader.Aggregate(repo, pair[1].Aggregator); err == nil {
			ys = append(ys, y)
		}
	}
	return analysis.Merge(xs...), analysis.Merge(ys...)
}

// renderPlots writes every figure for every metric.
func renderPlots(reader *analysis.Reader, renderer *plot.Renderer, repos []model.Repository, histograms bool) error {
	for _, metric := range analysis.Metrics() {
		var series []plot.Series
		for _, repo := range repos {
			a, err := reader.Aggregate(repo, metric.Aggregator)
			if err != nil {
				return err
			}
			series = append(series, plot.Series{
				Name:           repo.DisplayName,
				IndustryBacked: repo.IndustryBacked,
				Values:         a.Values(),
			})
		}

		if err := renderer.BoxPlot(
			fmt.Sprintf("boxplot_%s_per_repo.png", metric.Name),
			"Repositories", metric.Label, series,
		); err != nil {
			return err
		}

		industry, community, err := categoryValues(reader, repos, metric.Aggregator)
		if err != nil {
			return err
		}

		if err := renderer.BoxPlot(
			fmt.Sprintf("boxplot_%s_per_category.png", metric.Name),
			"Categories", metric.Label,
			[]plot.Series{
				{Name: "Industry-Backed", IndustryBacked: true, Values: industry},
				{Name: "Community-Driven", IndustryBacked: false, Values: community},
			},
		); err != nil {
			return err
		}

		if err := renderer.DensityComparison(
			fmt.Sprintf("density_%s_per_category.png", metric.Name),
			metric.Label, industry, community,
		); err != nil {
			if errors.Is(err, analysis.ErrTooFewSamples) {
				slog.Warn("density plot skipped", "metric", metric.Name, "error", err)
			} else {
				return err
			}
		}

		if histograms {
			for _, s := range series {
				if len(s.Values) == 0 {
					continue
				}
				if err := renderer.Histogram(
					fmt.Sprintf("histogram_%s_%s.png", metric.Name, s.Name),
					fmt.Sprintf("%s in %s", metric.Label, s.Name),
					s.Values, s.IndustryBacked,
				); err != nil {
					return err
				}
			}
		}
	}

	for _, pair := range metricPairs() {
		indX, indY := mergedCategoryAggregates(reader, repos, pair, true)
		comX, comY := mergedCategoryAggregates(reader, repos, pair, false)

		ix, iy := pairedValues(indX, indY)
		cx, cy := pairedValues(comX, comY)

		if err := renderer.ScatterWithFit(
			fmt.Sprintf("scatter_%s_vs_%s.png", pair[0].Name, pair[1].Name),
			pair[0].Label, pair[1].Label,
			ix, iy, cx, cy,
		); err != nil {
			return err
		}
	}

	slog.Info("plots rendered")
	return nil
}

// pairedValues lines up two aggregates over their shared reviewers.
func pairedValues(a, b analysis.Aggregate) (x, y []float64) {
	for reviewer, va := range a {
		vb, ok := b[reviewer]
		if !ok {
			continue
		}
		x = append(x, va)
		y = append(y, vb)
	}
	return x, y
}
