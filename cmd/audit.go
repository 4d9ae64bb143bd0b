package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"seoaudit/internal/config"
	"seoaudit/internal/engine"
	"seoaudit/internal/fetcher"
	"seoaudit/internal/fingerprint"
	"seoaudit/internal/logger"
	"seoaudit/internal/oracle"
	"seoaudit/internal/reporter"
	"seoaudit/internal/store"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Crawl a site and run the full SEO analysis",
	Long: `Audit mode crawls the given URL breadth-first, then runs the link-graph
analysis, duplicate-content clustering and issue aggregation over the
crawled corpus, and writes the combined report.`,
	Run: func(cmd *cobra.Command, args []string) {
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			fmt.Println("Please provide a start URL with the -u flag.")
			os.Exit(1)
		}

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				fmt.Printf("Error loading config: %v\n", err)
				os.Exit(1)
			}
			// No config file is fine; defaults apply.
		}

		logger.Setup(cfg.Logging)

		if err := runAudit(url, cfg, cmd); err != nil {
			fmt.Printf("Audit failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func runAudit(url string, cfg config.Settings, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cfg.Crawler.Options()
	if maxPages, _ := cmd.Flags().GetInt("max-pages"); maxPages > 0 {
		opts.MaxPages = maxPages
	}
	if maxDepth, _ := cmd.Flags().GetInt("max-depth"); maxDepth > 0 {
		opts.MaxDepth = maxDepth
	}

	timeout := fetcher.DefaultTimeout
	if cfg.Crawler.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Crawler.TimeoutSeconds) * time.Second
	}
	var fetch fetcher.Fetcher = fetcher.NewClient(timeout, opts.UserAgent)
	if cfg.Crawler.RenderJS {
		fetch = fetcher.NewRenderingClient(timeout, opts.UserAgent)
	}

	var collector *store.VisitedCollector
	if cfg.Redis.Enabled {
		rdb, err := store.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		collector = store.NewVisitedCollector(rdb, "seoaudit:visited")
	}

	var similarity fingerprint.SimilarityFunc
	if cfg.Oracle.Enabled {
		sim, err := oracle.New(cfg.Oracle.Client)
		if err != nil {
			return fmt.Errorf("failed to build similarity oracle: %w", err)
		}
		similarity = sim
	}

	repo := store.NewMemoryStore()
	eng := engine.New(repo, fetch, similarity, collector)

	sessionID := fmt.Sprintf("crawl-%d", time.Now().Unix())
	if !eng.StartCrawl(ctx, sessionID, url, opts) {
		return fmt.Errorf("crawl of %s did not complete", url)
	}

	graph, err := eng.AnalyzeLinkGraph(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("link graph analysis failed: %w", err)
	}
	duplicates, err := eng.FindDuplicateContent(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("duplicate content analysis failed: %w", err)
	}
	issueReport, err := eng.AggregateIssues(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("issue aggregation failed: %w", err)
	}

	session, err := repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	path := cfg.Reporting.Path
	if outputDir != "" {
		path = outputDir
	}
	rep := reporter.New(path, reporter.Format(cfg.Reporting.Format))
	written, err := rep.Write(&reporter.AuditReport{
		Session:    session,
		LinkGraph:  graph,
		Duplicates: duplicates,
		Issues:     issueReport,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Audit complete: %d pages crawled, score %.1f/100\n", session.PagesCrawled, issueReport.Score)
	fmt.Printf("Report: %s\n", written)
	return nil
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringP("url", "u", "", "Start URL to crawl")
	auditCmd.Flags().Int("max-pages", 0, "Maximum number of pages to crawl (overrides config)")
	auditCmd.Flags().Int("max-depth", 0, "Maximum crawl depth (overrides config)")
}
