// Command snapshot fetches the popular list once, analyzes it and writes the
// exports to a directory.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/atri1011/datafx/internal/adapter"
	"github.com/atri1011/datafx/internal/analysis"
	"github.com/atri1011/datafx/internal/config"
	"github.com/atri1011/datafx/internal/configstore"
	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/export"
	"github.com/atri1011/datafx/internal/service/ai"
	"github.com/atri1011/datafx/internal/service/bilibili"
	"github.com/atri1011/datafx/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	outDir  string
	formats []string
	limit   int
	noAI    bool
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "snapshot",
		Short:         "Fetch, analyze and export the Bilibili popular list once",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory (default EXPORT_DIR)")
	cmd.Flags().StringSliceVarP(&opts.formats, "format", "f", nil, "export formats: csv, json, xlsx (default EXPORT_FORMATS)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "number of videos (default from user config)")
	cmd.Flags().BoolVar(&opts.noAI, "no-ai", false, "skip the AI summary")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "overall deadline")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.Export.Dir
	}
	formats := opts.formats
	if len(formats) == 0 {
		formats = cfg.Export.Formats
	}

	// the redis backend needs the full container; the tool reads the file store
	userCfg, err := configstore.NewFileStore(cfg.Store.FilePath, logger).Load(ctx)
	if err != nil {
		return err
	}
	if opts.limit > 0 {
		userCfg.VideoLimit = opts.limit
	}
	if opts.noAI {
		userCfg.AIAPIKey = ""
	}

	source := bilibili.NewClient(cfg.Bilibili.BaseURL, cfg.Bilibili.Timeout, logger,
		bilibili.WithUserAgent(cfg.Bilibili.UserAgent))
	raw, err := source.FetchPopularVideos(ctx, userCfg.VideoLimit)
	if err != nil {
		logger.Error("Fetch failed", zap.Error(err))
		return err
	}

	router := ai.NewRouter(ai.RouterConfig{
		OpenAIModel: cfg.AI.OpenAIModel,
		GeminiModel: cfg.AI.GeminiModel,
		Timeout:     cfg.AI.Timeout,
	}, logger)
	result, err := analysis.NewPipeline(router, logger).Run(ctx, raw, userCfg)
	if err != nil {
		return err
	}

	paths, err := export.SaveAll(ctx, outDir, result, formats, time.Now())
	if err != nil {
		logger.Error("Export failed", zap.Error(err))
		return err
	}

	printSummary(cmd, result, paths)
	return nil
}

func printSummary(cmd *cobra.Command, result *domain.AnalysisResult, paths []string) {
	report := adapter.NewReportFormatter(5, 10).FormatReport(result, paths)
	fmt.Fprintln(cmd.OutOrStdout(), report)
}
