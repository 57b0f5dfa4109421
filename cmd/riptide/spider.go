package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/riptide-engine/riptide/internal/models"
	"github.com/riptide-engine/riptide/internal/spider"
)

var (
	spiderSeed     string
	spiderDepth    int
	spiderMaxPages int
	spiderDuration time.Duration
	spiderStrategy string
)

var spiderCmd = &cobra.Command{
	Use:   "spider",
	Short: "Run a multi-page crawl from a seed URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		if spiderSeed == "" {
			return fmt.Errorf("seed URL required: pass --seed")
		}

		rt := buildRuntime(cfg)

		spiderCfg := spider.DefaultConfig()
		spiderCfg.MaxDepth = spiderDepth
		spiderCfg.MaxPages = spiderMaxPages
		spiderCfg.MaxDuration = spiderDuration
		spiderCfg.RobotsTTL = time.Duration(cfg.Spider.RobotsTTLSecs) * time.Second
		spiderCfg.DefaultRPS = cfg.Spider.RequestsPerSecond
		switch spiderStrategy {
		case string(models.StrategyDepthFirst):
			spiderCfg.Strategy = models.StrategyDepthFirst
		case string(models.StrategyBestFirst):
			spiderCfg.Strategy = models.StrategyBestFirst
		default:
			spiderCfg.Strategy = models.StrategyBreadthFirst
		}

		s := spider.New(spiderCfg, rt.orchestrator, rt.budgetMgr)

		ctx := context.Background()
		if spiderDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, spiderDuration)
			defer cancel()
		}

		summary := s.Crawl(ctx, []string{spiderSeed})

		fmt.Printf("pages_crawled=%d pages_failed=%d stop_reason=%s\n",
			summary.PagesCrawled, summary.PagesFailed, summary.StopReason)
		for domain, count := range summary.Domains {
			fmt.Printf("  %-40s %d\n", domain, count)
		}
		return nil
	},
}

func init() {
	spiderCmd.Flags().StringVar(&spiderSeed, "seed", "", "seed URL to start from")
	spiderCmd.Flags().IntVar(&spiderDepth, "depth", 3, "maximum crawl depth")
	spiderCmd.Flags().IntVar(&spiderMaxPages, "max-pages", 1000, "maximum pages to crawl")
	spiderCmd.Flags().DurationVar(&spiderDuration, "duration", 10*time.Minute, "maximum crawl duration")
	spiderCmd.Flags().StringVar(&spiderStrategy, "strategy", string(models.StrategyBreadthFirst), "frontier strategy (breadth_first|depth_first|best_first)")
}
