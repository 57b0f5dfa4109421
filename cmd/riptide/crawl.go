package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/riptide-engine/riptide/internal/models"
)

var (
	crawlURL         string
	crawlURLFile     string
	crawlConcurrency int
	crawlOutputJSON  bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl one or more URLs and print the extracted results",
	RunE: func(cmd *cobra.Command, args []string) error {
		urls, err := resolveCrawlTargets(args)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("no URLs given: pass one or more arguments, -u, or --url-file")
		}

		rt := buildRuntime(cfg)
		opts := models.DefaultCrawlOptions()
		if crawlConcurrency > 0 {
			opts.Concurrency = crawlConcurrency
		}

		bar := progressbar.Default(int64(len(urls)), "crawling")
		results := make([]models.CrawlResult, 0, len(urls))
		stats := rt.orchestrator.ExecuteStream(context.Background(), urls, opts, func(r models.CrawlResult) {
			results = append(results, r)
			_ = bar.Add(1)
		})
		_ = bar.Finish()

		if crawlOutputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		cachedCount := 0
		fmt.Println()
		for _, r := range results {
			status := "ok"
			if r.Error != nil {
				status = "error: " + r.Error.Message
			}
			if r.FromCache {
				cachedCount++
			}
			title := ""
			if r.Document != nil {
				title = r.Document.Title
			}
			fmt.Printf("%-60s %-10s %s\n", r.URL, status, title)
		}
		fmt.Println()
		fmt.Printf("total=%d success=%d failed=%d cached=%d mean_ms=%.1f\n",
			len(results), stats.SuccessCount, stats.FailureCount, cachedCount, stats.MeanProcessingMs)
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVarP(&crawlURL, "url", "u", "", "single target URL")
	crawlCmd.Flags().StringVarP(&crawlURLFile, "url-file", "f", "", "file containing one URL per line")
	crawlCmd.Flags().IntVar(&crawlConcurrency, "concurrency", 0, "override default concurrency")
	crawlCmd.Flags().BoolVar(&crawlOutputJSON, "json", false, "print results as a JSON array instead of a table")
}

func resolveCrawlTargets(args []string) ([]string, error) {
	urls := append([]string{}, args...)
	if crawlURL != "" {
		urls = append(urls, crawlURL)
	}
	if crawlURLFile != "" {
		data, err := os.ReadFile(crawlURLFile)
		if err != nil {
			return nil, fmt.Errorf("reading url file: %w", err)
		}
		for _, line := range splitLines(string(data)) {
			if line != "" {
				urls = append(urls, line)
			}
		}
	}
	return urls, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			line := s[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
