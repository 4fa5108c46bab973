// Command analyze runs one keyword through the pipeline and prints the
// result as JSON or a markdown report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joelkehle/trendscout/internal/analysis"
	"github.com/joelkehle/trendscout/internal/config"
	"github.com/joelkehle/trendscout/internal/trends"
)

func main() {
	keyword := flag.String("keyword", "", "keyword to analyze")
	comparison := flag.Bool("cmp", false, "enable comparison mode")
	format := flag.String("format", "json", "output format: json or markdown")
	outputPath := flag.String("output", "", "path to write the output (defaults to stdout)")
	flag.Parse()

	if strings.TrimSpace(*keyword) == "" {
		log.Fatal("missing required -keyword")
	}

	cfg, err := config.Parse()
	if err != nil {
		log.Fatal(err)
	}
	pipeline, err := buildPipeline(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := pipeline.RunWithProgress(ctx, *keyword, *comparison, func(ev analysis.ProgressEvent) {
		log.Printf("analyze step=%s progress=%d%%", ev.Step, ev.Percent)
	})
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	out, err := render(res, *format)
	if err != nil {
		log.Fatal(err)
	}
	if err := writeOutput(*outputPath, out); err != nil {
		log.Fatalf("write output: %v", err)
	}
}

func render(res analysis.AnalysisResult, format string) (string, error) {
	switch format {
	case "json":
		blob, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return "", err
		}
		return string(blob) + "\n", nil
	case "markdown", "md":
		return analysis.BuildMarkdown(res), nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or markdown)", format)
	}
}

func writeOutput(path, content string) error {
	if path == "" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func buildPipeline(cfg *config.Config) (*analysis.Pipeline, error) {
	heavyModel := cfg.HeavyModel
	if heavyModel == "" {
		heavyModel = analysis.DefaultHeavyModel
	}
	lightModel := cfg.LightModel
	if lightModel == "" {
		lightModel = analysis.DefaultLightModel
	}

	heavyCaller, err := analysis.NewAnthropicCaller(cfg.AnthropicAPIKey, heavyModel)
	if err != nil {
		return nil, err
	}
	lightCaller, err := analysis.NewAnthropicCaller(cfg.AnthropicAPIKey, lightModel)
	if err != nil {
		return nil, err
	}
	runner := analysis.NewLLMStageRunner(
		analysis.NewStageExecutor(heavyCaller, cfg.MaxRetries, cfg.RetryDelay),
		analysis.NewStageExecutor(lightCaller, cfg.MaxRetries, cfg.RetryDelay),
	)
	fetcher := trends.NewHTTPFetcher(cfg.TrendsBaseURL).WithTimeout(cfg.FetchTimeout)

	pipeline, err := analysis.NewPipeline(fetcher, runner)
	if err != nil {
		return nil, err
	}
	if cfg.CacheTTL > 0 {
		pipeline.WithCacheTTL(cfg.CacheTTL)
	}
	if cfg.EnableCompetitorAnalysis {
		if _, err := pipeline.WithCompetitorFetcher(analysis.NewChromiumFetcher(cfg.ChromeExecPath)); err != nil {
			return nil, err
		}
	}
	return pipeline, nil
}
