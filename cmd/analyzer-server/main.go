package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joelkehle/trendscout/internal/analysis"
	"github.com/joelkehle/trendscout/internal/config"
	"github.com/joelkehle/trendscout/internal/httpapi"
	"github.com/joelkehle/trendscout/internal/progress"
	"github.com/joelkehle/trendscout/internal/telemetry"
	"github.com/joelkehle/trendscout/internal/trends"
)

func main() {
	addrFlag := flag.String("addr", "", "listen address (overrides TRENDSCOUT_ADDRESS)")
	webDirFlag := flag.String("web-dir", "", "static frontend directory (overrides TRENDSCOUT_WEB_DIR)")
	flag.Parse()

	cfg, err := config.Parse()
	if err != nil {
		log.Fatal(err)
	}
	if *addrFlag != "" {
		cfg.Address = *addrFlag
	}
	if *webDirFlag != "" {
		cfg.WebDir = *webDirFlag
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.EnableTracing)
	if err != nil {
		log.Fatalf("tracing setup: %v", err)
	}

	pipeline, err := buildPipeline(cfg)
	if err != nil {
		log.Fatal(err)
	}

	registry := progress.NewRegistry()
	srv := &http.Server{
		Addr:    cfg.Address,
		Handler: httpapi.NewServer(pipeline, registry, cfg.WebDir),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("trendscout listening on %s (competitors=%t tracing=%t)", cfg.Address, cfg.EnableCompetitorAnalysis, cfg.EnableTracing)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	if err := shutdownTracing(context.Background()); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
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
