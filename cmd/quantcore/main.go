// Package main is the command-line entry point for the quantcore engine.
// It reads a computation request from a JSON file, runs the portfolio
// optimizer and/or the dividend growth forecaster, and writes the results as
// JSON to stdout. All transport concerns (HTTP, persistence, caching) live
// outside this binary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/quantfolio/quantcore/internal/config"
	"github.com/quantfolio/quantcore/internal/modules/portfolio"
	"github.com/quantfolio/quantcore/internal/work"
	"github.com/quantfolio/quantcore/pkg/logger"
)

type output struct {
	Optimization interface{} `json:"optimization,omitempty"`
	Forecast     interface{} `json:"forecast,omitempty"`
	Frontier     interface{} `json:"frontier,omitempty"`
}

func main() {
	var (
		inputPath      = flag.String("input", "", "path to the JSON request file")
		mode           = flag.String("mode", "optimize", "optimize, forecast, frontier or all")
		frontierPoints = flag.Int("frontier-points", 10, "number of efficient frontier points")
		timeout        = flag.Duration("timeout", 2*time.Minute, "request timeout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	if *inputPath == "" {
		log.Fatal().Msg("Missing -input flag")
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *inputPath).Msg("Failed to read request file")
	}

	var req portfolio.Request
	if err := json.Unmarshal(data, &req); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse request")
	}

	pool := work.NewPool(cfg.Workers, log)
	defer pool.Close()

	svc := portfolio.NewService(cfg, pool, log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var out output
	switch *mode {
	case "optimize":
		out.Optimization, err = svc.Optimize(ctx, &req)
	case "forecast":
		out.Forecast, err = svc.Forecast(ctx, &req)
	case "frontier":
		out.Frontier, err = svc.EfficientFrontier(ctx, &req, *frontierPoints)
	case "all":
		out.Optimization, err = svc.Optimize(ctx, &req)
		if err == nil {
			out.Forecast, err = svc.Forecast(ctx, &req)
		}
		if err == nil {
			out.Frontier, err = svc.EfficientFrontier(ctx, &req, *frontierPoints)
		}
	default:
		log.Fatal().Str("mode", *mode).Msg("Unknown mode")
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", *mode).Msg("Computation failed")
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode output")
	}
	if _, err := os.Stdout.Write(append(encoded, '\n')); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}
