// Command replay drives the pipeline over a recorded tick+odds export
// instead of live feeds: no wall clock, no network, one deterministic
// pass ending in a PaperStats report. Grounded on the teacher's
// cmd/scanner/backtest.go entrypoint shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/adapters/notify"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/config"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/replay"
)

func main() {
	file := flag.String("file", "", "path to a tick+odds export (.csv or .jsonl)")
	format := flag.String("format", "", "input format: csv|jsonl (default: inferred from the file extension)")
	balance := flag.Float64("balance", 1000, "starting paper balance")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -file ticks.csv [-format csv|jsonl] [-balance 1000]")
		os.Exit(2)
	}

	f, err := os.Open(*file)
	if err != nil {
		slog.Error("failed to open replay file", "err", err, "path", *file)
		os.Exit(1)
	}
	defer f.Close()

	inputFormat := *format
	if inputFormat == "" {
		inputFormat = inferFormat(*file)
	}

	var rows []replay.Row
	switch inputFormat {
	case "jsonl":
		rows, err = replay.ParseJSONL(f)
	default:
		rows, err = replay.ParseCSV(f)
	}
	if err != nil {
		slog.Error("failed to parse replay input", "err", err, "format", inputFormat)
		os.Exit(1)
	}
	if len(rows) == 0 {
		slog.Warn("no rows parsed from replay input, nothing to do")
		return
	}

	defaults, err := config.Load("")
	if err != nil {
		slog.Error("failed to build default config", "err", err)
		os.Exit(1)
	}
	stratCfg := defaults.Strategy.ToStrategyConfig()
	paperCfg := defaults.Paper.ToPaperConfig()

	result, err := replay.Run(rows, *balance, stratCfg, paperCfg, slog.Default())
	if err != nil {
		slog.Error("replay run failed", "err", err)
		os.Exit(1)
	}

	console := notify.NewConsole()
	if err := console.NotifyReport(context.Background(), result.Stats); err != nil {
		slog.Error("failed to print report", "err", err)
		os.Exit(1)
	}
}

func inferFormat(path string) string {
	if strings.HasSuffix(path, ".jsonl") || strings.HasSuffix(path, ".ndjson") {
		return "jsonl"
	}
	return "csv"
}
