// Command rxcheck resolves medication names against the reference files and reports
// interactions between them, without any model calls.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/giygas/rxscan-api/analysis"
	"github.com/giygas/rxscan-api/config"
	"github.com/giygas/rxscan-api/data"
	"github.com/giygas/rxscan-api/logging"
	"github.com/giygas/rxscan-api/reference"
	"github.com/giygas/rxscan-api/resolver"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := ff.NewFlagSet("rxcheck")
	var (
		drugsPath        = fs.StringLong("drugs", "data/drugs.csv", "Drug vocabulary CSV")
		interactionsPath = fs.StringLong("interactions", "data/interactions.csv", "Interaction table CSV")
		infoPath         = fs.StringLong("info", "data/drug_info.csv", "Drug details CSV")
		text             = fs.StringLong("text", "", "Free text to scan for medication names")
		fuzzyThreshold   = fs.IntLong("fuzzy-threshold", resolver.DefaultThreshold, "Minimum score for a fuzzy name match")
		textThreshold    = fs.IntLong("text-threshold", resolver.DefaultTextThreshold, "Minimum score for names found in free text")
		asJSON           = fs.BoolLong("json", "Print the full report as JSON")
		verbose          = fs.BoolLong("verbose", "Log reference loading details")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("RXCHECK")); err != nil {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs, "Usage: rxcheck [flags] NAME..."))
		if errors.Is(err, ff.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logging.InitLoggerWithOptions(logging.Options{
		Env:    config.EnvDevelopment,
		Level:  level,
		Output: stderr,
	})

	names := fs.GetArgs()
	if len(names) == 0 && strings.TrimSpace(*text) == "" {
		fmt.Fprintln(stderr, "error: give at least one medication name or --text")
		return 2
	}

	loader := reference.Loader{
		DrugsPath:        *drugsPath,
		InteractionsPath: *interactionsPath,
		InfoPath:         *infoPath,
	}
	dc := data.NewDataContainer()
	dc.UpdateStore(loader.Load())

	service := analysis.NewService(dc, analysis.WithThresholds(*fuzzyThreshold, *textThreshold))
	report := service.AnalyzeNames(ctx, names, *text, analysis.DefaultLang)

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintln(stdout, report.Summary)
	return 0
}
