package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"storefront-harvester/export"
	"storefront-harvester/harvester"
	"storefront-harvester/internal/types"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	var (
		originFlag     = flag.String("origin", "", "Storefront origin URL, e.g. https://shop.example.com (required)")
		kindFlag       = flag.String("kind", "products", "What to harvest: products or collections")
		categoriesFlag = flag.String("categories", "", "Comma-separated category names to keep (case-insensitive)")
		withProducts   = flag.Bool("with-products", false, "After a collections harvest, also harvest each collection's products")
		outputFlag     = flag.String("output", "", "Output file path (default: stdout)")
		formatFlag     = flag.String("format", "json", "Output format: json or csv")
		delayFlag      = flag.Duration("delay", 750*time.Millisecond, "Politeness delay between page requests")
		timeoutFlag    = flag.Duration("timeout", 20*time.Second, "Per-request timeout")
		pageSizeFlag   = flag.Int("page-size", 100, "Records requested per page")
		thresholdFlag  = flag.Float64("price-threshold", 1000, "Whole-number prices above this are treated as minor units")
		tokenFlag      = flag.String("token", "", "Bearer token for authenticated endpoints")
		htmlFallback   = flag.Bool("html-fallback", false, "Scrape storefront HTML when every JSON API is unusable")
		useBrowser     = flag.Bool("browser", false, "Render HTML fallback pages with a headless browser")
		verbose        = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if *originFlag == "" {
		log.Fatal("--origin flag is required")
	}

	kind := types.Kind(*kindFlag)
	if kind != types.KindProducts && kind != types.KindCollections {
		log.Fatalf("Unknown kind %q: must be products or collections", *kindFlag)
	}
	if *formatFlag != "json" && *formatFlag != "csv" {
		log.Fatalf("Unknown format %q: must be json or csv", *formatFlag)
	}

	// Setup logging
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	config := types.DefaultConfig()
	config.PageSize = *pageSizeFlag
	config.RequestDelay = *delayFlag
	config.Timeout = *timeoutFlag
	config.MinorUnitThreshold = *thresholdFlag
	config.BearerToken = *tokenFlag
	config.EnableHTMLFallback = *htmlFallback
	config.UseHeadlessBrowser = *useBrowser
	if config.BearerToken == "" {
		config.BearerToken = os.Getenv("HARVEST_TOKEN")
	}

	var filter []string
	if *categoriesFlag != "" {
		for _, c := range strings.Split(*categoriesFlag, ",") {
			if c = strings.TrimSpace(c); c != "" {
				filter = append(filter, c)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	h := harvester.New(config, logger)
	opts := harvester.Options{
		CategoryFilter: filter,
		Progress: func(current, total int) {
			if total > 0 {
				logger.Infof("fetched %d/%d records", current, total)
			} else {
				logger.Infof("fetched %d records", current)
			}
		},
	}

	startTime := time.Now()
	result, err := h.Harvest(ctx, *originFlag, kind, opts)
	if err != nil {
		logger.Fatalf("Harvest failed: %v", err)
	}

	// Explicit second pass per collection keeps the request cost visible.
	if *withProducts && kind == types.KindCollections {
		for _, col := range result.Collections {
			logger.Infof("harvesting products of collection %q", col.Name)
			members, err := h.HarvestCollectionProducts(ctx, *originFlag, col, harvester.Options{Progress: opts.Progress})
			if err != nil {
				logger.Warnf("collection %q products failed: %v", col.Name, err)
				continue
			}
			logger.Infof("collection %q: %d products", col.Name, len(members.Products))
		}
	}

	logger.Infof("harvest completed in %v: %d records, %d pages, %d fallback attempts",
		time.Since(startTime), result.Len(), result.PagesFetched, result.FallbackAttempts)
	for _, pageErr := range result.Errors {
		logger.Warnf("partial failure on page %d of %s: %s", pageErr.Page, pageErr.Endpoint, pageErr.Reason)
	}
	if result.Cancelled {
		logger.Warn("harvest was cancelled, result is partial")
	}

	out := os.Stdout
	if *outputFlag != "" {
		f, err := os.Create(*outputFlag)
		if err != nil {
			logger.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	if *formatFlag == "csv" {
		err = export.WriteCSV(out, result)
	} else {
		err = export.WriteJSON(out, result)
	}
	if err != nil {
		logger.Fatalf("Failed to write output: %v", err)
	}

	if *outputFlag != "" {
		fmt.Fprintf(os.Stderr, "Results written to: %s\n", *outputFlag)
	}
}
