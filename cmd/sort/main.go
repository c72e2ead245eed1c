package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/document-sorter/internal/bootstrap"
	"github.com/kirillkom/document-sorter/internal/config"
	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-sorter/internal/observability/logging"
)

const serviceName = "document-sorter-cli"

func main() {
	out := flag.String("out", domain.ArchiveName, "path of the archive to write")
	dir := flag.String("dir", "", "folder whose files are categorized (not recursive)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: sort [-out path] [-dir folder] [file ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *dir == "" && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName, Logger: logger})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	files, err := localfs.NewSource(*dir, flag.Args(), cfg.MaxUploadBytes()).ReadAll(ctx)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	batch, err := app.Categorizer.Categorize(ctx, files)
	if err != nil {
		log.Fatalf("categorize: %v", err)
	}
	if err := localfs.WriteFile(*out, batch.Archive); err != nil {
		log.Fatalf("write archive: %v", err)
	}

	logger.Info("archive_written",
		"path", *out,
		"batch_id", batch.ID,
		"files", len(batch.Results),
		"reports", batch.ReportCount(),
		"bytes", len(batch.Archive),
	)
	for _, bucket := range batch.Buckets() {
		fmt.Fprintf(os.Stderr, "%-20s %d\n", bucket, batch.BucketCounts()[bucket])
	}
}
