// cmd/replay/main.go
//
// Local backfill tool: parses an ELB access log archive from disk and either
// dumps the records as JSON lines or forwards them to Axiom, using the same
// parser and forwarder as the worker Lambda.
package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ThourayaBchir/elb-lambda-axiom/internal/forwarder"
	"github.com/ThourayaBchir/elb-lambda-axiom/internal/processor"
)

func main() {
	filePath := flag.String("file", "", "path to an ELB access log archive (.gz or plain text)")
	dataset := flag.String("dataset", "", "Axiom dataset name (defaults to DATASET_NAME)")
	batchSize := flag.Int("batch-size", forwarder.DefaultBatchSize, "records per ingest call")
	dryRun := flag.Bool("dry-run", false, "print records as JSON lines instead of forwarding")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if *filePath == "" {
		logger.Fatal("missing -file argument")
	}

	if err := godotenv.Load(); err != nil {
		logger.Info(".env file not found, using environment variables")
	}

	f, err := os.Open(*filePath)
	if err != nil {
		logger.Fatal("failed to open archive", zap.Error(err))
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(*filePath, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			logger.Fatal("failed to open gzip stream", zap.Error(err))
		}
		defer gz.Close()
		reader = gz
	}

	parser := processor.NewParser(os.Getenv("CERT_ARN"), os.Getenv("ACCOUNT_ID"))
	records, err := parser.ParseStream(reader)
	if err != nil {
		logger.Fatal("failed to read logs", zap.Error(err))
	}
	logger.Info("parsed archive",
		zap.Int("lines", len(records)),
		zap.Int("parse_failures", processor.CountFailures(records)))

	if *dryRun {
		enc := json.NewEncoder(os.Stdout)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				logger.Fatal("failed to encode record", zap.Error(err))
			}
		}
		return
	}

	ds := *dataset
	if ds == "" {
		ds = os.Getenv("DATASET_NAME")
	}
	token := os.Getenv("AXIOM_API_TOKEN")
	if ds == "" || token == "" {
		logger.Fatal("DATASET_NAME and AXIOM_API_TOKEN must be set to forward")
	}

	sink := forwarder.NewAxiomSink(os.Getenv("AXIOM_URL"), ds, token,
		&http.Client{Timeout: 30 * time.Second})
	res := forwarder.New(sink, *batchSize, logger).Forward(context.Background(), records)

	logger.Info("replay complete",
		zap.Int("records", res.Total),
		zap.Int("batches", len(res.Outcomes)),
		zap.Int("failed_batches", res.Failed()))
	if n := res.Failed(); n > 0 && n == len(res.Outcomes) {
		os.Exit(1)
	}
}
