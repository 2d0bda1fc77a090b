// cmd/worker/main.go
package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ThourayaBchir/elb-lambda-axiom/internal/forwarder"
	"github.com/ThourayaBchir/elb-lambda-axiom/internal/metrics"
	"github.com/ThourayaBchir/elb-lambda-axiom/internal/models"
	"github.com/ThourayaBchir/elb-lambda-axiom/internal/processor"
)

var (
	s3Client         *s3.Client
	ddbClient        *dynamodb.Client
	metricsCollector *metrics.Collector
	logger           *zap.Logger
	parser           *processor.Parser
	fwd              *forwarder.Forwarder
	tableName        string
)

func init() {
	ctx := context.Background()

	logger, _ = zap.NewProduction()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// LocalStack support
	endpoint := os.Getenv("AWS_ENDPOINT_URL")

	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	// Create S3 client with path-style addressing for LocalStack
	if endpoint != "" {
		s3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = true // CRITICAL: Forces path-style URLs
		})
	} else {
		s3Client = s3.NewFromConfig(cfg)
	}

	ddbClient = dynamodb.NewFromConfig(cfg)
	tableName = os.Getenv("DYNAMODB_TABLE")

	parser = processor.NewParser(os.Getenv("CERT_ARN"), os.Getenv("ACCOUNT_ID"))

	batchSize := forwarder.DefaultBatchSize
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			batchSize = n
		}
	}
	sink := forwarder.NewAxiomSink(
		os.Getenv("AXIOM_URL"),
		os.Getenv("DATASET_NAME"),
		os.Getenv("AXIOM_API_TOKEN"),
		&http.Client{Timeout: 30 * time.Second},
	)
	fwd = forwarder.New(sink, batchSize, logger)

	metricsCollector, err = metrics.NewCollector(ctx, "ElbLogIngest")
	if err != nil {
		logger.Warn("failed to create metrics collector", zap.Error(err))
	}
}

func handler(ctx context.Context, sqsEvent events.SQSEvent) error {
	for _, record := range sqsEvent.Records {
		if err := processMessage(ctx, record); err != nil {
			logger.Error("failed to process message", zap.Error(err))
			// Return error to trigger retry/DLQ
			return err
		}
	}
	return nil
}

func processMessage(ctx context.Context, record events.SQSMessage) error {
	startTime := time.Now()

	// Parse job from SQS message
	var job models.ProcessingJob
	if err := json.Unmarshal([]byte(record.Body), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	logger.Info("processing job",
		zap.String("job_id", job.JobID),
		zap.String("bucket", job.Bucket),
		zap.String("key", job.Key))

	// Fetch archive from S3
	getResp, err := s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(job.Bucket),
		Key:    aws.String(job.Key),
	})
	if err != nil {
		return saveFailedResult(ctx, job, startTime, fmt.Errorf("failed to get S3 object: %w", err))
	}
	defer getResp.Body.Close()

	gz, err := gzip.NewReader(getResp.Body)
	if err != nil {
		return saveFailedResult(ctx, job, startTime, fmt.Errorf("failed to open gzip stream: %w", err))
	}
	defer gz.Close()

	// Parse every line; grammar mismatches become failure records, only a
	// broken stream aborts the run
	records, err := parser.ParseStream(gz)
	if err != nil {
		return saveFailedResult(ctx, job, startTime, fmt.Errorf("failed to read logs: %w", err))
	}
	parseFailures := processor.CountFailures(records)

	// Forward in batches; rejected batches are recorded, not fatal unless
	// every batch was rejected
	res := fwd.Forward(ctx, records)
	failedBatches := res.Failed()
	if len(res.Outcomes) > 0 && failedBatches == len(res.Outcomes) {
		return saveFailedResult(ctx, job, startTime,
			fmt.Errorf("all %d batches rejected by ingest endpoint", failedBatches))
	}

	// Build result
	result := models.RunResult{
		JobID:            job.JobID,
		Status:           "completed",
		LineCount:        res.Total,
		ParseFailures:    parseFailures,
		BatchCount:       len(res.Outcomes),
		FailedBatches:    failedBatches,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		FileSizeBytes:    job.Size,
		StartedAt:        startTime,
		CompletedAt:      time.Now(),
		ExpiresAt:        time.Now().Add(7 * 24 * time.Hour).Unix(), // 7-day TTL
	}

	// Save to DynamoDB
	if err := saveResult(ctx, result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	// Emit metrics
	if metricsCollector != nil {
		metricsCollector.EmitBatch(ctx, map[string]metrics.MetricValue{
			"WorkerProcessingLatencyMs": metrics.LatencyMs(float64(result.ProcessingTimeMs)),
			"WorkerLinesParsed":         metrics.Count(float64(result.LineCount)),
			"WorkerParseFailures":       metrics.Count(float64(result.ParseFailures)),
			"WorkerBatchesFailed":       metrics.Count(float64(result.FailedBatches)),
			"WorkerSuccessCount":        metrics.Count(1),
		})
	}

	logger.Info("completed job",
		zap.String("job_id", job.JobID),
		zap.Int("lines", result.LineCount),
		zap.Int("parse_failures", result.ParseFailures),
		zap.Int("failed_batches", result.FailedBatches),
		zap.Int64("processing_ms", result.ProcessingTimeMs))
	return nil
}

func saveResult(ctx context.Context, result models.RunResult) error {
	item, err := attributevalue.MarshalMap(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      item,
	})
	return err
}

func saveFailedResult(ctx context.Context, job models.ProcessingJob, startTime time.Time, processErr error) error {
	result := models.RunResult{
		JobID:            job.JobID,
		Status:           "failed",
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		FileSizeBytes:    job.Size,
		StartedAt:        startTime,
		CompletedAt:      time.Now(),
		ErrorMessage:     processErr.Error(),
		ExpiresAt:        time.Now().Add(7 * 24 * time.Hour).Unix(),
	}

	if err := saveResult(ctx, result); err != nil {
		logger.Error("failed to save error result", zap.Error(err))
	}

	if metricsCollector != nil {
		metricsCollector.EmitBatch(ctx, map[string]metrics.MetricValue{
			"WorkerFailureCount": metrics.Count(1),
		})
	}

	return processErr
}

func main() {
	lambda.Start(handler)
}
