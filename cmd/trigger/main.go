// cmd/trigger/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/ThourayaBchir/elb-lambda-axiom/internal/metrics"
	"github.com/ThourayaBchir/elb-lambda-axiom/internal/models"
)

var (
	sqsClient        *sqs.Client
	s3Client         *s3.Client
	metricsCollector *metrics.Collector
	logger           *zap.Logger
	queueURL         string
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

	sqsClient = sqs.NewFromConfig(cfg)

	// Create S3 client with path-style addressing for LocalStack
	if endpoint != "" {
		s3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = true // CRITICAL: Forces path-style URLs
		})
	} else {
		s3Client = s3.NewFromConfig(cfg)
	}

	queueURL = os.Getenv("QUEUE_URL")

	metricsCollector, err = metrics.NewCollector(ctx, "ElbLogIngest")
	if err != nil {
		logger.Warn("failed to create metrics collector", zap.Error(err))
	}
}

func handler(ctx context.Context, s3Event events.S3Event) error {
	for _, record := range s3Event.Records {
		if err := processRecord(ctx, record); err != nil {
			logger.Error("failed to process record", zap.Error(err))
			if metricsCollector != nil {
				metricsCollector.EmitBatch(ctx, map[string]metrics.MetricValue{
					"TriggerFailures": metrics.Count(1),
				})
			}
			// Continue processing other records instead of failing the whole batch.
			continue
		}
	}
	return nil
}

func processRecord(ctx context.Context, record events.S3EventRecord) error {
	startTime := time.Now()

	bucket := record.S3.Bucket.Name
	key := record.S3.Object.Key

	// ELB delivers access logs as gzip archives; skip everything else
	if !strings.HasSuffix(strings.ToLower(key), ".log.gz") {
		logger.Info("skipping non-archive object", zap.String("key", key))
		return nil
	}

	// Get object metadata
	headResp, err := s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to head object %s/%s: %w", bucket, key, err)
	}

	// The archive base name is unique per load balancer node and interval,
	// which makes it a stable job id
	jobID := strings.TrimSuffix(path.Base(key), ".log.gz")

	// Create processing job
	job := models.ProcessingJob{
		JobID:       jobID,
		Bucket:      bucket,
		Key:         key,
		Size:        *headResp.ContentLength,
		ContentType: aws.ToString(headResp.ContentType),
		ReceivedAt:  record.EventTime,
		ValidatedAt: time.Now(),
	}

	// Serialize and send to SQS
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(jobBytes)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"JobID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(job.JobID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send SQS message: %w", err)
	}

	// Emit metrics
	validationLatency := float64(time.Since(startTime).Milliseconds())
	if metricsCollector != nil {
		metricsCollector.EmitBatch(ctx, map[string]metrics.MetricValue{
			"TriggerValidationLatencyMs": metrics.LatencyMs(validationLatency),
			"TriggerFileSizeBytes":       metrics.Bytes(float64(job.Size)),
			"TriggerInvocations":         metrics.Count(1),
		})
	}

	logger.Info("queued job",
		zap.String("job_id", job.JobID),
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Float64("validation_ms", validationLatency))
	return nil
}

func main() {
	lambda.Start(handler)
}
