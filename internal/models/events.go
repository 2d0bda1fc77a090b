// internal/models/events.go
package models

import "time"

// ProcessingJob represents one S3 log archive queued for ingestion
type ProcessingJob struct {
	JobID       string    `json:"job_id" dynamodbav:"job_id"`
	Bucket      string    `json:"bucket" dynamodbav:"bucket"`
	Key         string    `json:"key" dynamodbav:"key"`
	Size        int64     `json:"size" dynamodbav:"size"`
	ContentType string    `json:"content_type" dynamodbav:"content_type"`
	ReceivedAt  time.Time `json:"received_at" dynamodbav:"received_at"`
	ValidatedAt time.Time `json:"validated_at" dynamodbav:"validated_at"`
}

// RunResult represents the outcome of ingesting one archive
type RunResult struct {
	JobID            string    `json:"job_id" dynamodbav:"job_id"`
	Status           string    `json:"status" dynamodbav:"status"` // "completed", "failed"
	LineCount        int       `json:"line_count,omitempty" dynamodbav:"line_count,omitempty"`
	ParseFailures    int       `json:"parse_failures,omitempty" dynamodbav:"parse_failures,omitempty"`
	BatchCount       int       `json:"batch_count,omitempty" dynamodbav:"batch_count,omitempty"`
	FailedBatches    int       `json:"failed_batches,omitempty" dynamodbav:"failed_batches,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms" dynamodbav:"processing_time_ms"`
	FileSizeBytes    int64     `json:"file_size_bytes" dynamodbav:"file_size_bytes"`
	StartedAt        time.Time `json:"started_at" dynamodbav:"started_at"`
	CompletedAt      time.Time `json:"completed_at" dynamodbav:"completed_at"`
	ErrorMessage     string    `json:"error_message,omitempty" dynamodbav:"error_message,omitempty"`
	ExpiresAt        int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL
}
