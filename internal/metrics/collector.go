// internal/metrics/collector.go
package metrics

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Collector emits custom CloudWatch metrics for the ingestion pipeline
type Collector struct {
	client    *cloudwatch.Client
	namespace string
	dims      []types.Dimension
}

// NewCollector creates a collector publishing under the given namespace
func NewCollector(ctx context.Context, namespace string) (*Collector, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Check for LocalStack endpoint
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	client := cloudwatch.NewFromConfig(cfg)

	dims := []types.Dimension{
		{
			Name:  aws.String("Environment"),
			Value: aws.String(getEnvironment()),
		},
		{
			Name:  aws.String("Service"),
			Value: aws.String("elb-log-ingest"),
		},
	}

	return &Collector{
		client:    client,
		namespace: namespace,
		dims:      dims,
	}, nil
}

// EmitCount records a single count metric
func (c *Collector) EmitCount(ctx context.Context, name string, value float64) error {
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(c.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       types.StandardUnitCount,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: c.dims,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to emit metric %s: %w", name, err)
	}
	return nil
}

// EmitBatch sends multiple metrics in one call
func (c *Collector) EmitBatch(ctx context.Context, metrics map[string]MetricValue) error {
	if len(metrics) == 0 {
		return nil
	}

	data := make([]types.MetricDatum, 0, len(metrics))
	timestamp := aws.Time(time.Now())

	for name, mv := range metrics {
		data = append(data, types.MetricDatum{
			MetricName: aws.String(name),
			Value:      aws.Float64(mv.Value),
			Unit:       mv.Unit,
			Timestamp:  timestamp,
			Dimensions: c.dims,
		})
	}

	// CloudWatch accepts max 1000 metrics per call, batch if needed
	for i := 0; i < len(data); i += 1000 {
		end := i + 1000
		if end > len(data) {
			end = len(data)
		}

		_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(c.namespace),
			MetricData: data[i:end],
		})
		if err != nil {
			return fmt.Errorf("failed to emit batch metrics: %w", err)
		}
	}

	return nil
}

// MetricValue holds a metric value and its unit
type MetricValue struct {
	Value float64
	Unit  types.StandardUnit
}

// LatencyMs creates a milliseconds metric value
func LatencyMs(v float64) MetricValue {
	return MetricValue{Value: v, Unit: types.StandardUnitMilliseconds}
}

// Count creates a count metric value
func Count(v float64) MetricValue {
	return MetricValue{Value: v, Unit: types.StandardUnitCount}
}

// Bytes creates a bytes metric value
func Bytes(v float64) MetricValue {
	return MetricValue{Value: v, Unit: types.StandardUnitBytes}
}

// getEnvironment returns the current environment
func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}
