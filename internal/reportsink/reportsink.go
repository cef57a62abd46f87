// Package reportsink optionally uploads Report Adapter measures to an
// S3-compatible bucket -- the natural sink for a generated analysis
// artefact before it reaches the out-of-scope Excel/PDF renderer.
package reportsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/globalfund/allocengine/internal/report"
)

// Sink uploads report measures to one S3-compatible bucket.
type Sink struct {
	uploader *manager.Uploader
	bucket   string
	logger   zerolog.Logger
}

// New builds a Sink for the given bucket/region, using the default AWS
// credential chain (environment, shared config, instance role).
func New(ctx context.Context, bucket, region string, logger zerolog.Logger) (*Sink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config for reportsink: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &Sink{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		logger:   logger.With().Str("component", "reportsink").Logger(),
	}, nil
}

// measureDocument is the JSON shape one measure is uploaded as; it is the
// upload wire format only, not the in-process Measure type.
type measureDocument struct {
	RunID       string   `json:"run_id"`
	GeneratedAt string   `json:"generated_at"`
	Name        string   `json:"name"`
	Label       string   `json:"label,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	Rows        [][]any  `json:"rows,omitempty"`
}

// buildMeasureDocument assembles the JSON wire document for one measure,
// kept separate from UploadMeasure so it can be tested without an S3 client.
func buildMeasureDocument(runID, generatedAt, name string, m report.Measure) measureDocument {
	doc := measureDocument{RunID: runID, GeneratedAt: generatedAt, Name: name}
	if m.Scalar != nil {
		doc.Label = m.Scalar.Label
		v := m.Scalar.Value
		doc.Value = &v
	}
	if m.Table != nil {
		doc.Columns = m.Table.Columns
		doc.Rows = m.Table.Rows
	}
	return doc
}

// UploadMeasure uploads a single named measure as
// "{runID}/{measureName}.json" under the configured bucket.
func (s *Sink) UploadMeasure(ctx context.Context, a *report.Adapter, name string) error {
	m, ok := a.Measure(name)
	if !ok {
		return fmt.Errorf("reportsink: measure %q not registered", name)
	}

	doc := buildMeasureDocument(a.RunID().String(), a.GeneratedAt().Format("2006-01-02T15:04:05Z07:00"), name, m)

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal measure %s: %w", name, err)
	}

	key := fmt.Sprintf("%s/%s.json", doc.RunID, name)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("upload measure %s to s3://%s/%s: %w", name, s.bucket, key, err)
	}
	s.logger.Info().Str("key", key).Msg("uploaded report measure")
	return nil
}

// UploadAll uploads every measure currently registered on the adapter.
func (s *Sink) UploadAll(ctx context.Context, a *report.Adapter) error {
	for _, name := range a.Names() {
		if err := s.UploadMeasure(ctx, a, name); err != nil {
			return err
		}
	}
	return nil
}
