// Package archive uploads a JSON copy of each live run summary to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
	"deal-tracker/internal/pipeline"
)

// ObjectWriter is satisfied by the S3 client in internal/common/aws.
type ObjectWriter interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
}

type S3Archiver struct {
	writer ObjectWriter
	bucket string
	prefix string
	logger logger.Logger
}

func NewS3Archiver(writer ObjectWriter, bucket, prefix string, log logger.Logger) *S3Archiver {
	return &S3Archiver{
		writer: writer,
		bucket: bucket,
		prefix: prefix,
		logger: log.With(map[string]interface{}{"component": "archive", "bucket": bucket}),
	}
}

// Key is <prefix>runs/<start date>/<run id>.json.
func (a *S3Archiver) Key(summary *pipeline.Summary) string {
	return a.prefix + path.Join("runs", summary.StartedAt.UTC().Format(models.DateLayout), summary.RunID+".json")
}

func (a *S3Archiver) Archive(ctx context.Context, summary *pipeline.Summary) error {
	doc, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.NewArchiveFailedError(err)
	}
	key := a.Key(summary)
	if err := a.writer.Put(ctx, a.bucket, key, bytes.NewReader(doc), "application/json"); err != nil {
		return errors.NewArchiveFailedError(err)
	}
	a.logger.Info("run archived", map[string]interface{}{"key": key, "bytes": len(doc)})
	return nil
}
