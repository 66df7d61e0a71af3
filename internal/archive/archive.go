// Package archive persists finished execution reports to a blob bucket so
// runs can be inspected after the engine forgets them
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gocloud.dev/blob"

	"github.com/lisahq/lisaflow/pkg/api"
	"github.com/lisahq/lisaflow/pkg/log"
)

type (
	// Archiver writes execution reports to a bucket as JSON objects keyed
	// by completion date and run ID
	Archiver struct {
		bucket BucketWriter
		prefix string
	}

	// BucketWriter is the subset of blob.Bucket the archiver needs
	BucketWriter interface {
		WriteAll(context.Context, string, []byte, *blob.WriterOptions) error
	}

	archiveObject struct {
		ArchivedAt time.Time            `json:"archived_at"`
		Report     *api.ExecutionReport `json:"report"`
	}
)

var (
	ErrBucketRequired = errors.New("bucket is required")
	ErrReportRequired = errors.New("report is required")
)

// New creates an archiver over the given bucket. The prefix, when set,
// becomes the leading path segment of every object key
func New(bucket BucketWriter, prefix string) (*Archiver, error) {
	if bucket == nil {
		return nil, ErrBucketRequired
	}
	return &Archiver{
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Open connects to the bucket named by a gocloud URL (s3://, gs://, mem://,
// file://) and wraps it in an archiver
func Open(ctx context.Context, bucketURL, prefix string) (*Archiver, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return New(bucket, prefix)
}

// Store writes one report. Failures are returned to the caller but never
// affect the run that produced the report
func (a *Archiver) Store(
	ctx context.Context, report *api.ExecutionReport,
) error {
	if report == nil {
		return ErrReportRequired
	}

	obj := archiveObject{
		ArchivedAt: time.Now().UTC(),
		Report:     report,
	}
	data, err := json.Marshal(&obj)
	if err != nil {
		return err
	}

	key := buildReportKey(a.prefix, report.RunID, obj.ArchivedAt)
	if err := a.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return err
	}

	slog.Debug("Archived execution report",
		log.RunID(report.RunID),
		slog.String("key", key))
	return nil
}

func buildReportKey(prefix, runID string, at time.Time) string {
	key := at.Format("2006/01/02") + "/" + runID + ".json"
	if prefix == "" {
		return key
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + key
}
