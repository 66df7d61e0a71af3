package archive_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"

	"github.com/lisahq/lisaflow/internal/archive"
	"github.com/lisahq/lisaflow/pkg/api"

	_ "gocloud.dev/blob/memblob"
)

func TestStoreWritesReport(t *testing.T) {
	ctx := context.Background()

	bucket, err := blob.OpenBucket(ctx, "mem://archive-test")
	require.NoError(t, err)
	defer func() { _ = bucket.Close() }()

	a, err := archive.New(bucket, "reports")
	require.NoError(t, err)

	report := &api.ExecutionReport{
		RunID:         "run-123",
		Success:       true,
		Data:          api.Values{"answer": float64(42)},
		ExecutionPath: []api.NodeID{"a", "b"},
	}
	require.NoError(t, a.Store(ctx, report))

	// exactly one object under the prefix, containing the report
	iter := bucket.List(&blob.ListOptions{Prefix: "reports/"})
	obj, err := iter.Next(ctx)
	require.NoError(t, err)
	assert.Contains(t, obj.Key, "run-123.json")

	data, err := bucket.ReadAll(ctx, obj.Key)
	require.NoError(t, err)

	var stored struct {
		Report *api.ExecutionReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, report.RunID, stored.Report.RunID)
	assert.True(t, stored.Report.Success)
	assert.Equal(t, report.Data, stored.Report.Data)
}

func TestStoreRequiresReport(t *testing.T) {
	ctx := context.Background()

	bucket, err := blob.OpenBucket(ctx, "mem://archive-empty")
	require.NoError(t, err)
	defer func() { _ = bucket.Close() }()

	a, err := archive.New(bucket, "")
	require.NoError(t, err)
	assert.ErrorIs(t, a.Store(ctx, nil), archive.ErrReportRequired)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := archive.New(nil, "")
	assert.ErrorIs(t, err, archive.ErrBucketRequired)
}
