package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// memBlob is an in-memory BlobWriter/BlobReader used to test the archiver
// without a live object store.
type memBlob struct {
	objects map[string][]byte
}

func newMemBlob() *memBlob {
	return &memBlob{objects: make(map[string][]byte)}
}

func (m *memBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = buf
	return nil
}

func (m *memBlob) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	return m.Put(context.Background(), path, data, "")
}

func (m *memBlob) Get(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlob) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo
	for path, data := range m.objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, domain.BlobInfo{Path: path, Size: int64(len(data))})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

func (m *memBlob) Exists(_ context.Context, path string) (bool, error) {
	_, ok := m.objects[path]
	return ok, nil
}

func TestArchiver_ScanReport(t *testing.T) {
	blob := newMemBlob()
	arch := NewArchiver(blob, blob)

	startedAt := time.Date(2025, 7, 4, 15, 30, 0, 0, time.UTC)
	opps := []domain.ArbitrageOpportunity{
		{ID: "opp-1", MinProfit: 0.04},
		{ID: "opp-2", MinProfit: 0.02},
	}

	path, err := arch.ArchiveScanReport(context.Background(), ScanReportHeader{
		ScanID:       "9f1c2d",
		StartedAt:    startedAt,
		PairsScanned: 12,
	}, opps)
	require.NoError(t, err)
	assert.Equal(t, "reports/scans/2025/07/04/9f1c2d.jsonl", path)

	data, ok := blob.objects[path]
	require.True(t, ok)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	var header ScanReportHeader
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &header))
	assert.Equal(t, "9f1c2d", header.ScanID)
	assert.Equal(t, 12, header.PairsScanned)
	assert.Equal(t, 2, header.Opportunities)

	var first domain.ArbitrageOpportunity
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &first))
	assert.Equal(t, "opp-1", first.ID)
}

func TestArchiver_ScanReport_RequiresID(t *testing.T) {
	blob := newMemBlob()
	arch := NewArchiver(blob, blob)

	_, err := arch.ArchiveScanReport(context.Background(), ScanReportHeader{}, nil)
	assert.Error(t, err)
}

func TestArchiver_ModelSnapshotRoundTrip(t *testing.T) {
	blob := newMemBlob()
	arch := NewArchiver(blob, blob)

	older := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 7, 4, 10, 0, 0, 0, time.UTC)

	_, err := arch.ArchiveModelSnapshot(context.Background(), []byte(`{"version":1,"n":"old"}`), older)
	require.NoError(t, err)

	newestPath, err := arch.ArchiveModelSnapshot(context.Background(), []byte(`{"version":1,"n":"new"}`), newer)
	require.NoError(t, err)
	assert.Equal(t, "models/classifier/20250704T100000Z.json", newestPath)

	data, path, err := arch.RestoreLatestModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, newestPath, path)
	assert.Contains(t, string(data), `"n":"new"`)
}

func TestArchiver_RestoreLatestModel_Empty(t *testing.T) {
	blob := newMemBlob()
	arch := NewArchiver(blob, blob)

	_, _, err := arch.RestoreLatestModel(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
