package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const (
	scanReportPrefix    = "reports/scans/"
	modelSnapshotPrefix = "models/classifier/"

	// multipartCutoff is the payload size above which uploads switch to the
	// multipart path.
	multipartCutoff = 8 * 1024 * 1024
)

// Archiver persists scan reports and classifier model snapshots to object
// storage. Reports are JSONL so a single opportunity line can be grepped out
// of a day's worth of scans without parsing the whole file.
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader) *Archiver {
	return &Archiver{writer: writer, reader: reader}
}

// ScanReportHeader is the first JSONL line of a scan report, describing the
// scan that produced the opportunity lines that follow.
type ScanReportHeader struct {
	ScanID        string
	StartedAt     time.Time
	PairsScanned  int
	Opportunities int
}

// ArchiveScanReport uploads one scan's opportunities as a JSONL report and
// returns the object path.
//
//	reports/scans/2025/07/04/9f1c2d.jsonl
func (a *Archiver) ArchiveScanReport(ctx context.Context, header ScanReportHeader, opps []domain.ArbitrageOpportunity) (string, error) {
	if header.ScanID == "" {
		return "", fmt.Errorf("s3blob: archive scan report: empty scan id")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	header.Opportunities = len(opps)
	if err := enc.Encode(header); err != nil {
		return "", fmt.Errorf("s3blob: encode scan header: %w", err)
	}
	for i := range opps {
		if err := enc.Encode(opps[i]); err != nil {
			return "", fmt.Errorf("s3blob: encode opportunity %d: %w", i, err)
		}
	}

	path := scanReportPath(header.ScanID, header.StartedAt)
	if err := a.put(ctx, path, buf.Bytes(), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: archive scan report %s: %w", header.ScanID, err)
	}
	return path, nil
}

// ArchiveModelSnapshot uploads a serialized classifier model and returns the
// object path.
//
//	models/classifier/20250704T153000Z.json
func (a *Archiver) ArchiveModelSnapshot(ctx context.Context, snapshot []byte, trainedAt time.Time) (string, error) {
	if len(snapshot) == 0 {
		return "", fmt.Errorf("s3blob: archive model snapshot: empty snapshot")
	}

	path := modelSnapshotPath(trainedAt)
	if err := a.put(ctx, path, snapshot, "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive model snapshot: %w", err)
	}
	return path, nil
}

// RestoreLatestModel downloads the newest archived classifier snapshot. The
// timestamped key format sorts lexicographically, so the last key under the
// prefix is the most recent. Returns domain.ErrNotFound when no snapshot has
// been archived.
func (a *Archiver) RestoreLatestModel(ctx context.Context) ([]byte, string, error) {
	infos, err := a.reader.List(ctx, modelSnapshotPrefix)
	if err != nil {
		return nil, "", fmt.Errorf("s3blob: list model snapshots: %w", err)
	}

	var paths []string
	for _, info := range infos {
		if strings.HasSuffix(info.Path, ".json") {
			paths = append(paths, info.Path)
		}
	}
	if len(paths) == 0 {
		return nil, "", fmt.Errorf("s3blob: restore model: %w", domain.ErrNotFound)
	}
	sort.Strings(paths)
	latest := paths[len(paths)-1]

	body, err := a.reader.Get(ctx, latest)
	if err != nil {
		return nil, "", fmt.Errorf("s3blob: restore model %s: %w", latest, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("s3blob: read model %s: %w", latest, err)
	}
	return data, latest, nil
}

// put routes large payloads through the multipart uploader.
func (a *Archiver) put(ctx context.Context, path string, data []byte, contentType string) error {
	if len(data) >= multipartCutoff {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(data), int64(len(data)/4))
	}
	return a.writer.Put(ctx, path, bytes.NewReader(data), contentType)
}

// scanReportPath builds the object key for a scan report, partitioned by the
// scan's start date.
func scanReportPath(scanID string, startedAt time.Time) string {
	return fmt.Sprintf("%s%s/%s.jsonl", scanReportPrefix, startedAt.UTC().Format("2006/01/02"), scanID)
}

// modelSnapshotPath builds the object key for a classifier snapshot.
func modelSnapshotPath(trainedAt time.Time) string {
	return modelSnapshotPrefix + trainedAt.UTC().Format("20060102T150405Z") + ".json"
}
