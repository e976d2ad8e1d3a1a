package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leadharvest/leadharvest/internal/action"
	"github.com/leadharvest/leadharvest/internal/blob"
	"github.com/leadharvest/leadharvest/internal/metrics"
	"github.com/leadharvest/leadharvest/internal/plan"
	"github.com/leadharvest/leadharvest/internal/store"
)

// Format selects the artifact serialization.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatXLSX:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) contentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Store is the persistence surface the exporter needs.
type Store interface {
	store.BusinessStore
	store.ResultStore
	store.ExportStore
}

// PermissionsProvider resolves a user's plan before exporting.
type PermissionsProvider interface {
	GetUserPermissions(ctx context.Context, userID int64) (plan.Permissions, error)
}

// Service builds tier-gated export artifacts.
type Service struct {
	store   Store
	blob    blob.Store
	perms   PermissionsProvider
	actions action.Logger
	log     *zap.Logger
}

// NewService wires a Service. actions and log may be nil.
func NewService(st Store, bs blob.Store, perms PermissionsProvider, actions action.Logger, log *zap.Logger) *Service {
	if actions == nil {
		actions = action.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, blob: bs, perms: perms, actions: actions, log: log}
}

// ExportDataset aggregates the dataset's crawl results, serializes them
// at the given tier, writes the artifact to blob storage, and records an
// export log entry. The row count is gated by the user's plan. It
// returns the artifact URI.
func (s *Service) ExportDataset(ctx context.Context, datasetID, userID int64, tier plan.Tier, format Format) (string, error) {
	perms, err := s.perms.GetUserPermissions(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve permissions: %w", err)
	}

	businesses, err := s.store.ListBusinessesWithWebsite(ctx, datasetID)
	if err != nil {
		return "", fmt.Errorf("list businesses: %w", err)
	}
	results, err := s.store.ListCrawlResults(ctx, datasetID)
	if err != nil {
		return "", fmt.Errorf("list crawl results: %w", err)
	}

	rows := Aggregate(datasetID, businesses, results)
	enforcement := plan.Enforce(perms, plan.ActionExportRows, len(rows))
	if enforcement.Gated {
		s.log.Info("export rows gated by plan",
			zap.Int64("user_id", userID),
			zap.String("tier", string(perms.Tier)),
			zap.Int("requested", enforcement.Requested),
			zap.Int("allowed", enforcement.Allowed),
			zap.String("upgrade_hint", enforcement.UpgradeHint))
		rows = rows[:enforcement.Allowed]
	}

	cols := Columns(tier)
	watermark := fmt.Sprintf("leadharvest:dataset:%d", datasetID)

	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		err = WriteCSV(&buf, rows, cols)
	case FormatXLSX:
		err = WriteXLSX(&buf, rows, cols, watermark)
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("serialize export: %w", err)
	}

	name := fmt.Sprintf("dataset_%d_%s_%s.%s",
		datasetID, tier, time.Now().UTC().Format("20060102T150405"), format)
	uri, err := s.blob.Put(ctx, name, format.contentType(), buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}

	rec := store.ExportRecord{
		DatasetID: datasetID,
		UserID:    userID,
		Tier:      string(tier),
		Format:    string(format),
		RowCount:  len(rows),
		Watermark: watermark,
		URI:       uri,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.RecordExport(ctx, rec); err != nil {
		return "", fmt.Errorf("record export: %w", err)
	}

	metrics.ExportRows(string(format), len(rows))
	s.actions.Log(ctx, action.Event{
		Name:      "export.created",
		UserID:    userID,
		DatasetID: datasetID,
		Detail: map[string]any{
			"tier":   string(tier),
			"format": string(format),
			"rows":   len(rows),
			"uri":    uri,
		},
	})

	s.log.Info("export produced",
		zap.Int64("dataset_id", datasetID),
		zap.String("tier", string(tier)),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
		zap.String("uri", uri))
	return uri, nil
}
