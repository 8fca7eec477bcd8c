// Package ingest accepts raw trip telemetry from CSV uploads and the
// partner API and stores it for later processing.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/pkg/ctxlog"
	"github.com/bissquit/fleet-garden/internal/pkg/metrics"
)

// Repository defines storage for raw telemetry records.
type Repository interface {
	SaveRecords(ctx context.Context, records []domain.RawRecord) error
}

// Service contains ingestion logic.
type Service struct {
	repo Repository
}

// NewService creates a new ingest service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ImportCSV parses trip rows from r and stores each row as a raw record.
// Returns the number of rows stored.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	rows, err := ParseTripCSV(r)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	records := make([]domain.RawRecord, 0, len(rows))
	for _, row := range rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("encode csv row: %w", err)
		}
		records = append(records, domain.RawRecord{
			Source:  domain.RawSourceCSV,
			Payload: payload,
		})
	}

	if err := s.repo.SaveRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("save csv records: %w", err)
	}

	metrics.IngestedRecords.WithLabelValues(string(domain.RawSourceCSV)).Add(float64(len(records)))
	ctxlog.FromContext(ctx).Info("csv import completed", "rows", len(records))
	return len(records), nil
}

// IngestTrips stores trip payloads submitted through the partner API.
// Each payload is kept verbatim.
func (s *Service) IngestTrips(ctx context.Context, payloads []json.RawMessage) (int, error) {
	if len(payloads) == 0 {
		return 0, nil
	}

	records := make([]domain.RawRecord, 0, len(payloads))
	for _, p := range payloads {
		records = append(records, domain.RawRecord{
			Source:  domain.RawSourceAPI,
			Payload: p,
		})
	}

	if err := s.repo.SaveRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("save api records: %w", err)
	}

	metrics.IngestedRecords.WithLabelValues(string(domain.RawSourceAPI)).Add(float64(len(records)))
	ctxlog.FromContext(ctx).Info("api ingestion completed", "records", len(records))
	return len(records), nil
}
