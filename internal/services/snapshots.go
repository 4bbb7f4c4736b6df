package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/report"
	"genfity-analytics-service/internal/storage"
	"genfity-analytics-service/internal/utils"

	"go.uber.org/zap"
)

var ErrArchiveDisabled = errors.New("snapshot archive is not configured")

// Snapshotter renders and archives metrics reports.
type Snapshotter struct {
	analytics *Analytics
	archive   *storage.Archive
	retention int
	logger    *zap.Logger
}

func NewSnapshotter(svc *Analytics, archive *storage.Archive, retentionDays int, logger *zap.Logger) *Snapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{analytics: svc, archive: archive, retention: retentionDays, logger: logger}
}

func (s *Snapshotter) Enabled() bool {
	return s != nil && s.archive != nil
}

// Artifacts renders the report files of one metrics result.
func Artifacts(m analytics.MetricsResult, opts report.PDFOptions) ([]storage.Artifact, error) {
	jsonArtifact, err := storage.JSONArtifact(m)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot json: %w", err)
	}
	pdf, err := report.RenderPDF(m, opts)
	if err != nil {
		return nil, fmt.Errorf("render snapshot pdf: %w", err)
	}
	csv, err := report.ABCCSV(m.ABCProducts)
	if err != nil {
		return nil, fmt.Errorf("render snapshot csv: %w", err)
	}
	parquet, err := report.Parquet(m)
	if err != nil {
		return nil, fmt.Errorf("render snapshot parquet: %w", err)
	}
	return []storage.Artifact{
		jsonArtifact,
		{Ext: "pdf", ContentType: "application/pdf", Body: pdf},
		{Ext: "csv", ContentType: "text/csv; charset=utf-8", Body: csv},
		{Ext: "parquet", ContentType: "application/vnd.apache.parquet", Body: parquet},
	}, nil
}

// Create computes the merchant's metrics for q and uploads every artifact.
func (s *Snapshotter) Create(ctx context.Context, merchantID int64, q analytics.Query) (storage.Snapshot, error) {
	if !s.Enabled() {
		return storage.Snapshot{}, ErrArchiveDisabled
	}
	result, err := s.analytics.Metrics(ctx, merchantID, q)
	if err != nil {
		return storage.Snapshot{}, err
	}

	loc := s.analytics.Engine().Location()
	artifacts, err := Artifacts(result, report.PDFOptions{
		Merchant: fmt.Sprintf("Loja #%d", merchantID),
		Location: loc,
	})
	if err != nil {
		return storage.Snapshot{}, err
	}

	now := s.analytics.Now()
	return s.archive.Store(ctx, merchantID, utils.DateInLocation(now, loc), now.UTC(), artifacts)
}

func (s *Snapshotter) List(ctx context.Context, merchantID int64) ([]storage.Snapshot, error) {
	if !s.Enabled() {
		return nil, ErrArchiveDisabled
	}
	return s.archive.List(ctx, merchantID)
}

type SnapshotRun struct {
	Merchants int     `json:"merchants"`
	Created   int     `json:"created"`
	Failed    []int64 `json:"failed"`
	Pruned    int     `json:"pruned"`
}

// CreateAll snapshots every merchant with orders in the query window and
// prunes snapshots past the retention period.
func (s *Snapshotter) CreateAll(ctx context.Context, q analytics.Query) (SnapshotRun, error) {
	run := SnapshotRun{Failed: []int64{}}
	if !s.Enabled() {
		return run, ErrArchiveDisabled
	}
	if s.analytics.repo == nil {
		return run, errors.New("order repository not configured")
	}

	started := time.Now()
	now := s.analytics.Now()
	window := s.analytics.Engine().Range(q, now)
	merchantIDs, err := s.analytics.repo.ActiveMerchantIDs(ctx, window)
	if err != nil {
		return run, fmt.Errorf("list active merchants: %w", err)
	}
	run.Merchants = len(merchantIDs)

	var cutoff string
	if s.retention > 0 {
		cutoff = utils.DateInLocation(now.AddDate(0, 0, -s.retention), s.analytics.Engine().Location())
	}

	for _, merchantID := range merchantIDs {
		if ctx.Err() != nil {
			return run, ctx.Err()
		}
		if _, err := s.Create(ctx, merchantID, q); err != nil {
			s.logger.Warn("analytics snapshot failed", zap.Int64("merchantId", merchantID), zap.Error(err))
			run.Failed = append(run.Failed, merchantID)
			continue
		}
		run.Created++

		if cutoff == "" {
			continue
		}
		pruned, err := s.archive.Prune(ctx, merchantID, cutoff)
		run.Pruned += pruned
		if err != nil {
			s.logger.Warn("analytics snapshot prune failed", zap.Int64("merchantId", merchantID), zap.Error(err))
		}
	}

	s.logger.Info("analytics snapshots done",
		zap.Int("merchants", run.Merchants),
		zap.Int("created", run.Created),
		zap.Int("failed", len(run.Failed)),
		zap.Int("pruned", run.Pruned),
		zap.Duration("elapsed", time.Since(started)),
	)
	return run, nil
}
