// Package service contains the core fetch-and-upload pipeline.
// Syncer drives each icon request through fetch → name → upload, isolating
// per-item failures so one bad icon ID never aborts the batch.
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/model"
)

// AssetFetcher retrieves icon bytes by ID, trying the animated format first.
type AssetFetcher interface {
	Fetch(ctx context.Context, iconID int) (*model.FetchResult, error)
}

// DeviceUploader transfers one named file to the device.
type DeviceUploader interface {
	Upload(ctx context.Context, filename string, data []byte, format model.IconFormat) error
}

// Syncer is the batch orchestrator. It holds no state between runs; every
// call to Sync starts from a fresh summary.
type Syncer struct {
	fetcher   AssetFetcher
	uploader  DeviceUploader
	inspector *Inspector // nil disables image probing
	logger    *zap.Logger
}

// NewSyncer wires the pipeline together. inspector may be nil when libvips
// probing is not wanted; it only enriches outcome details.
func NewSyncer(fetcher AssetFetcher, uploader DeviceUploader, inspector *Inspector, logger *zap.Logger) *Syncer {
	return &Syncer{
		fetcher:   fetcher,
		uploader:  uploader,
		inspector: inspector,
		logger:    logger,
	}
}

// Sync processes requests strictly in order and returns one outcome per
// request, in the same order. Item failures are recorded and skipped, never
// propagated. Cancellation is honored between items only — a transfer in
// flight always runs to completion or timeout — and the summary still
// reflects every request, with unstarted ones marked cancelled.
func (s *Syncer) Sync(ctx context.Context, requests []model.IconRequest) model.BatchSummary {
	var summary model.BatchSummary

	for _, req := range requests {
		select {
		case <-ctx.Done():
			summary.Add(model.UploadOutcome{
				Label:     req.Label,
				IconID:    req.IconID,
				Succeeded: false,
				Reason:    model.ReasonCancelled,
				Detail:    ctx.Err().Error(),
			})
			continue
		default:
		}

		summary.Add(s.processOne(ctx, req))
	}

	s.logger.Info("batch complete",
		zap.Int("total", len(summary.Outcomes)),
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("failed", summary.Failed()),
	)
	return summary
}

func (s *Syncer) processOne(ctx context.Context, req model.IconRequest) model.UploadOutcome {
	s.logger.Info("processing icon",
		zap.String("label", req.Label),
		zap.Int("icon_id", req.IconID),
	)

	result, err := s.fetcher.Fetch(ctx, req.IconID)
	if err != nil {
		s.logger.Warn("fetch failed",
			zap.String("label", req.Label),
			zap.Int("icon_id", req.IconID),
			zap.Error(err),
		)
		return model.UploadOutcome{
			Label:     req.Label,
			IconID:    req.IconID,
			Succeeded: false,
			Reason:    model.ReasonOf(err),
			Detail:    err.Error(),
		}
	}

	detail := s.describe(result)
	filename := model.Filename(req.IconID, result.Format)

	if err := s.uploader.Upload(ctx, filename, result.Data, result.Format); err != nil {
		s.logger.Warn("upload failed",
			zap.String("label", req.Label),
			zap.String("filename", filename),
			zap.Error(err),
		)
		return model.UploadOutcome{
			Label:     req.Label,
			IconID:    req.IconID,
			Format:    result.Format,
			Succeeded: false,
			Reason:    model.ReasonOf(err),
			Detail:    err.Error(),
		}
	}

	return model.UploadOutcome{
		Label:     req.Label,
		IconID:    req.IconID,
		Format:    result.Format,
		Succeeded: true,
		Detail:    detail,
	}
}

// describe builds the human-readable detail for a fetched asset, e.g.
// "GIF, 8x8". Probe failures are informational only — a fetched icon is
// uploaded whether or not libvips can parse it.
func (s *Syncer) describe(result *model.FetchResult) string {
	if s.inspector != nil {
		info, err := s.inspector.Probe(result.Data)
		if err == nil {
			return fmt.Sprintf("%s, %dx%d", info.Type, info.Width, info.Height)
		}
		s.logger.Debug("image probe failed",
			zap.Int("icon_id", result.IconID),
			zap.Error(err),
		)
	}
	return fmt.Sprintf("%s, %d bytes", strings.ToUpper(string(result.Format)), len(result.Data))
}
