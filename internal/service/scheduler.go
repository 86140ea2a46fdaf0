package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nissand/polymarket-analytics/internal/config"
	"github.com/nissand/polymarket-analytics/internal/repository"
)

const stuckMessage = "Processing timed out - request was stuck"

// CaptureRunner executes a claimed capture request to completion.
type CaptureRunner interface {
	Process(ctx context.Context, requestID uint64) error
}

// CaptureScheduler promotes pending capture requests. At most one request
// is in processing at a time; anything processing that stopped making
// progress past the stuck timeout is force-failed first so it cannot wedge
// the queue forever.
type CaptureScheduler struct {
	Repo   repository.Repository
	Runner CaptureRunner
	Config config.CaptureConfig
	Logger *zap.Logger
}

func (s *CaptureScheduler) RunOnce(ctx context.Context) {
	if s == nil || s.Repo == nil || s.Runner == nil {
		return
	}

	cutoff := time.Now().UTC().Add(-s.stuckTimeout())
	stuck, err := s.Repo.FailStuckProcessing(ctx, cutoff, stuckMessage)
	if err != nil {
		s.logWarn("stuck check failed", err)
		return
	}
	if stuck > 0 {
		s.logInfo("force-failed stuck capture requests", zap.Int64("count", stuck))
	}

	processing, err := s.Repo.AnyProcessing(ctx)
	if err != nil {
		s.logWarn("processing check failed", err)
		return
	}
	if processing {
		return
	}

	req, err := s.Repo.ClaimOldestPending(ctx)
	if err != nil {
		s.logWarn("pending claim failed", err)
		return
	}
	if req == nil {
		return
	}

	s.logInfo("capture request claimed", zap.Uint64("request_id", req.ID))
	if err := s.Runner.Process(ctx, req.ID); err != nil {
		// The runner already marked the request failed; just record it.
		s.logWarn("capture run failed", err, zap.Uint64("request_id", req.ID))
	}
}

func (s *CaptureScheduler) stuckTimeout() time.Duration {
	if s.Config.StuckTimeout > 0 {
		return s.Config.StuckTimeout
	}
	return 5 * time.Minute
}

func (s *CaptureScheduler) logInfo(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Info(msg, fields...)
	}
}

func (s *CaptureScheduler) logWarn(msg string, err error, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Warn(msg, append(fields, zap.Error(err))...)
	}
}
