package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nissand/polymarket-analytics/internal/client/polymarket/gamma"
	"github.com/nissand/polymarket-analytics/internal/config"
	"github.com/nissand/polymarket-analytics/internal/models"
	"github.com/nissand/polymarket-analytics/internal/repository"
)

// TagSyncService mirrors the upstream tag catalog into polymarket_tags.
// Runs daily; the catalog changes slowly.
type TagSyncService struct {
	Repo   repository.Repository
	Gamma  *gamma.Client
	Config config.TagSyncConfig
	Logger *zap.Logger
}

func (s *TagSyncService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Gamma == nil {
		return nil
	}
	pageLimit := s.Config.PageLimit
	if pageLimit <= 0 {
		pageLimit = 100
	}
	now := time.Now().UTC()

	var synced int
	offset := 0
	for {
		tags, err := s.Gamma.ListTags(ctx, pageLimit, offset)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("tag page fetch failed", zap.Int("offset", offset), zap.Error(err))
			}
			return err
		}
		if len(tags) == 0 {
			break
		}

		rows := make([]models.Tag, 0, len(tags))
		for _, tag := range tags {
			if strings.TrimSpace(tag.ID) == "" {
				continue
			}
			rows = append(rows, models.Tag{
				ID:            tag.ID,
				Label:         tag.Label,
				Slug:          tag.Slug,
				LastFetchedAt: now,
			})
		}
		if err := s.Repo.UpsertTags(ctx, rows); err != nil {
			return err
		}
		synced += len(rows)

		if len(tags) < pageLimit {
			break
		}
		offset += pageLimit
		if err := sleepCtx(ctx, s.Config.PageDelay); err != nil {
			return err
		}
	}

	if s.Logger != nil {
		s.Logger.Info("tag sync finished", zap.Int("tags", synced))
	}
	return nil
}
