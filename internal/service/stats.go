package service

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
)

const RecentLeavesLimit = 5

type statsRepo interface {
	CountByKind(ctx context.Context) (leaves, questions int, err error)
	RecentLeaves(ctx context.Context, limit int) ([]*entity.Node, error)
}

type StatsReporter struct {
	repo statsRepo
}

func NewStatsReporter(repo statsRepo) *StatsReporter {
	return &StatsReporter{
		repo: repo,
	}
}

func (that *StatsReporter) Summary(ctx context.Context) (*entity.Summary, error) {
	leaves, questions, err := that.repo.CountByKind(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count nodes: %w", err)
	}

	recent, err := that.repo.RecentLeaves(ctx, RecentLeavesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent leaves: %w", err)
	}

	return &entity.Summary{
		LeafCount:     leaves,
		QuestionCount: questions,
		RecentLeaves:  recent,
	}, nil
}
