package service

import (
	"context"
	"time"

	"github.com/sahilm27/linklater/internal/repository"
	"github.com/sahilm27/linklater/internal/transfer"
)

const (
	recentRunLimit  = 20
	upcomingHorizon = 7 * 24 * time.Hour
)

// StatusService is the operator read side: historical run outcomes from
// the ledger plus the forward-looking queue computed from the posts
// table.
type StatusService interface {
	DispatchStatus(ctx context.Context) (*transfer.DispatchStatusResponse, error)
}

type statusService struct {
	dr repository.DispatchRunRepository
	pr repository.PostRepository
}

func NewStatusService(dr repository.DispatchRunRepository, pr repository.PostRepository) StatusService {
	return &statusService{dr: dr, pr: pr}
}

func (s *statusService) DispatchStatus(ctx context.Context) (*transfer.DispatchStatusResponse, error) {
	stats, err := s.dr.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.dr.ListRecent(ctx, recentRunLimit)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	upcoming, err := s.pr.UpcomingCounts(ctx, now, now.Add(upcomingHorizon))
	if err != nil {
		return nil, err
	}

	return &transfer.DispatchStatusResponse{
		Stats:         stats,
		RecentRuns:    recent,
		UpcomingPosts: upcoming,
	}, nil
}
