package application

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// LinkService exposes a task's external link.
type LinkService struct {
	links driven.LinkStore
}

// NewLinkService creates a new LinkService.
func NewLinkService(links driven.LinkStore) *LinkService {
	return &LinkService{links: links}
}

// GetLink returns the task's link for provider.
func (s *LinkService) GetLink(ctx context.Context, taskID string, provider model.Provider) (model.ExternalLink, error) {
	link, err := s.links.GetByTask(ctx, taskID, provider)
	if err != nil {
		return model.ExternalLink{}, fmt.Errorf("get link: %w", err)
	}
	if link == nil {
		return model.ExternalLink{}, fmt.Errorf("%w: task %s has no %s link", model.ErrNotFound, taskID, provider)
	}
	return *link, nil
}

// UnlinkTask removes the task's link for provider and reports whether one existed.
func (s *LinkService) UnlinkTask(ctx context.Context, taskID string, provider model.Provider) (bool, error) {
	deleted, err := s.links.DeleteByTask(ctx, taskID, provider)
	if err != nil {
		return false, fmt.Errorf("unlink task: %w", err)
	}
	return deleted, nil
}
