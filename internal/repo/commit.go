package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schemaflow/schemaflow/internal/events"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// CreateCommit appends a commit holding the given snapshot and moves the
// branch head to it. The parent link is the branch's previous head and is
// never rewritten. One schema.changed event is published per detected
// change, fire-and-forget.
func (s *Service) CreateCommit(ctx context.Context, branch, author, message string, snapshot schema.Schema) (*schema.Commit, error) {
	s.logger.Infof("Creating commit on branch %s", branch)

	b, err := s.store.GetBranchInfo(ctx, branch)
	if err != nil {
		return nil, err
	}

	previous := schema.Schema{}
	if b.HeadCommitID != "" {
		head, err := s.store.GetCommit(ctx, b.HeadCommitID)
		if err != nil {
			return nil, fmt.Errorf("failed to load branch head %s: %w", b.HeadCommitID, err)
		}
		previous = head.Snapshot
	}

	c := schema.Commit{
		ID:       uuid.NewString(),
		ParentID: b.HeadCommitID,
		Branch:   branch,
		Author:   author,
		Message:  message,
		Snapshot: snapshot,
		Created:  time.Now(),
	}

	if err := s.store.InsertCommit(ctx, c); err != nil {
		s.logger.Errorf("Failed to insert commit on %s: %v", branch, err)
		return nil, err
	}
	if err := s.store.UpdateBranchHead(ctx, branch, c.ID); err != nil {
		s.logger.Errorf("Failed to move head of %s: %v", branch, err)
		return nil, err
	}

	for _, change := range schema.DiffSchemas(previous, snapshot) {
		s.publisher.Publish(ctx, events.Event{
			ID:      uuid.NewString(),
			Type:    events.TypeSchemaChanged,
			Time:    time.Now(),
			Payload: events.SchemaChanged(branch, c.ID, change),
		})
	}

	return &c, nil
}

// GetCommit retrieves a commit by id
func (s *Service) GetCommit(ctx context.Context, commitID string) (*schema.Commit, error) {
	return s.store.GetCommit(ctx, commitID)
}

// History returns the commits of a branch, newest first
func (s *Service) History(ctx context.Context, branch string) ([]schema.Commit, error) {
	return s.store.ListCommits(ctx, branch)
}

// CommitDiff returns the changes a commit introduced over its parent
func (s *Service) CommitDiff(ctx context.Context, branch, commitID string) ([]schema.SchemaChange, error) {
	return s.store.GetCommitDiff(ctx, branch, commitID)
}
