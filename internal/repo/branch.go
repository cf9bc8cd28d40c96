// Package repo provides the branch and commit services over the schema
// store. Branches are mutable pointers; commits form an append-only DAG.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/schemaflow/schemaflow/internal/events"
	"github.com/schemaflow/schemaflow/internal/store"
	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

var (
	// ErrBranchHasCommits guards non-forced deletion of branches with history
	ErrBranchHasCommits = errors.New("cannot delete branch with existing commits (use force to override)")

	// ErrBranchHasChildren guards deletion of branches other branches fork from
	ErrBranchHasChildren = errors.New("cannot delete branch with child branches")
)

// Service handles branch and commit operations
type Service struct {
	store     store.Store
	publisher events.Publisher
	logger    *logger.Logger
}

// NewService creates a new repo service
func NewService(st store.Store, pub events.Publisher, log *logger.Logger) *Service {
	return &Service{
		store:     st,
		publisher: pub,
		logger:    log,
	}
}

// CreateBranch creates a branch pointing at the parent branch's head commit,
// so the new branch starts from the parent's current schema.
func (s *Service) CreateBranch(ctx context.Context, name, parent string) (*schema.Branch, error) {
	s.logger.Infof("Creating branch %s from %s", name, parent)

	b := schema.Branch{
		Name:   name,
		Status: "active",
	}

	if parent != "" {
		parentBranch, err := s.store.GetBranchInfo(ctx, parent)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve parent branch %s: %w", parent, err)
		}
		b.ParentBranch = parent
		b.HeadCommitID = parentBranch.HeadCommitID
	}

	if err := s.store.InsertBranch(ctx, b); err != nil {
		s.logger.Errorf("Failed to create branch %s: %v", name, err)
		return nil, err
	}

	created, err := s.store.GetBranchInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetBranch retrieves a branch by name
func (s *Service) GetBranch(ctx context.Context, name string) (*schema.Branch, error) {
	return s.store.GetBranchInfo(ctx, name)
}

// ListBranches returns every branch
func (s *Service) ListBranches(ctx context.Context) ([]schema.Branch, error) {
	return s.store.ListBranches(ctx)
}

// DeleteBranch removes a branch. Branches with commits require force;
// branches other branches fork from cannot be deleted at all.
func (s *Service) DeleteBranch(ctx context.Context, name string, force bool) error {
	s.logger.Infof("Deleting branch %s (force=%t)", name, force)

	if !force {
		commits, err := s.store.ListCommits(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to check for existing commits: %w", err)
		}
		if len(commits) > 0 {
			return ErrBranchHasCommits
		}
	}

	branches, err := s.store.ListBranches(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for child branches: %w", err)
	}
	for _, b := range branches {
		if b.ParentBranch == name {
			return ErrBranchHasChildren
		}
	}

	return s.store.DeleteBranch(ctx, name)
}
