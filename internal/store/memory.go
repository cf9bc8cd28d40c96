package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// MemoryStore is an in-process Store used by tests and dry runs. It applies
// the same not-found/exists semantics as the Postgres store.
type MemoryStore struct {
	mu       sync.RWMutex
	branches map[string]schema.Branch
	commits  map[string]schema.Commit
	counts   map[string]int64

	// FailReads simulates a store outage for every read operation
	FailReads bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		branches: make(map[string]schema.Branch),
		commits:  make(map[string]schema.Commit),
		counts:   make(map[string]int64),
	}
}

// SeedBranch installs a branch with a single head commit holding the given
// snapshot. Test convenience.
func (s *MemoryStore) SeedBranch(branch string, snapshot schema.Schema) {
	commitID := fmt.Sprintf("%s-head", branch)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits[commitID] = schema.Commit{
		ID:       commitID,
		Branch:   branch,
		Author:   "seed",
		Message:  "seed snapshot",
		Snapshot: snapshot,
		Created:  time.Now(),
	}
	s.branches[branch] = schema.Branch{
		Name:         branch,
		HeadCommitID: commitID,
		Status:       "active",
		Created:      time.Now(),
		Updated:      time.Now(),
	}
}

// SetRecordCount fixes the record count returned for an object type
func (s *MemoryStore) SetRecordCount(objectType string, count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[objectType] = count
}

func (s *MemoryStore) readErr(op string) error {
	return fmt.Errorf("%w: %s: simulated outage", ErrUnavailable, op)
}

func (s *MemoryStore) GetSchema(ctx context.Context, branch string) (schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads {
		return nil, s.readErr("get schema")
	}

	b, ok := s.branches[branch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	if b.HeadCommitID == "" {
		return schema.Schema{}, nil
	}
	c, ok := s.commits[b.HeadCommitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, b.HeadCommitID)
	}
	return c.Snapshot, nil
}

func (s *MemoryStore) GetCommitDiff(ctx context.Context, branch, commitID string) ([]schema.SchemaChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads {
		return nil, s.readErr("get commit diff")
	}

	c, ok := s.commits[commitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, commitID)
	}
	parent := schema.Schema{}
	if c.ParentID != "" {
		pc, ok := s.commits[c.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, c.ParentID)
		}
		parent = pc.Snapshot
	}
	return schema.DiffSchemas(parent, c.Snapshot), nil
}

func (s *MemoryStore) ListBranches(ctx context.Context) ([]schema.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads {
		return nil, s.readErr("list branches")
	}

	names := make([]string, 0, len(s.branches))
	for name := range s.branches {
		names = append(names, name)
	}
	sort.Strings(names)

	branches := make([]schema.Branch, 0, len(names))
	for _, name := range names {
		branches = append(branches, s.branches[name])
	}
	return branches, nil
}

func (s *MemoryStore) GetBranchInfo(ctx context.Context, branch string) (*schema.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads {
		return nil, s.readErr("get branch")
	}

	b, ok := s.branches[branch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	return &b, nil
}

func (s *MemoryStore) CountRecords(ctx context.Context, objectType string, filter map[string]string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads {
		return 0, s.readErr("count records")
	}
	return s.counts[objectType], nil
}

func (s *MemoryStore) InsertBranch(ctx context.Context, b schema.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[b.Name]; ok {
		return fmt.Errorf("%w: %s", ErrBranchExists, b.Name)
	}
	if b.Created.IsZero() {
		b.Created = time.Now()
	}
	b.Updated = b.Created
	s.branches[b.Name] = b
	return nil
}

func (s *MemoryStore) UpdateBranchHead(ctx context.Context, branch, commitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[branch]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	b.HeadCommitID = commitID
	b.Updated = time.Now()
	s.branches[branch] = b
	return nil
}

func (s *MemoryStore) DeleteBranch(ctx context.Context, branch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[branch]; !ok {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	delete(s.branches, branch)
	for id, c := range s.commits {
		if c.Branch == branch {
			delete(s.commits, id)
		}
	}
	return nil
}

func (s *MemoryStore) InsertCommit(ctx context.Context, c schema.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Created.IsZero() {
		c.Created = time.Now()
	}
	s.commits[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCommit(ctx context.Context, commitID string) (*schema.Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads {
		return nil, s.readErr("get commit")
	}

	c, ok := s.commits[commitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, commitID)
	}
	return &c, nil
}

func (s *MemoryStore) ListCommits(ctx context.Context, branch string) ([]schema.Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads {
		return nil, s.readErr("list commits")
	}

	var commits []schema.Commit
	for _, c := range s.commits {
		if c.Branch == branch {
			commits = append(commits, c)
		}
	}
	sort.Slice(commits, func(i, j int) bool {
		if commits[i].Created.Equal(commits[j].Created) {
			return commits[i].ID > commits[j].ID
		}
		return commits[i].Created.After(commits[j].Created)
	})
	return commits, nil
}
