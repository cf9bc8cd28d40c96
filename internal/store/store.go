// Package store defines the schema store boundary. The engines never talk to
// a database directly; they consume this interface so the graph-document
// store itself stays an external collaborator.
package store

import (
	"context"
	"errors"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

var (
	// ErrUnavailable wraps any transport or query failure against the
	// backing store. Callers treat it as fatal for the current operation.
	ErrUnavailable = errors.New("schema store unavailable")

	ErrBranchNotFound = errors.New("branch not found")
	ErrCommitNotFound = errors.New("commit not found")
	ErrBranchExists   = errors.New("branch already exists")
)

// Store is the full surface the versioning core needs from the backing
// schema store: read access for validation/merge plus the mutation calls the
// branch/commit services issue.
type Store interface {
	// GetSchema returns the head schema of a branch as a name -> definition map.
	GetSchema(ctx context.Context, branch string) (schema.Schema, error)

	// GetCommitDiff returns the changes a commit introduced over its parent.
	GetCommitDiff(ctx context.Context, branch, commitID string) ([]schema.SchemaChange, error)

	ListBranches(ctx context.Context) ([]schema.Branch, error)
	GetBranchInfo(ctx context.Context, branch string) (*schema.Branch, error)

	// CountRecords reports how many stored records of an object type match
	// the filter. Used only for impact estimation.
	CountRecords(ctx context.Context, objectType string, filter map[string]string) (int64, error)

	InsertBranch(ctx context.Context, b schema.Branch) error
	UpdateBranchHead(ctx context.Context, branch, commitID string) error
	DeleteBranch(ctx context.Context, branch string) error

	InsertCommit(ctx context.Context, c schema.Commit) error
	GetCommit(ctx context.Context, commitID string) (*schema.Commit, error)
	ListCommits(ctx context.Context, branch string) ([]schema.Commit, error)
}
