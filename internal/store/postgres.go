package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/schemaflow/schemaflow/pkg/database"
	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// PostgresStore is the reference Store backed by PostgreSQL. Branches and
// commits live in relational tables; each commit carries its full schema
// snapshot as JSONB.
type PostgresStore struct {
	db       *database.PostgreSQL
	tenantID string
	logger   *logger.Logger
}

// NewPostgresStore creates a new Postgres-backed schema store
func NewPostgresStore(db *database.PostgreSQL, tenantID string, logger *logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:       db,
		tenantID: tenantID,
		logger:   logger,
	}
}

func (s *PostgresStore) unavailable(op string, err error) error {
	s.logger.Errorf("Store operation %s failed: %v", op, err)
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// EnsureSchema creates the backing tables when they do not exist yet
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS branches (
			tenant_id TEXT NOT NULL,
			branch_name TEXT NOT NULL,
			head_commit_id TEXT,
			parent_branch TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			created TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tenant_id, branch_name)
		)`,
		`CREATE TABLE IF NOT EXISTS commits (
			tenant_id TEXT NOT NULL,
			commit_id TEXT NOT NULL,
			branch_name TEXT NOT NULL,
			parent_commit_id TEXT,
			author TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			snapshot JSONB NOT NULL,
			created TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tenant_id, commit_id)
		)`,
		`CREATE INDEX IF NOT EXISTS commits_branch_created
			ON commits (tenant_id, branch_name, created DESC)`,
		`CREATE TABLE IF NOT EXISTS records (
			tenant_id TEXT NOT NULL,
			object_type TEXT NOT NULL,
			record_id TEXT NOT NULL,
			payload JSONB NOT NULL,
			PRIMARY KEY (tenant_id, object_type, record_id)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.Pool().Exec(ctx, stmt); err != nil {
			return s.unavailable("ensure schema", err)
		}
	}
	return nil
}

// GetSchema returns the snapshot of the branch head commit
func (s *PostgresStore) GetSchema(ctx context.Context, branch string) (schema.Schema, error) {
	b, err := s.GetBranchInfo(ctx, branch)
	if err != nil {
		return nil, err
	}
	if b.HeadCommitID == "" {
		return schema.Schema{}, nil
	}

	c, err := s.GetCommit(ctx, b.HeadCommitID)
	if err != nil {
		return nil, err
	}
	return c.Snapshot, nil
}

// GetCommitDiff returns the changes a commit introduced over its parent
func (s *PostgresStore) GetCommitDiff(ctx context.Context, branch, commitID string) ([]schema.SchemaChange, error) {
	c, err := s.GetCommit(ctx, commitID)
	if err != nil {
		return nil, err
	}

	parent := schema.Schema{}
	if c.ParentID != "" {
		pc, err := s.GetCommit(ctx, c.ParentID)
		if err != nil {
			return nil, err
		}
		parent = pc.Snapshot
	}

	return schema.DiffSchemas(parent, c.Snapshot), nil
}

// ListBranches returns every branch of the tenant
func (s *PostgresStore) ListBranches(ctx context.Context) ([]schema.Branch, error) {
	query := `
		SELECT branch_name, tenant_id, COALESCE(head_commit_id, ''), COALESCE(parent_branch, ''), status, created, updated
		FROM branches
		WHERE tenant_id = $1
		ORDER BY branch_name
	`

	rows, err := s.db.Pool().Query(ctx, query, s.tenantID)
	if err != nil {
		return nil, s.unavailable("list branches", err)
	}
	defer rows.Close()

	var branches []schema.Branch
	for rows.Next() {
		var b schema.Branch
		if err := rows.Scan(&b.Name, &b.TenantID, &b.HeadCommitID, &b.ParentBranch, &b.Status, &b.Created, &b.Updated); err != nil {
			return nil, s.unavailable("scan branch", err)
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, s.unavailable("list branches", err)
	}

	return branches, nil
}

// GetBranchInfo retrieves a branch by name
func (s *PostgresStore) GetBranchInfo(ctx context.Context, branch string) (*schema.Branch, error) {
	query := `
		SELECT branch_name, tenant_id, COALESCE(head_commit_id, ''), COALESCE(parent_branch, ''), status, created, updated
		FROM branches
		WHERE tenant_id = $1 AND branch_name = $2
	`

	var b schema.Branch
	err := s.db.Pool().QueryRow(ctx, query, s.tenantID, branch).Scan(
		&b.Name,
		&b.TenantID,
		&b.HeadCommitID,
		&b.ParentBranch,
		&b.Status,
		&b.Created,
		&b.Updated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
		}
		return nil, s.unavailable("get branch", err)
	}

	return &b, nil
}

// CountRecords counts stored records of one object type matching the filter
func (s *PostgresStore) CountRecords(ctx context.Context, objectType string, filter map[string]string) (int64, error) {
	query := `SELECT COUNT(*) FROM records WHERE tenant_id = $1 AND object_type = $2`
	args := []interface{}{s.tenantID, objectType}

	idx := 3
	for field, value := range filter {
		query += fmt.Sprintf(" AND payload->>$%d = $%d", idx, idx+1)
		args = append(args, field, value)
		idx += 2
	}

	var count int64
	if err := s.db.Pool().QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, s.unavailable("count records", err)
	}
	return count, nil
}

// InsertBranch creates a branch row
func (s *PostgresStore) InsertBranch(ctx context.Context, b schema.Branch) error {
	query := `
		INSERT INTO branches (branch_name, tenant_id, head_commit_id, parent_branch, status)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
	`

	_, err := s.db.Pool().Exec(ctx, query, b.Name, s.tenantID, b.HeadCommitID, b.ParentBranch, b.Status)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return fmt.Errorf("%w: %s", ErrBranchExists, b.Name)
		}
		return s.unavailable("insert branch", err)
	}
	return nil
}

// UpdateBranchHead moves the branch pointer to a new head commit
func (s *PostgresStore) UpdateBranchHead(ctx context.Context, branch, commitID string) error {
	query := `
		UPDATE branches
		SET head_commit_id = $3, updated = CURRENT_TIMESTAMP
		WHERE tenant_id = $1 AND branch_name = $2
	`

	result, err := s.db.Pool().Exec(ctx, query, s.tenantID, branch, commitID)
	if err != nil {
		return s.unavailable("update branch head", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	return nil
}

// DeleteBranch removes a branch and its commits in one transaction
func (s *PostgresStore) DeleteBranch(ctx context.Context, branch string) error {
	tx, err := s.db.Pool().Begin(ctx)
	if err != nil {
		return s.unavailable("begin delete branch", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "DELETE FROM commits WHERE tenant_id = $1 AND branch_name = $2", s.tenantID, branch)
	if err != nil {
		return s.unavailable("delete commits", err)
	}

	result, err := tx.Exec(ctx, "DELETE FROM branches WHERE tenant_id = $1 AND branch_name = $2", s.tenantID, branch)
	if err != nil {
		return s.unavailable("delete branch", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}

	if err := tx.Commit(ctx); err != nil {
		return s.unavailable("commit delete branch", err)
	}
	return nil
}

// InsertCommit appends a commit. Parent linkage is written once and never
// updated afterwards; the commits table has no update path.
func (s *PostgresStore) InsertCommit(ctx context.Context, c schema.Commit) error {
	query := `
		INSERT INTO commits (commit_id, tenant_id, branch_name, parent_commit_id, author, message, snapshot)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
	`

	_, err := s.db.Pool().Exec(ctx, query, c.ID, s.tenantID, c.Branch, c.ParentID, c.Author, c.Message, c.Snapshot)
	if err != nil {
		return s.unavailable("insert commit", err)
	}
	return nil
}

// GetCommit retrieves a commit by id
func (s *PostgresStore) GetCommit(ctx context.Context, commitID string) (*schema.Commit, error) {
	query := `
		SELECT commit_id, COALESCE(parent_commit_id, ''), branch_name, author, message, snapshot, created
		FROM commits
		WHERE tenant_id = $1 AND commit_id = $2
	`

	var c schema.Commit
	err := s.db.Pool().QueryRow(ctx, query, s.tenantID, commitID).Scan(
		&c.ID,
		&c.ParentID,
		&c.Branch,
		&c.Author,
		&c.Message,
		&c.Snapshot,
		&c.Created,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, commitID)
		}
		return nil, s.unavailable("get commit", err)
	}

	return &c, nil
}

// ListCommits returns the commits of a branch, newest first
func (s *PostgresStore) ListCommits(ctx context.Context, branch string) ([]schema.Commit, error) {
	query := `
		SELECT commit_id, COALESCE(parent_commit_id, ''), branch_name, author, message, snapshot, created
		FROM commits
		WHERE tenant_id = $1 AND branch_name = $2
		ORDER BY created DESC
	`

	rows, err := s.db.Pool().Query(ctx, query, s.tenantID, branch)
	if err != nil {
		return nil, s.unavailable("list commits", err)
	}
	defer rows.Close()

	var commits []schema.Commit
	for rows.Next() {
		var c schema.Commit
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Branch, &c.Author, &c.Message, &c.Snapshot, &c.Created); err != nil {
			return nil, s.unavailable("scan commit", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.unavailable("list commits", err)
	}

	return commits, nil
}
