package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

func testSchema() schema.Schema {
	return schema.Schema{
		"Customer": {Name: "Customer", Properties: []schema.Property{
			{Name: "email", Type: schema.TypeString},
		}},
	}
}

func TestMemoryStoreSeedAndGetSchema(t *testing.T) {
	st := NewMemoryStore()
	st.SeedBranch("main", testSchema())
	ctx := context.Background()

	s, err := st.GetSchema(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, testSchema(), s)

	b, err := st.GetBranchInfo(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "main-head", b.HeadCommitID)
}

func TestMemoryStoreNotFoundSemantics(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	_, err := st.GetSchema(ctx, "ghost")
	assert.ErrorIs(t, err, ErrBranchNotFound)

	_, err = st.GetBranchInfo(ctx, "ghost")
	assert.ErrorIs(t, err, ErrBranchNotFound)

	_, err = st.GetCommit(ctx, "no-such-commit")
	assert.ErrorIs(t, err, ErrCommitNotFound)

	err = st.UpdateBranchHead(ctx, "ghost", "c1")
	assert.ErrorIs(t, err, ErrBranchNotFound)

	err = st.DeleteBranch(ctx, "ghost")
	assert.ErrorIs(t, err, ErrBranchNotFound)
}

func TestMemoryStoreBranchWithoutHeadHasEmptySchema(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.InsertBranch(ctx, schema.Branch{Name: "empty"}))
	s, err := st.GetSchema(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestMemoryStoreDuplicateBranch(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.InsertBranch(ctx, schema.Branch{Name: "feature"}))
	err := st.InsertBranch(ctx, schema.Branch{Name: "feature"})
	assert.ErrorIs(t, err, ErrBranchExists)
}

func TestMemoryStoreDeleteBranchDropsCommits(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	st.SeedBranch("feature", testSchema())

	require.NoError(t, st.DeleteBranch(ctx, "feature"))
	_, err := st.GetCommit(ctx, "feature-head")
	assert.ErrorIs(t, err, ErrCommitNotFound)
}

func TestMemoryStoreCommitDiff(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	st.SeedBranch("main", testSchema())

	next := testSchema()
	customer := next["Customer"]
	customer.Properties = append(customer.Properties, schema.Property{Name: "age", Type: schema.TypeInteger})
	next["Customer"] = customer

	require.NoError(t, st.InsertCommit(ctx, schema.Commit{
		ID:       "c2",
		ParentID: "main-head",
		Branch:   "main",
		Snapshot: next,
	}))

	changes, err := st.GetCommitDiff(ctx, "main", "c2")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, schema.OpAdded, changes[0].Operation)
	assert.Equal(t, "Customer.age", changes[0].Path)
}

func TestMemoryStoreFailReads(t *testing.T) {
	st := NewMemoryStore()
	st.SeedBranch("main", testSchema())
	st.FailReads = true
	ctx := context.Background()

	_, err := st.GetSchema(ctx, "main")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = st.ListBranches(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = st.CountRecords(ctx, "Customer", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMemoryStoreRecordCounts(t *testing.T) {
	st := NewMemoryStore()
	st.SetRecordCount("Customer", 42)
	ctx := context.Background()

	n, err := st.CountRecords(ctx, "Customer", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	n, err = st.CountRecords(ctx, "Unknown", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
