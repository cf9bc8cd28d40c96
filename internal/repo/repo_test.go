package repo

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/internal/events"
	"github.com/schemaflow/schemaflow/internal/store"
	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func testLogger() *logger.Logger {
	log := logger.New("repo-test", "test")
	log.SetQuiet(true)
	return log
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event events.Event) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func mainSchema() schema.Schema {
	return schema.Schema{
		"Customer": {Name: "Customer", Properties: []schema.Property{
			{Name: "email", Type: schema.TypeString},
		}},
	}
}

func newTestService() (*Service, *store.MemoryStore, *capturePublisher) {
	st := store.NewMemoryStore()
	st.SeedBranch("main", mainSchema())
	pub := &capturePublisher{}
	return NewService(st, pub, testLogger()), st, pub
}

func TestCreateBranchForksParentHead(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	b, err := svc.CreateBranch(ctx, "feature", "main")
	require.NoError(t, err)

	parent, err := st.GetBranchInfo(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, parent.HeadCommitID, b.HeadCommitID)
	assert.Equal(t, "main", b.ParentBranch)
	assert.Equal(t, "active", b.Status)

	// The fork sees the parent's schema immediately
	s, err := st.GetSchema(ctx, "feature")
	require.NoError(t, err)
	assert.Equal(t, mainSchema(), s)
}

func TestCreateBranchUnknownParent(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.CreateBranch(context.Background(), "feature", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrBranchNotFound)
}

func TestCreateBranchDuplicateName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateBranch(ctx, "feature", "main")
	require.NoError(t, err)
	_, err = svc.CreateBranch(ctx, "feature", "main")
	assert.ErrorIs(t, err, store.ErrBranchExists)
}

func TestCreateCommitMovesHeadAndKeepsParentLink(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	before, err := st.GetBranchInfo(ctx, "main")
	require.NoError(t, err)

	next := mainSchema()
	customer := next["Customer"]
	customer.Properties = append(customer.Properties, schema.Property{Name: "age", Type: schema.TypeInteger})
	next["Customer"] = customer

	c, err := svc.CreateCommit(ctx, "main", "alice", "add age", next)
	require.NoError(t, err)

	assert.Equal(t, before.HeadCommitID, c.ParentID)
	assert.Equal(t, next, c.Snapshot)

	after, err := st.GetBranchInfo(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, c.ID, after.HeadCommitID)
}

func TestCreateCommitPublishesChangeEvents(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	next := mainSchema()
	customer := next["Customer"]
	customer.Properties = append(customer.Properties, schema.Property{Name: "age", Type: schema.TypeInteger})
	next["Customer"] = customer

	_, err := svc.CreateCommit(ctx, "main", "alice", "add age", next)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeSchemaChanged, pub.events[0].Type)
	assert.Equal(t, "added", pub.events[0].Payload["operation"])
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	s := mainSchema()
	first, err := svc.CreateCommit(ctx, "main", "alice", "first", s)
	require.NoError(t, err)
	second, err := svc.CreateCommit(ctx, "main", "alice", "second", s)
	require.NoError(t, err)

	commits, err := svc.History(ctx, "main")
	require.NoError(t, err)
	require.Len(t, commits, 3) // seed + two

	ids := []string{commits[0].ID, commits[1].ID, commits[2].ID}
	assert.Contains(t, ids[:2], first.ID)
	assert.Contains(t, ids[:2], second.ID)
	assert.Equal(t, "main-head", ids[2])
}

func TestDeleteBranchGuards(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	t.Run("branch with commits needs force", func(t *testing.T) {
		err := svc.DeleteBranch(ctx, "main", false)
		assert.ErrorIs(t, err, ErrBranchHasCommits)
	})

	t.Run("branch with children cannot be deleted", func(t *testing.T) {
		_, err := svc.CreateBranch(ctx, "feature", "main")
		require.NoError(t, err)

		err = svc.DeleteBranch(ctx, "main", true)
		assert.ErrorIs(t, err, ErrBranchHasChildren)
	})

	t.Run("force deletes a leaf branch with commits", func(t *testing.T) {
		require.NoError(t, svc.DeleteBranch(ctx, "feature", true))

		branches, err := svc.ListBranches(ctx)
		require.NoError(t, err)
		require.Len(t, branches, 1)
		assert.Equal(t, "main", branches[0].Name)
	})
}
