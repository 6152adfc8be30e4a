package store

import (
	"context"
	"testing"
	"time"

	"task-board-api/internal/models"
	"task-board-api/internal/realtime"
	"task-board-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*GormStore, *realtime.Hub) {
	t.Helper()
	hub := realtime.NewHub()
	return NewGormStore(testutil.MustDB(t), hub), hub
}

func nextSnapshot(t *testing.T, sub *realtime.Subscription) realtime.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return realtime.Snapshot{}
	}
}

func TestGormStore_CreateAndList(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, models.Task{ProjectID: "p-1", Title: "Write brief", Assignees: models.MemberIDs{"u-1"}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tasks, err := s.List(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "Write brief", tasks[0].Title)
	require.Equal(t, models.MemberIDs{"u-1"}, tasks[0].Assignees)
	require.Equal(t, models.StatusTodo, tasks[0].Status)
	require.False(t, tasks[0].CreatedAt.IsZero())

	other, err := s.List(ctx, "p-2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestGormStore_SubscribeDeliversInitialAndUpdates(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, models.Task{ProjectID: "p-1", Title: "First"})
	require.NoError(t, err)

	sub, err := s.Subscribe(ctx, "p-1")
	require.NoError(t, err)
	defer sub.Cancel()

	initial := nextSnapshot(t, sub)
	require.Len(t, initial.Tasks, 1)

	id, err := s.Create(ctx, models.Task{ProjectID: "p-1", Title: "Second"})
	require.NoError(t, err)
	snap := nextSnapshot(t, sub)
	require.Len(t, snap.Tasks, 2)
	require.Greater(t, snap.Version, initial.Version)

	require.NoError(t, s.UpdateFields(ctx, "p-1", id, map[string]any{"status": models.StatusDoing}))
	snap = nextSnapshot(t, sub)
	require.Equal(t, models.StatusDoing, snap.Tasks[1].Status)

	require.NoError(t, s.Delete(ctx, "p-1", id))
	snap = nextSnapshot(t, sub)
	require.Len(t, snap.Tasks, 1)
}

func TestGormStore_UpdateMissingTask(t *testing.T) {
	s, _ := newStore(t)
	err := s.UpdateFields(context.Background(), "p-1", "nope", map[string]any{"title": "x"})
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestGormStore_DeleteIsIdempotent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	id, err := s.Create(ctx, models.Task{ProjectID: "p-1", Title: "Gone soon"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "p-1", id))
	require.NoError(t, s.Delete(ctx, "p-1", id))

	_, err = s.Get(ctx, "p-1", id)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestGormStore_AssigneesUpdate(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	id, err := s.Create(ctx, models.Task{ProjectID: "p-1", Title: "Pair"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateFields(ctx, "p-1", id, map[string]any{"assignees": models.MemberIDs{"u-1", "u-2"}}))
	task, err := s.Get(ctx, "p-1", id)
	require.NoError(t, err)
	require.Equal(t, models.MemberIDs{"u-1", "u-2"}, task.Assignees)
}

func TestDirectory_MembersAndProjects(t *testing.T) {
	d := NewDirectory(testutil.MustDB(t), time.Minute)
	ctx := context.Background()

	_, err := d.AddMember(ctx, models.Member{WorkspaceID: "w-1", Username: "bob", PasswordHash: "x"})
	require.NoError(t, err)
	alice, err := d.AddMember(ctx, models.Member{WorkspaceID: "w-1", Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)

	members, err := d.Members(ctx, "w-1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, "alice", members[0].Username)

	got, err := d.MemberByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	_, err = d.MemberByUsername(ctx, "dave")
	require.ErrorIs(t, err, ErrMemberNotFound)

	names, err := d.MemberNames(ctx, "w-1")
	require.NoError(t, err)
	require.Equal(t, "alice", names[alice.ID])

	carol, err := d.AddMember(ctx, models.Member{WorkspaceID: "w-1", Username: "carol", DisplayName: "Carol C", PasswordHash: "x"})
	require.NoError(t, err)
	names, err = d.MemberNames(ctx, "w-1")
	require.NoError(t, err)
	require.Equal(t, "Carol C", names[carol.ID])
	require.Len(t, names, 3)

	p, err := d.AddProject(ctx, models.Project{WorkspaceID: "w-1", Name: "Launch"})
	require.NoError(t, err)
	loaded, err := d.Project(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Launch", loaded.Name)

	_, err = d.Project(ctx, "missing")
	require.ErrorIs(t, err, ErrProjectNotFound)
}
