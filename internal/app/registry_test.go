package app_test

import (
	"testing"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_RegisterLookupRemove(t *testing.T) {
	dir := app.NewDirectory()
	alice, _ := testutil.Session("alice")

	require.NoError(t, dir.Register(alice))
	got, err := dir.Lookup("alice")
	require.NoError(t, err)
	assert.Same(t, alice, got)

	dir.Remove("alice")
	_, err = dir.Lookup("alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDirectory_DuplicateUserRejected(t *testing.T) {
	dir := app.NewDirectory()
	first, _ := testutil.Session("carol")
	second, _ := testutil.Session("carol")

	require.NoError(t, dir.Register(first))
	err := dir.Register(second)
	require.ErrorIs(t, err, domain.ErrDuplicateUser)

	got, err := dir.Lookup("carol")
	require.NoError(t, err)
	assert.Same(t, first, got, "existing session must survive a duplicate login")
}

func TestDirectory_RemoveSessionOnlyOwnEntry(t *testing.T) {
	dir := app.NewDirectory()
	first, _ := testutil.Session("dave")
	stale, _ := testutil.Session("dave")
	require.NoError(t, dir.Register(first))

	assert.False(t, dir.RemoveSession(stale))
	assert.Equal(t, 1, dir.Count())
	assert.True(t, dir.RemoveSession(first))
	assert.Zero(t, dir.Count())
}

func TestDirectory_ListAndOthers(t *testing.T) {
	dir := app.NewDirectory()
	for _, name := range []string{"carol", "alice", "bob"} {
		s, _ := testutil.Session(name)
		require.NoError(t, dir.Register(s))
	}
	assert.Equal(t, []domain.Username{"alice", "bob", "carol"}, dir.List())
	assert.Len(t, dir.Others("alice"), 2)

	resolved := dir.Resolve([]domain.Username{"bob", "ghost"})
	require.Len(t, resolved, 1)
	assert.Equal(t, domain.Username("bob"), resolved[0].Name())
}

func TestRoomRegistry_JoinLeave(t *testing.T) {
	rooms := app.NewRoomRegistry()
	rooms.Join("r", "a")
	rooms.Join("r", "b")

	_, ok := rooms.Leave("a")
	require.True(t, ok)
	assert.Equal(t, []domain.Username{"b"}, rooms.Members("r"))

	_, ok = rooms.Leave("b")
	require.True(t, ok)
	assert.False(t, rooms.Exists("r"), "room must be deleted with its last member")
	assert.Empty(t, rooms.Rooms())
}

func TestRoomRegistry_LeaveIsIdempotent(t *testing.T) {
	rooms := app.NewRoomRegistry()
	_, ok := rooms.Leave("nobody")
	assert.False(t, ok)

	rooms.Join("r", "a")
	rooms.Leave("a")
	_, ok = rooms.Leave("a")
	assert.False(t, ok)
}

func TestRoomRegistry_JoinMovesBetweenRooms(t *testing.T) {
	rooms := app.NewRoomRegistry()
	rooms.Join("one", "a")
	rooms.Join("one", "b")

	prev, moved, err := rooms.Join("two", "a")
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, domain.RoomName("one"), prev)

	room, ok := rooms.RoomOf("a")
	require.True(t, ok)
	assert.Equal(t, domain.RoomName("two"), room)
	assert.Equal(t, []domain.Username{"b"}, rooms.Members("one"))

	_, moved, err = rooms.Join("two", "a")
	require.NoError(t, err)
	assert.False(t, moved, "rejoining the same room is a no-op")
	assert.Equal(t, []app.RoomInfo{{Name: "one", MemberCount: 1}, {Name: "two", MemberCount: 1}}, rooms.Rooms())
}

func TestRoomRegistry_PeersExcludeSelf(t *testing.T) {
	rooms := app.NewRoomRegistry()
	for _, u := range []domain.Username{"a", "b", "c"} {
		rooms.Join("r", u)
	}
	room, peers := rooms.Peers("a")
	assert.Equal(t, domain.RoomName("r"), room)
	assert.ElementsMatch(t, []domain.Username{"b", "c"}, peers)

	_, peers = rooms.Peers("zed")
	assert.Empty(t, peers)
}

func TestDropPolicy(t *testing.T) {
	p := app.NewDropPolicy(3)
	s, _ := testutil.Session("slow")

	assert.Equal(t, app.DropFrame, p.OnBackPressure(s))
	assert.Equal(t, app.DropFrame, p.OnBackPressure(s))
	p.OnDelivered(s)
	assert.Equal(t, app.DropFrame, p.OnBackPressure(s))
	assert.Equal(t, app.DropFrame, p.OnBackPressure(s))
	assert.Equal(t, app.KickMember, p.OnBackPressure(s))

	never := app.NewDropPolicy(0)
	for i := 0; i < 10; i++ {
		assert.Equal(t, app.DropFrame, never.OnBackPressure(s))
	}
}

func TestRoomRegistry_ReservedRoom(t *testing.T) {
	rooms := app.NewRoomRegistry()
	rooms.Reserve("call", "a", "b")

	_, _, err := rooms.Join("call", "c")
	require.ErrorIs(t, err, domain.ErrPrivateRoom)
	assert.False(t, rooms.Exists("call"))

	for _, u := range []domain.Username{"a", "b"} {
		_, _, err := rooms.Join("call", u)
		require.NoError(t, err)
	}
	_, _, err = rooms.Join("call", "c")
	require.ErrorIs(t, err, domain.ErrPrivateRoom)
	assert.Equal(t, []domain.Username{"a", "b"}, rooms.Members("call"))

	rooms.Leave("a")
	rooms.Leave("b")
	_, _, err = rooms.Join("call", "c")
	require.NoError(t, err, "the reservation ends with the room")
}
