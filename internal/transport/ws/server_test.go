package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/entity"
	"github.com/cory-johannsen/arena/internal/game/session"
)

type fakeService struct {
	mu       sync.Mutex
	started  []string
	actions  []combat.Intent
	actorIDs []string
	snapshot *combat.Combat
}

func (f *fakeService) StartCombat(roomID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, roomID)
	return true
}

func (f *fakeService) HandleAction(uid string, intent combat.Intent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actorIDs = append(f.actorIDs, uid)
	f.actions = append(f.actions, intent)
}

func (f *fakeService) CombatInRoom(roomID string) *combat.Combat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeService) startedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

func newTestServer(t *testing.T) (*Server, *session.Manager, *fakeService, string) {
	t.Helper()
	sessions := session.NewManager()
	svc := &fakeService{}
	srv := NewServer(sessions, svc, zap.NewNop())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, sessions, svc, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg Inbound) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func waitForPlayers(t *testing.T, sessions *session.Manager, room string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(sessions.PlayersInRoom(room)) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func testSnapshot(roomID string) *combat.Combat {
	hero := entity.NewPlayer("p1", "Alice", nil, entity.PlayerOptions{MaxActionPoints: 3, RechargeMs: 1000}, time.Now())
	return combat.New(roomID, []*entity.Entity{hero}, time.Now())
}

func TestServer_JoinAndStartCombat(t *testing.T) {
	srv, sessions, svc, url := newTestServer(t)
	conn := dial(t, url)

	send(t, conn, Inbound{Type: TypeJoinRoom, RoomID: "room-1", PlayerName: "Alice", Class: "fighter"})
	waitForPlayers(t, sessions, "room-1", 1)
	joined := sessions.PlayersInRoom("room-1")[0]
	assert.Equal(t, "Alice", joined.Name)
	assert.Equal(t, "fighter", joined.Class)

	send(t, conn, Inbound{Type: TypeStartCombat})
	require.Eventually(t, func() bool {
		return len(svc.startedRooms()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"room-1"}, svc.startedRooms())

	snap := testSnapshot("room-1")
	srv.CombatInitiated("room-1", snap)

	env := readEnvelope(t, conn)
	assert.Equal(t, TypeCombatInitiated, env.Type)
	assert.Equal(t, "room-1", env.RoomID)
	require.NotNil(t, env.Combat)
	assert.Equal(t, snap.ID, env.Combat.ID)
}

func TestServer_PerformActionRoutedWithConnectionID(t *testing.T) {
	_, sessions, svc, url := newTestServer(t)
	conn := dial(t, url)

	send(t, conn, Inbound{Type: TypeJoinRoom, RoomID: "room-1", PlayerName: "Alice"})
	waitForPlayers(t, sessions, "room-1", 1)
	uid := sessions.PlayersInRoom("room-1")[0].UID

	send(t, conn, Inbound{Type: TypePerformAction, Action: &combat.Intent{
		Kind:     combat.ActionCast,
		SpellID:  combat.SpellFireball,
		TargetID: "monster-1",
	}})

	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.actions) == 1
	}, 2*time.Second, 5*time.Millisecond)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, uid, svc.actorIDs[0])
	assert.Equal(t, combat.ActionCast, svc.actions[0].Kind)
	assert.Equal(t, combat.SpellFireball, svc.actions[0].SpellID)
	assert.Equal(t, "monster-1", svc.actions[0].TargetID)
}

func TestServer_LateJoinerReceivesCurrentCombat(t *testing.T) {
	_, sessions, svc, url := newTestServer(t)
	svc.snapshot = testSnapshot("room-1")

	conn := dial(t, url)
	send(t, conn, Inbound{Type: TypeJoinRoom, RoomID: "room-1", PlayerName: "Bob"})
	waitForPlayers(t, sessions, "room-1", 1)

	env := readEnvelope(t, conn)
	assert.Equal(t, TypeCombatUpdated, env.Type)
	require.NotNil(t, env.Combat)
	assert.Equal(t, svc.snapshot.ID, env.Combat.ID)
}

func TestServer_BroadcastScopedToRoom(t *testing.T) {
	srv, sessions, _, url := newTestServer(t)

	connA := dial(t, url)
	send(t, connA, Inbound{Type: TypeJoinRoom, RoomID: "room-a", PlayerName: "Alice"})
	connB := dial(t, url)
	send(t, connB, Inbound{Type: TypeJoinRoom, RoomID: "room-b", PlayerName: "Bob"})
	waitForPlayers(t, sessions, "room-a", 1)
	waitForPlayers(t, sessions, "room-b", 1)

	srv.CombatUpdated("room-a", testSnapshot("room-a"))

	env := readEnvelope(t, connA)
	assert.Equal(t, "room-a", env.RoomID)

	// The other room's client must not receive anything.
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, _, err := connB.Read(ctx)
	assert.Error(t, err, "expected read timeout for out-of-room client")
}

func TestServer_DisconnectRemovesSession(t *testing.T) {
	_, sessions, _, url := newTestServer(t)
	conn := dial(t, url)

	send(t, conn, Inbound{Type: TypeJoinRoom, RoomID: "room-1", PlayerName: "Alice"})
	waitForPlayers(t, sessions, "room-1", 1)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "leaving"))
	waitForPlayers(t, sessions, "room-1", 0)
	assert.Equal(t, 0, sessions.PlayerCount())
}

func TestServer_MalformedMessagesIgnored(t *testing.T) {
	_, sessions, svc, url := newTestServer(t)
	conn := dial(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	send(t, conn, Inbound{Type: "teleport"})
	send(t, conn, Inbound{Type: TypeStartCombat}) // before join

	// Connection stays usable.
	send(t, conn, Inbound{Type: TypeJoinRoom, RoomID: "room-1", PlayerName: "Alice"})
	waitForPlayers(t, sessions, "room-1", 1)
	assert.Empty(t, svc.startedRooms())
}
