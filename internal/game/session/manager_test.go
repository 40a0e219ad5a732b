package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestManager_AddPlayer(t *testing.T) {
	m := NewManager()
	sess, err := m.AddPlayer("u1", "Alice", "fighter", "room_a")
	require.NoError(t, err)
	assert.Equal(t, "Alice", sess.Name)
	assert.Equal(t, "fighter", sess.Class)
	assert.Equal(t, "room_a", sess.RoomID)
	assert.Equal(t, 1, m.PlayerCount())
}

func TestManager_AddPlayerDuplicate(t *testing.T) {
	m := NewManager()
	_, err := m.AddPlayer("u1", "Alice", "", "room_a")
	require.NoError(t, err)
	_, err = m.AddPlayer("u1", "Alice2", "", "room_b")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")
}

func TestManager_RemovePlayer(t *testing.T) {
	m := NewManager()
	_, err := m.AddPlayer("u1", "Alice", "", "room_a")
	require.NoError(t, err)

	require.NoError(t, m.RemovePlayer("u1"))
	assert.Equal(t, 0, m.PlayerCount())
	assert.Empty(t, m.PlayersInRoom("room_a"))

	assert.Error(t, m.RemovePlayer("u1"))
}

func TestManager_MovePlayer(t *testing.T) {
	m := NewManager()
	_, err := m.AddPlayer("u1", "Alice", "", "room_a")
	require.NoError(t, err)

	oldRoom, err := m.MovePlayer("u1", "room_b")
	require.NoError(t, err)
	assert.Equal(t, "room_a", oldRoom)
	assert.Empty(t, m.PlayersInRoom("room_a"))
	assert.Equal(t, []string{"u1"}, m.PlayerUIDsInRoom("room_b"))
	assert.Equal(t, "room_b", m.RoomOf("u1"))

	_, err = m.MovePlayer("ghost", "room_c")
	assert.Error(t, err)
}

func TestManager_PlayersInRoom_OrderedByUID(t *testing.T) {
	m := NewManager()
	for _, uid := range []string{"u3", "u1", "u2"} {
		_, err := m.AddPlayer(uid, "P-"+uid, "", "room_a")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"u1", "u2", "u3"}, m.PlayerUIDsInRoom("room_a"))
	assert.Nil(t, m.PlayersInRoom("empty_room"))
}

func TestManager_GetPlayer(t *testing.T) {
	m := NewManager()
	_, err := m.AddPlayer("u1", "Alice", "wizard", "room_a")
	require.NoError(t, err)

	sess, ok := m.GetPlayer("u1")
	require.True(t, ok)
	assert.Equal(t, "wizard", sess.Class)

	_, ok = m.GetPlayer("ghost")
	assert.False(t, ok)
	assert.Equal(t, "", m.RoomOf("ghost"))
}

func TestManager_RoomCombatStatus(t *testing.T) {
	m := NewManager()
	assert.False(t, m.IsRoomInCombat("room_a"))

	m.SetRoomCombatStatus("room_a", true)
	assert.True(t, m.IsRoomInCombat("room_a"))
	assert.False(t, m.IsRoomInCombat("room_b"))

	m.SetRoomCombatStatus("room_a", false)
	assert.False(t, m.IsRoomInCombat("room_a"))
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := fmt.Sprintf("u%d", i)
			room := fmt.Sprintf("room_%d", i%4)
			if _, err := m.AddPlayer(uid, "P-"+uid, "", room); err != nil {
				t.Error(err)
				return
			}
			m.SetRoomCombatStatus(room, true)
			_ = m.PlayersInRoom(room)
			_, _ = m.MovePlayer(uid, "room_final")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 32, m.PlayerCount())
	assert.Len(t, m.PlayerUIDsInRoom("room_final"), 32)
}

func TestManager_OccupancyInvariant_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := NewManager()
		joined := map[string]bool{}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			uid := fmt.Sprintf("u%d", rapid.IntRange(0, 9).Draw(t, "uid"))
			room := fmt.Sprintf("room_%d", rapid.IntRange(0, 2).Draw(t, "room"))
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				if _, err := m.AddPlayer(uid, uid, "", room); err == nil {
					joined[uid] = true
				}
			case 1:
				if err := m.RemovePlayer(uid); err == nil {
					delete(joined, uid)
				}
			case 2:
				_, _ = m.MovePlayer(uid, room)
			}
		}

		// Every connected player appears in exactly their own room's set.
		total := 0
		for r := 0; r < 3; r++ {
			room := fmt.Sprintf("room_%d", r)
			for _, uid := range m.PlayerUIDsInRoom(room) {
				sess, ok := m.GetPlayer(uid)
				if !ok || sess.RoomID != room {
					t.Fatalf("player %s listed in %s but session says %v", uid, room, sess)
				}
				total++
			}
		}
		if total != len(joined) || m.PlayerCount() != len(joined) {
			t.Fatalf("occupancy count %d, PlayerCount %d, want %d", total, m.PlayerCount(), len(joined))
		}
	})
}
