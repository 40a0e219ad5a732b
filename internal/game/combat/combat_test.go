package combat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/entity"
)

func TestNew_StartsActiveWithOpeningEntry(t *testing.T) {
	hero := testPlayer("hero")
	gob := testGoblin("gob-1")

	cbt := New("room-7", []*entity.Entity{hero, gob}, testNow)

	assert.NotEmpty(t, cbt.ID)
	assert.Equal(t, "room-7", cbt.RoomID)
	assert.True(t, cbt.Active)
	assert.Empty(t, cbt.Result)
	assert.Nil(t, cbt.EndedAt)
	require.Len(t, cbt.Log, 1)
	assert.Equal(t, "Combat has begun!", cbt.Log[0].Message)
}

func TestFindEntity(t *testing.T) {
	hero := testPlayer("hero")
	gob := testGoblin("gob-1")
	cbt := testCombat(hero, gob)

	assert.Same(t, gob, cbt.FindEntity(gob.ID))
	assert.Nil(t, cbt.FindEntity("nobody"))
}

func TestAliveFilters_ExcludeTheDead(t *testing.T) {
	hero := testPlayer("hero")
	fallen := testPlayer("fallen")
	fallen.Health = 0
	gob := testGoblin("gob-1")
	orc := testGoblin("gob-2")
	orc.Health = 0
	cbt := testCombat(hero, fallen, gob, orc)

	players := cbt.AlivePlayers()
	require.Len(t, players, 1)
	assert.Equal(t, hero.ID, players[0].ID)

	monsters := cbt.AliveMonsters()
	require.Len(t, monsters, 1)
	assert.Equal(t, gob.ID, monsters[0].ID)
}

func TestAppendLog_IsAppendOnly(t *testing.T) {
	cbt := testCombat(testPlayer("hero"))
	first := cbt.Log[0]

	cbt.AppendLog(LogEntry{Time: testNow, Message: "something happened"})

	require.Len(t, cbt.Log, 2)
	assert.Equal(t, first, cbt.Log[0])
	assert.Equal(t, "something happened", cbt.Log[1].Message)
}

func TestSnapshot_IsIsolatedFromTheOriginal(t *testing.T) {
	hero := testPlayer("hero")
	cbt := testCombat(hero, testGoblin("gob-1"))

	snap := cbt.Snapshot()
	snap.Entities[0].Health = 1
	snap.Log[0].Message = "tampered"
	snap.AppendLog(LogEntry{Time: testNow, Message: "extra"})

	assert.Equal(t, 100, hero.Health)
	assert.Equal(t, "Combat has begun!", cbt.Log[0].Message)
	assert.Len(t, cbt.Log, 1)
}

func TestCombat_JSONRoundTrip(t *testing.T) {
	hero := testPlayer("hero")
	cbt := testCombat(hero, testGoblin("gob-1"))
	cbt.Result = OutcomeVictory
	ended := testNow.Add(time.Minute)
	cbt.EndedAt = &ended
	cbt.Active = false

	data, err := json.Marshal(cbt)
	require.NoError(t, err)

	var decoded Combat
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cbt.ID, decoded.ID)
	assert.Equal(t, OutcomeVictory, decoded.Result)
	require.NotNil(t, decoded.EndedAt)
	assert.True(t, ended.Equal(*decoded.EndedAt))
	require.Len(t, decoded.Entities, 2)
	assert.Equal(t, hero.Health, decoded.Entities[0].Health)
}
