// Package gameserver hosts the combat orchestrator: encounter lifecycle,
// monster turns, termination, and broadcast fan-out. One orchestrator
// serves all rooms.
package gameserver

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/entity"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/scripting"
)

// Broadcaster delivers combat envelopes to every connection in a room.
// Implementations receive deep-copied snapshots and may retain them.
type Broadcaster interface {
	CombatInitiated(roomID string, snap *combat.Combat)
	CombatUpdated(roomID string, snap *combat.Combat)
	CombatEnded(roomID string, snap *combat.Combat)
}

// Orchestrator owns all live and recently ended encounters. Every intent
// and tick serialises through combatMu, so a resolution never observes
// state mid-mutation.
//
// Precondition: all constructor arguments except narrator must be non-nil.
type Orchestrator struct {
	sessions    *session.Manager
	classes     *ruleset.ClassRegistry
	monsters    *ruleset.MonsterTable
	resolver    *combat.Resolver
	roller      *dice.Roller
	narrator    *scripting.Narrator
	broadcaster Broadcaster
	logger      *zap.Logger
	cfg         config.CombatConfig
	ticks       *RoomTickManager

	combatMu sync.Mutex
	combats  map[string]*combat.Combat // roomID → live or retained combat

	timersMu sync.Mutex
	timers   map[string]*combat.DeferredTimer // combatID → pending transition

	// now is the clock; tests substitute it.
	now func() time.Time
}

// NewOrchestrator wires an Orchestrator.
//
// Precondition: narrator may be nil (default messages only); everything
// else must be non-nil.
// Postcondition: Returns a non-nil Orchestrator ready to start combats.
func NewOrchestrator(
	sessions *session.Manager,
	classes *ruleset.ClassRegistry,
	monsters *ruleset.MonsterTable,
	resolver *combat.Resolver,
	roller *dice.Roller,
	narrator *scripting.Narrator,
	broadcaster Broadcaster,
	ticks *RoomTickManager,
	cfg config.CombatConfig,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		sessions:    sessions,
		classes:     classes,
		monsters:    monsters,
		resolver:    resolver,
		roller:      roller,
		narrator:    narrator,
		broadcaster: broadcaster,
		ticks:       ticks,
		cfg:         cfg,
		logger:      logger,
		combats:     make(map[string]*combat.Combat),
		timers:      make(map[string]*combat.DeferredTimer),
		now:         time.Now,
	}
}

// StartCombat begins an encounter in roomID and reports whether one was
// started. It is a silent no-op when the room is already in combat, has no
// players, or still holds an encounter awaiting eviction.
//
// Postcondition: on true, the room is flagged in combat, a tick is
// registered, and combatInitiated has been queued to the broadcaster.
func (o *Orchestrator) StartCombat(roomID string) bool {
	players := o.sessions.PlayersInRoom(roomID)
	if len(players) == 0 {
		o.logger.Debug("start combat ignored: empty room", zap.String("room", roomID))
		return false
	}
	if o.sessions.IsRoomInCombat(roomID) {
		o.logger.Debug("start combat ignored: room already in combat", zap.String("room", roomID))
		return false
	}

	now := o.now()

	o.combatMu.Lock()
	if existing, ok := o.combats[roomID]; ok && existing.Active {
		o.combatMu.Unlock()
		return false
	}

	entities := make([]*entity.Entity, 0, len(players))
	for _, p := range players {
		var class *ruleset.Class
		if p.Class != "" {
			if c, ok := o.classes.Get(p.Class); ok {
				class = c
			} else {
				o.logger.Warn("unknown class at combat start, using flat stats",
					zap.String("player", p.UID),
					zap.String("class", p.Class),
				)
			}
		}
		entities = append(entities, entity.NewPlayer(p.UID, p.Name, class, entity.PlayerOptions{
			MaxActionPoints: o.cfg.MaxActionPoints,
			RechargeMs:      o.cfg.ActionRechargeMs,
		}, now))
	}
	entities = append(entities, o.generateMonsters(len(players), now)...)

	cbt := combat.New(roomID, entities, now)
	o.combats[roomID] = cbt
	snap := cbt.Snapshot()
	o.combatMu.Unlock()

	o.sessions.SetRoomCombatStatus(roomID, true)
	o.ticks.RegisterTick(roomID, func() { o.tick(roomID) })

	o.logger.Info("combat started",
		zap.String("room", roomID),
		zap.String("combat", cbt.ID),
		zap.Int("players", len(players)),
		zap.Int("monsters", len(entities)-len(players)),
	)
	o.broadcaster.CombatInitiated(roomID, snap)
	return true
}

// generateMonsters stamps max(1, floor(players × ratio)) instances drawn
// uniformly from the monster table.
func (o *Orchestrator) generateMonsters(playerCount int, now time.Time) []*entity.Entity {
	count := int(math.Floor(float64(playerCount) * o.cfg.MonstersPerPlayer))
	if count < 1 {
		count = 1
	}
	src := o.roller.Source()

	out := make([]*entity.Entity, 0, count)
	for i := 0; i < count; i++ {
		m := o.monsters.Draw(src.Intn(o.monsters.Len()))
		recharge := m.RechargeMs
		if recharge <= 0 {
			recharge = o.cfg.ActionRechargeMs * o.cfg.MonsterRechargeMultiplier
		}
		inst := *m
		inst.RechargeMs = recharge
		id := fmt.Sprintf("monster-%s", uuid.NewString())
		name := fmt.Sprintf("%s %d", m.Name, i+1)
		out = append(out, entity.NewMonster(id, name, &inst, o.cfg.MaxActionPoints, now))
	}
	return out
}

// HandleAction resolves one intent for the player behind uid. Invalid or
// unauthorized intents (no session, no live combat, dead or exhausted
// actor, unknown target/spell, wrong class) are silent no-ops. On a
// resolution, exactly one action point is consumed, the log grows by the
// resolution's entries, termination is checked, and combatUpdated is
// broadcast.
func (o *Orchestrator) HandleAction(uid string, intent combat.Intent) {
	sess, ok := o.sessions.GetPlayer(uid)
	if !ok {
		o.logger.Debug("action from unknown connection", zap.String("uid", uid))
		return
	}
	now := o.now()

	o.combatMu.Lock()
	cbt, ok := o.combats[sess.RoomID]
	if !ok || !cbt.Active {
		o.combatMu.Unlock()
		o.logger.Debug("action outside active combat", zap.String("uid", uid))
		return
	}
	actor := cbt.FindEntity(uid)
	if actor == nil || !actor.CanAct() {
		o.combatMu.Unlock()
		o.logger.Debug("action from ineligible actor", zap.String("uid", uid))
		return
	}

	res := o.resolver.Resolve(cbt, actor, intent, o.roller.Source(), now)
	if res == nil {
		o.combatMu.Unlock()
		o.logger.Debug("action resolved to no-op",
			zap.String("uid", uid),
			zap.String("type", string(intent.Kind)),
		)
		return
	}

	actor.SpendActionPoint(now)
	o.appendResultLocked(cbt, res, now)
	o.checkTerminationLocked(cbt, now)
	snap := cbt.Snapshot()
	o.combatMu.Unlock()

	o.broadcaster.CombatUpdated(sess.RoomID, snap)
}

// tick advances one room's encounter: regeneration and status durations,
// then each living monster with a whole action point attacks a uniformly
// random living player through the same resolver players use.
func (o *Orchestrator) tick(roomID string) {
	now := o.now()

	o.combatMu.Lock()
	cbt, ok := o.combats[roomID]
	if !ok || !cbt.Active {
		o.combatMu.Unlock()
		return
	}

	changed := combat.RegenTick(cbt, o.resolver.Effects, now)

	src := o.roller.Source()
	for _, m := range cbt.AliveMonsters() {
		if !m.CanAct() {
			continue
		}
		players := cbt.AlivePlayers()
		if len(players) == 0 {
			break
		}
		target := players[src.Intn(len(players))]
		res := o.resolver.Resolve(cbt, m, combat.Intent{Kind: combat.ActionAttack, TargetID: target.ID}, src, now)
		if res == nil {
			continue
		}
		m.SpendActionPoint(now)
		o.appendResultLocked(cbt, res, now)
		changed = true
	}

	o.checkTerminationLocked(cbt, now)
	if !changed {
		o.combatMu.Unlock()
		return
	}
	snap := cbt.Snapshot()
	o.combatMu.Unlock()

	o.broadcaster.CombatUpdated(roomID, snap)
}

// appendResultLocked converts res into log entries, applying narration
// overrides, and appends them after any defeat entries the resolver
// already recorded.
//
// Precondition: combatMu held.
func (o *Orchestrator) appendResultLocked(cbt *combat.Combat, res *combat.ActionResult, now time.Time) {
	o.narrateRecentDefeatsLocked(cbt)

	entry := res.LogEntry(now)
	if o.narrator != nil {
		switch res.Action {
		case combat.ActionAttack:
			if msg, ok := o.narrator.NarrateAttack(res.ActorName, res.TargetName, res.Details.Damage, res.Details.Critical, res.Details.Miss); ok {
				entry.Message = msg
			}
		case combat.ActionCast:
			amount := res.Details.SpellDamage + res.Details.HealAmount
			if msg, ok := o.narrator.NarrateSpell(res.ActorName, res.TargetName, res.Details.SpellType, amount); ok {
				entry.Message = msg
			}
		}
	}
	cbt.AppendLog(entry)
}

// narrateRecentDefeatsLocked rewrites the messages of defeat entries the
// resolver appended during the current resolution.
//
// Precondition: combatMu held.
func (o *Orchestrator) narrateRecentDefeatsLocked(cbt *combat.Combat) {
	if o.narrator == nil {
		return
	}
	for i := len(cbt.Log) - 1; i >= 0; i-- {
		e := &cbt.Log[i]
		if e.Type != "defeat" {
			break
		}
		fallen := cbt.FindEntity(e.EntityID)
		if fallen == nil {
			continue
		}
		if msg, ok := o.narrator.NarrateDefeat(fallen.Name); ok {
			e.Message = msg
		}
	}
}

// checkTerminationLocked detects the end of the encounter and schedules the
// deferred transition. Defeat is checked before victory, so a mutual wipe
// resolves to defeat.
//
// Precondition: combatMu held; cbt.Active.
func (o *Orchestrator) checkTerminationLocked(cbt *combat.Combat, now time.Time) {
	o.timersMu.Lock()
	_, pending := o.timers[cbt.ID]
	o.timersMu.Unlock()
	if pending {
		return
	}

	var result combat.Outcome
	switch {
	case len(cbt.AlivePlayers()) == 0:
		result = combat.OutcomeDefeat
	case len(cbt.AliveMonsters()) == 0:
		result = combat.OutcomeVictory
	default:
		return
	}

	roomID := cbt.RoomID
	combatID := cbt.ID
	o.logger.Info("combat ending",
		zap.String("room", roomID),
		zap.String("combat", combatID),
		zap.String("result", string(result)),
	)

	grace := msDuration(o.cfg.GraceDelayMs)
	o.timersMu.Lock()
	o.timers[combatID] = combat.NewDeferredTimer(grace, func() {
		o.finishCombat(roomID, combatID, result)
	})
	o.timersMu.Unlock()
}

// finishCombat flips the encounter inactive, stamps the result, appends the
// terminal log line, clears the room flag, broadcasts combatEnded, and
// schedules eviction after the retention window.
func (o *Orchestrator) finishCombat(roomID, combatID string, result combat.Outcome) {
	now := o.now()

	o.combatMu.Lock()
	cbt, ok := o.combats[roomID]
	if !ok || cbt.ID != combatID {
		// A newer combat replaced this one; nothing to finish.
		o.combatMu.Unlock()
		o.clearTimer(combatID)
		return
	}

	cbt.Active = false
	cbt.Result = result
	ended := now
	cbt.EndedAt = &ended

	msg := "Victory! All monsters have been defeated!"
	if result == combat.OutcomeDefeat {
		msg = "Defeat! The party has fallen..."
	}
	if o.narrator != nil {
		if m, ok := o.narrator.NarrateEnd(result == combat.OutcomeVictory); ok {
			msg = m
		}
	}
	cbt.AppendLog(combat.LogEntry{Time: now, Message: msg, Type: "end"})
	snap := cbt.Snapshot()
	o.combatMu.Unlock()

	o.ticks.Unregister(roomID)
	o.sessions.SetRoomCombatStatus(roomID, false)
	o.logger.Info("combat ended",
		zap.String("room", roomID),
		zap.String("combat", combatID),
		zap.String("result", string(result)),
	)
	o.broadcaster.CombatEnded(roomID, snap)

	retention := msDuration(o.cfg.RetentionMs)
	o.timersMu.Lock()
	if old, ok := o.timers[combatID]; ok {
		old.Stop()
	}
	o.timers[combatID] = combat.NewDeferredTimer(retention, func() {
		o.evictCombat(roomID, combatID)
	})
	o.timersMu.Unlock()
}

// evictCombat drops the retained record once the retention window passes.
// Identity-checked so a newer combat in the same room is never evicted.
func (o *Orchestrator) evictCombat(roomID, combatID string) {
	o.combatMu.Lock()
	if cbt, ok := o.combats[roomID]; ok && cbt.ID == combatID {
		delete(o.combats, roomID)
	}
	o.combatMu.Unlock()
	o.clearTimer(combatID)

	o.logger.Debug("combat record evicted",
		zap.String("room", roomID),
		zap.String("combat", combatID),
	)
}

func (o *Orchestrator) clearTimer(combatID string) {
	o.timersMu.Lock()
	if t, ok := o.timers[combatID]; ok {
		t.Stop()
		delete(o.timers, combatID)
	}
	o.timersMu.Unlock()
}

// CombatInRoom returns a snapshot of the room's encounter, live or retained,
// or nil when none exists.
func (o *Orchestrator) CombatInRoom(roomID string) *combat.Combat {
	o.combatMu.Lock()
	defer o.combatMu.Unlock()
	if cbt, ok := o.combats[roomID]; ok {
		return cbt.Snapshot()
	}
	return nil
}

// Stop cancels every pending deferred transition. Used at shutdown.
func (o *Orchestrator) Stop() {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()
	for id, t := range o.timers {
		t.Stop()
		delete(o.timers, id)
	}
}

func msDuration(ms int) time.Duration {
	d := time.Duration(ms) * time.Millisecond
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}
