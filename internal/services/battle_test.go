package services_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pklive-backend/internal/models"
	"pklive-backend/internal/services"
)

func battleStreams() (*models.Stream, *models.Stream) {
	return &models.Stream{ID: "stream-a", StreamerID: 1, Live: true},
		&models.Stream{ID: "stream-b", StreamerID: 2, Live: true}
}

func activeBattle(t *testing.T, engine *services.BattleEngine, duration time.Duration) *models.Battle {
	t.Helper()
	a, b := battleStreams()
	battle, err := engine.Challenge(a, b, duration)
	require.NoError(t, err)
	battle, err = engine.Accept(battle.ID, b.StreamerID)
	require.NoError(t, err)
	return battle
}

func TestBattle_Lifecycle(t *testing.T) {
	pub := &memPublisher{}
	engine := services.NewBattleEngine(pub, time.Minute, zerolog.Nop())

	a, b := battleStreams()
	battle, err := engine.Challenge(a, b, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusPaired, battle.Status)

	// only the challenged streamer may accept
	_, err = engine.Accept(battle.ID, a.StreamerID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// a battle that has not started rejects score events with its own
	// error, not the ended one
	err = engine.ApplyGift(1, 100)
	assert.ErrorIs(t, err, models.ErrBattleNotStarted)
	err = engine.HeartTap(battle.ID, models.BattleSideA)
	assert.ErrorIs(t, err, models.ErrBattleNotStarted)

	battle, err = engine.Accept(battle.ID, b.StreamerID)
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusActive, battle.Status)

	require.NoError(t, engine.ApplyGift(1, 500))
	require.NoError(t, engine.ApplyGift(2, 300))
	require.NoError(t, engine.HeartTap(battle.ID, models.BattleSideB))

	got, err := engine.Get(battle.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.ScoreA)
	assert.Equal(t, int64(300), got.ScoreB)
	assert.Equal(t, int64(0), got.HeartsA)
	assert.Equal(t, int64(1), got.HeartsB)

	ended, err := engine.ForceEnd(battle.ID, a.StreamerID)
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusEnded, ended.Status)
	assert.Equal(t, models.BattleSideA, ended.WinnerSide)
	assert.Equal(t, services.StopReasonForced, ended.StopReason)

	// ended battles stop accepting score-affecting events
	err = engine.ApplyGift(1, 100)
	assert.ErrorIs(t, err, models.ErrNotFound)
	err = engine.HeartTap(battle.ID, models.BattleSideA)
	assert.ErrorIs(t, err, models.ErrBattleEnded)

	final, err := engine.Get(battle.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), final.ScoreA)

	// both rooms saw the end
	endedEvents := pub.ofType(models.EventBattleEnded)
	require.Len(t, endedEvents, 2)
	assert.ElementsMatch(t, []string{"stream-a", "stream-b"},
		[]string{endedEvents[0].roomID, endedEvents[1].roomID})
}

func TestBattle_NaturalTimeout(t *testing.T) {
	pub := &memPublisher{}
	engine := services.NewBattleEngine(pub, time.Minute, zerolog.Nop())
	battle := activeBattle(t, engine, 100*time.Millisecond)

	require.NoError(t, engine.ApplyGift(1, 500))
	require.NoError(t, engine.ApplyGift(2, 300))

	time.Sleep(400 * time.Millisecond)

	got, err := engine.Get(battle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusEnded, got.Status)
	assert.Equal(t, models.BattleSideA, got.WinnerSide)
	assert.Equal(t, services.StopReasonTimeout, got.StopReason)
}

func TestBattle_EndIsIdempotent(t *testing.T) {
	engine := services.NewBattleEngine(&memPublisher{}, time.Minute, zerolog.Nop())
	battle := activeBattle(t, engine, 100*time.Millisecond)

	time.Sleep(300 * time.Millisecond)

	// force-end racing (here: after) the natural timeout is a no-op
	ended, err := engine.ForceEnd(battle.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, services.StopReasonTimeout, ended.StopReason)

	again, err := engine.ForceEnd(battle.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ended.EndedAt, again.EndedAt)
}

func TestBattle_TieHasNoWinner(t *testing.T) {
	engine := services.NewBattleEngine(&memPublisher{}, time.Minute, zerolog.Nop())
	battle := activeBattle(t, engine, time.Minute)

	require.NoError(t, engine.ApplyGift(1, 250))
	require.NoError(t, engine.ApplyGift(2, 250))

	ended, err := engine.ForceEnd(battle.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.BattleSide(""), ended.WinnerSide)
}

func TestBattle_ScoreIsOrderIndependent(t *testing.T) {
	values := []int64{10, 250, 3, 42, 7, 100}

	totals := make([]int64, 2)
	for run := 0; run < 2; run++ {
		engine := services.NewBattleEngine(&memPublisher{}, time.Minute, zerolog.Nop())
		battle := activeBattle(t, engine, time.Minute)

		var wg sync.WaitGroup
		for _, v := range values {
			wg.Add(1)
			go func(v int64) {
				defer wg.Done()
				_ = engine.ApplyGift(1, v)
			}(v)
		}
		wg.Wait()

		got, err := engine.Get(battle.ID)
		require.NoError(t, err)
		totals[run] = got.ScoreA
	}

	assert.Equal(t, int64(412), totals[0])
	assert.Equal(t, totals[0], totals[1])
}

func TestBattle_BroadcastsCarryTotals(t *testing.T) {
	pub := &memPublisher{}
	engine := services.NewBattleEngine(pub, time.Minute, zerolog.Nop())
	battle := activeBattle(t, engine, time.Minute)

	require.NoError(t, engine.ApplyGift(1, 100))
	require.NoError(t, engine.ApplyGift(1, 50))

	updates := pub.ofType(models.EventScoreUpdate)
	require.NotEmpty(t, updates)

	last, ok := updates[len(updates)-1].event.Data.(models.ScoreUpdatePayload)
	require.True(t, ok)
	assert.Equal(t, battle.ID, last.BattleID)
	assert.Equal(t, int64(150), last.ScoreA)
}

func TestBattle_ChallengeConflicts(t *testing.T) {
	engine := services.NewBattleEngine(&memPublisher{}, time.Minute, zerolog.Nop())

	a, b := battleStreams()
	_, err := engine.Challenge(a, a, time.Minute)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = engine.Challenge(a, b, time.Minute)
	require.NoError(t, err)

	c := &models.Stream{ID: "stream-c", StreamerID: 3, Live: true}
	_, err = engine.Challenge(a, c, time.Minute)
	assert.ErrorIs(t, err, models.ErrConflict)

	offline := &models.Stream{ID: "stream-d", StreamerID: 4, Live: false}
	_, err = engine.Challenge(c, offline, time.Minute)
	assert.ErrorIs(t, err, models.ErrValidation)
}
