package services

import (
	"fmt"
	"math"
	"sync"
	"time"

	"pklive-backend/internal/models"

	"github.com/rs/zerolog"
)

const (
	StopReasonTimeout   = "timeout"
	StopReasonForced    = "forced"
	StopReasonCancelled = "cancelled"
)

// BattleEngine tracks two opposing scores for timed PK battles.
// Battle state lives only in memory; a restart drops in-flight
// battles and clients resolve that through a missing battle id.
type BattleEngine struct {
	mu         sync.Mutex
	battles    map[string]*battleInstance
	byStreamer map[int64]string

	publisher       Publisher
	defaultDuration time.Duration
	logger          zerolog.Logger
}

type battleInstance struct {
	battle   models.Battle
	duration time.Duration
	timer    *time.Timer
}

func NewBattleEngine(publisher Publisher, defaultDuration time.Duration, logger zerolog.Logger) *BattleEngine {
	return &BattleEngine{
		battles:         make(map[string]*battleInstance),
		byStreamer:      make(map[int64]string),
		publisher:       publisher,
		defaultDuration: defaultDuration,
		logger:          logger,
	}
}

// Challenge pairs two live streams into a PAIRED battle. The battle
// goes ACTIVE once the challenged streamer accepts.
func (e *BattleEngine) Challenge(challenger, opponent *models.Stream, duration time.Duration) (*models.Battle, error) {
	if challenger.StreamerID == opponent.StreamerID {
		return nil, fmt.Errorf("%w: cannot battle your own stream", models.ErrValidation)
	}
	if !challenger.Live || !opponent.Live {
		return nil, fmt.Errorf("%w: both streams must be live", models.ErrValidation)
	}
	if duration <= 0 {
		duration = e.defaultDuration
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.byStreamer[challenger.StreamerID]; ok {
		return nil, fmt.Errorf("%w: streamer %d already in battle %s", models.ErrConflict, challenger.StreamerID, id)
	}
	if id, ok := e.byStreamer[opponent.StreamerID]; ok {
		return nil, fmt.Errorf("%w: streamer %d already in battle %s", models.ErrConflict, opponent.StreamerID, id)
	}

	inst := &battleInstance{
		duration: duration,
		battle: models.Battle{
			ID:              models.GenerateBattleID(),
			StreamA:         challenger.ID,
			StreamB:         opponent.ID,
			StreamerA:       challenger.StreamerID,
			StreamerB:       opponent.StreamerID,
			DurationSeconds: int64(duration.Seconds()),
			Status:          models.BattleStatusPaired,
		},
	}

	e.battles[inst.battle.ID] = inst
	e.byStreamer[challenger.StreamerID] = inst.battle.ID
	e.byStreamer[opponent.StreamerID] = inst.battle.ID

	snapshot := inst.battle
	return &snapshot, nil
}

// Accept moves a PAIRED battle to ACTIVE and starts the countdown.
func (e *BattleEngine) Accept(battleID string, accepterID int64) (*models.Battle, error) {
	e.mu.Lock()
	inst, ok := e.battles[battleID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: battle %s", models.ErrNotFound, battleID)
	}
	if inst.battle.Status != models.BattleStatusPaired {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: battle %s is %s", models.ErrConflict, battleID, inst.battle.Status)
	}
	if accepterID != inst.battle.StreamerB {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: only the challenged streamer may accept", models.ErrUnauthorized)
	}

	inst.battle.Status = models.BattleStatusActive
	inst.battle.StartedAt = time.Now()
	inst.timer = time.AfterFunc(inst.duration, func() {
		e.end(battleID, StopReasonTimeout)
	})

	snapshot := inst.battle
	e.mu.Unlock()

	e.broadcastScore(&snapshot)

	e.logger.Info().
		Str("battle_id", battleID).
		Int64("duration_seconds", snapshot.DurationSeconds).
		Msg("battle started")

	return &snapshot, nil
}

// ApplyGift credits gift value to whichever side of an active battle
// the receiving streamer is on. ErrNotFound means the streamer is
// simply not battling; callers treat that as a non-event.
func (e *BattleEngine) ApplyGift(streamerID, value int64) error {
	if value < 0 {
		return fmt.Errorf("%w: negative gift value", models.ErrValidation)
	}

	e.mu.Lock()
	battleID, ok := e.byStreamer[streamerID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: streamer %d not in a battle", models.ErrNotFound, streamerID)
	}
	inst := e.battles[battleID]
	if inst.battle.Status == models.BattleStatusPaired {
		e.mu.Unlock()
		return fmt.Errorf("%w: battle %s", models.ErrBattleNotStarted, battleID)
	}
	if inst.battle.Status != models.BattleStatusActive {
		e.mu.Unlock()
		return fmt.Errorf("%w: battle %s", models.ErrBattleEnded, battleID)
	}

	switch streamerID {
	case inst.battle.StreamerA:
		if inst.battle.ScoreA > math.MaxInt64-value {
			e.mu.Unlock()
			return fmt.Errorf("%w: battle %s side A score", models.ErrOverflow, battleID)
		}
		inst.battle.ScoreA += value
	case inst.battle.StreamerB:
		if inst.battle.ScoreB > math.MaxInt64-value {
			e.mu.Unlock()
			return fmt.Errorf("%w: battle %s side B score", models.ErrOverflow, battleID)
		}
		inst.battle.ScoreB += value
	}

	snapshot := inst.battle
	e.mu.Unlock()

	e.broadcastScore(&snapshot)
	return nil
}

// HeartTap bumps a side's heart counter. Hearts are a secondary
// engagement metric, independent of the score.
func (e *BattleEngine) HeartTap(battleID string, side models.BattleSide) error {
	e.mu.Lock()
	inst, ok := e.battles[battleID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: battle %s", models.ErrNotFound, battleID)
	}
	if inst.battle.Status == models.BattleStatusPaired {
		e.mu.Unlock()
		return fmt.Errorf("%w: battle %s", models.ErrBattleNotStarted, battleID)
	}
	if inst.battle.Status != models.BattleStatusActive {
		e.mu.Unlock()
		return fmt.Errorf("%w: battle %s", models.ErrBattleEnded, battleID)
	}

	switch side {
	case models.BattleSideA:
		inst.battle.HeartsA++
	case models.BattleSideB:
		inst.battle.HeartsB++
	default:
		e.mu.Unlock()
		return fmt.Errorf("%w: side must be A or B", models.ErrValidation)
	}

	snapshot := inst.battle
	e.mu.Unlock()

	e.broadcastScore(&snapshot)
	return nil
}

// ForceEnd ends a battle early on behalf of one of its streamers.
// Racing a natural timeout is safe: the first transition wins.
func (e *BattleEngine) ForceEnd(battleID string, requesterID int64) (*models.Battle, error) {
	e.mu.Lock()
	inst, ok := e.battles[battleID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: battle %s", models.ErrNotFound, battleID)
	}
	if requesterID != inst.battle.StreamerA && requesterID != inst.battle.StreamerB {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: only a participant may end the battle", models.ErrUnauthorized)
	}
	paired := inst.battle.Status == models.BattleStatusPaired
	e.mu.Unlock()

	reason := StopReasonForced
	if paired {
		reason = StopReasonCancelled
	}
	e.end(battleID, reason)

	return e.Get(battleID)
}

func (e *BattleEngine) Get(battleID string) (*models.Battle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.battles[battleID]
	if !ok {
		return nil, fmt.Errorf("%w: battle %s", models.ErrNotFound, battleID)
	}

	snapshot := inst.battle
	return &snapshot, nil
}

// end performs the single ENDED transition. Idempotent: the second
// caller (forced end racing the timer, or a double force-end) is a
// no-op.
func (e *BattleEngine) end(battleID, reason string) {
	e.mu.Lock()
	inst, ok := e.battles[battleID]
	if !ok || inst.battle.Status == models.BattleStatusEnded {
		e.mu.Unlock()
		return
	}

	inst.battle.Status = models.BattleStatusEnded
	inst.battle.EndedAt = time.Now()
	inst.battle.StopReason = reason
	switch {
	case inst.battle.ScoreA > inst.battle.ScoreB:
		inst.battle.WinnerSide = models.BattleSideA
	case inst.battle.ScoreB > inst.battle.ScoreA:
		inst.battle.WinnerSide = models.BattleSideB
	default:
		// tie: no winner, no tiebreak
		inst.battle.WinnerSide = ""
	}

	if inst.timer != nil {
		inst.timer.Stop()
	}
	delete(e.byStreamer, inst.battle.StreamerA)
	delete(e.byStreamer, inst.battle.StreamerB)

	snapshot := inst.battle
	e.mu.Unlock()

	if e.publisher != nil {
		ended := models.ServerEvent{Type: models.EventBattleEnded, Data: models.BattleEndedPayload{
			BattleID:   snapshot.ID,
			ScoreA:     snapshot.ScoreA,
			ScoreB:     snapshot.ScoreB,
			WinnerSide: snapshot.WinnerSide,
			StopReason: snapshot.StopReason,
		}}
		e.publisher.Publish(snapshot.StreamA, ended)
		e.publisher.Publish(snapshot.StreamB, ended)
	}

	e.logger.Info().
		Str("battle_id", snapshot.ID).
		Str("reason", reason).
		Int64("score_a", snapshot.ScoreA).
		Int64("score_b", snapshot.ScoreB).
		Str("winner", string(snapshot.WinnerSide)).
		Msg("battle ended")
}

func (e *BattleEngine) broadcastScore(b *models.Battle) {
	if e.publisher == nil {
		return
	}

	update := models.ServerEvent{Type: models.EventScoreUpdate, Data: models.ScoreUpdatePayload{
		BattleID: b.ID,
		ScoreA:   b.ScoreA,
		ScoreB:   b.ScoreB,
		HeartsA:  b.HeartsA,
		HeartsB:  b.HeartsB,
	}}
	e.publisher.Publish(b.StreamA, update)
	e.publisher.Publish(b.StreamB, update)
}

// CleanupEndedBattles drops ended battles older than maxAge so the
// in-memory map does not grow over the stream's lifetime.
func (e *BattleEngine) CleanupEndedBattles(maxAge time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, inst := range e.battles {
		if inst.battle.Status == models.BattleStatusEnded && time.Since(inst.battle.EndedAt) > maxAge {
			delete(e.battles, id)
		}
	}
}
