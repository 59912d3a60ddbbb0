package models

import "time"

type BattleStatus string

const (
	BattleStatusPaired BattleStatus = "PAIRED"
	BattleStatusActive BattleStatus = "ACTIVE"
	BattleStatusEnded  BattleStatus = "ENDED"
)

type BattleSide string

const (
	BattleSideA BattleSide = "A"
	BattleSideB BattleSide = "B"
)

// Battle is a read-only snapshot of an in-memory PK battle. Battles
// are not persisted: a process restart loses in-flight battles and
// clients seeing an unknown battle id should exit the battle view.
type Battle struct {
	ID              string       `json:"id"`
	StreamA         string       `json:"stream_a"`
	StreamB         string       `json:"stream_b"`
	StreamerA       int64        `json:"streamer_a"`
	StreamerB       int64        `json:"streamer_b"`
	ScoreA          int64        `json:"score_a"`
	ScoreB          int64        `json:"score_b"`
	HeartsA         int64        `json:"hearts_a"`
	HeartsB         int64        `json:"hearts_b"`
	DurationSeconds int64        `json:"duration_seconds"`
	Status          BattleStatus `json:"status"`
	StartedAt       time.Time    `json:"started_at,omitempty"`
	EndedAt         time.Time    `json:"ended_at,omitempty"`
	// WinnerSide is "A", "B" or "" for a tie. Only meaningful once
	// Status is ENDED.
	WinnerSide BattleSide `json:"winner_side,omitempty"`
	StopReason string     `json:"stop_reason,omitempty"` // timeout, forced, cancelled
}

type ChallengeRequest struct {
	OpponentStreamID string `json:"opponent_stream_id" binding:"required"`
	DurationSeconds  int64  `json:"duration_seconds"`
}
