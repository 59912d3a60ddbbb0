package models

import "time"

type Stream struct {
	ID         string    `json:"id" redis:"id"`
	StreamerID int64     `json:"streamer_id" redis:"streamer_id"`
	Title      string    `json:"title" redis:"title"`
	Live       bool      `json:"live" redis:"live"`
	StartedAt  time.Time `json:"started_at" redis:"started_at"`
}
