package models_test

import (
	"encoding/json"
	"errors"
	"testing"

	"pklive-backend/internal/models"
)

func TestDecodeClientEvent(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, ev *models.ClientEvent)
	}{
		{
			name: "auth",
			raw:  `{"type":"AUTH","data":{"token":"abc"}}`,
			check: func(t *testing.T, ev *models.ClientEvent) {
				if ev.Auth == nil || ev.Auth.Token != "abc" {
					t.Errorf("expected auth payload, got %+v", ev)
				}
			},
		},
		{
			name: "join stream",
			raw:  `{"type":"JOIN_STREAM","data":{"stream_id":"s1"}}`,
			check: func(t *testing.T, ev *models.ClientEvent) {
				if ev.Join == nil || ev.Join.StreamID != "s1" {
					t.Errorf("expected join payload, got %+v", ev)
				}
			},
		},
		{
			name: "heart tap",
			raw:  `{"type":"HEART_TAP","data":{"battle_id":"b1","side":"A"}}`,
			check: func(t *testing.T, ev *models.ClientEvent) {
				if ev.Heart == nil || ev.Heart.Side != models.BattleSideA {
					t.Errorf("expected heart payload, got %+v", ev)
				}
			},
		},
		{name: "heart tap bad side", raw: `{"type":"HEART_TAP","data":{"battle_id":"b1","side":"C"}}`, wantErr: true},
		{name: "chat missing text", raw: `{"type":"CHAT_MESSAGE","data":{"stream_id":"s1"}}`, wantErr: true},
		{name: "auth missing token", raw: `{"type":"AUTH","data":{}}`, wantErr: true},
		{name: "unknown type", raw: `{"type":"SELF_DESTRUCT","data":{}}`, wantErr: true},
		{name: "not json", raw: `nope`, wantErr: true},
		{name: "server-only type rejected", raw: `{"type":"SCORE_UPDATE","data":{}}`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := models.DecodeClientEvent([]byte(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", ev)
				}
				if !errors.Is(err, models.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.check(t, ev)
		})
	}
}

func TestServerEventEncode(t *testing.T) {
	ev := models.ServerEvent{
		Type: models.EventScoreUpdate,
		Data: models.ScoreUpdatePayload{BattleID: "b1", ScoreA: 500, ScoreB: 300},
	}

	data, err := ev.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded struct {
		Type string                    `json:"type"`
		Data models.ScoreUpdatePayload `json:"data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Type != "SCORE_UPDATE" || decoded.Data.ScoreA != 500 {
		t.Errorf("unexpected frame: %s", data)
	}
}
