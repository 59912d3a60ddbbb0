package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

// Client -> server events.
const (
	EventAuth        EventType = "AUTH"
	EventJoinStream  EventType = "JOIN_STREAM"
	EventLeaveStream EventType = "LEAVE_STREAM"
	EventChatMessage EventType = "CHAT_MESSAGE"
	EventHeartTap    EventType = "HEART_TAP"
)

// Server -> client events.
const (
	EventAuthAck       EventType = "AUTH_ACK"
	EventJoined        EventType = "JOINED"
	EventViewerCount   EventType = "VIEWER_COUNT"
	EventGiftSent      EventType = "GIFT_SENT"
	EventScoreUpdate   EventType = "SCORE_UPDATE"
	EventBattleEnded   EventType = "BATTLE_ENDED"
	EventBalanceUpdate EventType = "BALANCE_UPDATE"
	EventError         EventType = "ERROR"
)

type AuthPayload struct {
	Token string `json:"token"`
}

type JoinStreamPayload struct {
	StreamID string `json:"stream_id"`
}

type LeaveStreamPayload struct {
	StreamID string `json:"stream_id"`
}

type ChatMessagePayload struct {
	StreamID string `json:"stream_id"`
	Text     string `json:"text"`
}

type HeartTapPayload struct {
	BattleID string     `json:"battle_id"`
	Side     BattleSide `json:"side"`
}

// ClientEvent is the closed set of inbound wire events. Exactly one
// payload field is set, matching Type.
type ClientEvent struct {
	Type  EventType
	Auth  *AuthPayload
	Join  *JoinStreamPayload
	Leave *LeaveStreamPayload
	Chat  *ChatMessagePayload
	Heart *HeartTapPayload
}

type eventEnvelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeClientEvent validates a raw frame at the boundary. Unknown
// types and malformed payloads are rejected before anything downstream
// sees the event.
func DecodeClientEvent(raw []byte) (*ClientEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed event: %v", ErrValidation, err)
	}

	ev := &ClientEvent{Type: env.Type}

	switch env.Type {
	case EventAuth:
		var p AuthPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Token == "" {
			return nil, fmt.Errorf("%w: AUTH requires a token", ErrValidation)
		}
		ev.Auth = &p
	case EventJoinStream:
		var p JoinStreamPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.StreamID == "" {
			return nil, fmt.Errorf("%w: JOIN_STREAM requires a stream_id", ErrValidation)
		}
		ev.Join = &p
	case EventLeaveStream:
		var p LeaveStreamPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.StreamID == "" {
			return nil, fmt.Errorf("%w: LEAVE_STREAM requires a stream_id", ErrValidation)
		}
		ev.Leave = &p
	case EventChatMessage:
		var p ChatMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.StreamID == "" || p.Text == "" {
			return nil, fmt.Errorf("%w: CHAT_MESSAGE requires stream_id and text", ErrValidation)
		}
		ev.Chat = &p
	case EventHeartTap:
		var p HeartTapPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.BattleID == "" {
			return nil, fmt.Errorf("%w: HEART_TAP requires a battle_id", ErrValidation)
		}
		if p.Side != BattleSideA && p.Side != BattleSideB {
			return nil, fmt.Errorf("%w: HEART_TAP side must be A or B", ErrValidation)
		}
		ev.Heart = &p
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrValidation, env.Type)
	}

	return ev, nil
}

// ServerEvent is an outbound frame. Data is marshaled as-is.
type ServerEvent struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

func (e ServerEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type GiftSentPayload struct {
	StreamID  string `json:"stream_id"`
	FromUser  *User  `json:"from_user"`
	ToUserID  int64  `json:"to_user_id"`
	Gift      *Gift  `json:"gift"`
	Quantity  int64  `json:"quantity"`
	Timestamp int64  `json:"timestamp"`
}

// ScoreUpdatePayload carries the new aggregate totals, never deltas,
// so late or reordered frames resolve to a consistent view.
type ScoreUpdatePayload struct {
	BattleID string `json:"battle_id"`
	ScoreA   int64  `json:"score_a"`
	ScoreB   int64  `json:"score_b"`
	HeartsA  int64  `json:"hearts_a"`
	HeartsB  int64  `json:"hearts_b"`
}

type BattleEndedPayload struct {
	BattleID   string     `json:"battle_id"`
	ScoreA     int64      `json:"score_a"`
	ScoreB     int64      `json:"score_b"`
	WinnerSide BattleSide `json:"winner_side"`
	StopReason string     `json:"stop_reason"`
}

type JoinedPayload struct {
	StreamID    string `json:"stream_id"`
	User        *User  `json:"user,omitempty"`
	ViewerCount int    `json:"viewer_count"`
}

type ViewerCountPayload struct {
	StreamID    string `json:"stream_id"`
	ViewerCount int    `json:"viewer_count"`
}

// BalanceUpdatePayload is unicast to the affected user only; balances
// are never broadcast to a room.
type BalanceUpdatePayload struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ChatBroadcastPayload struct {
	StreamID  string `json:"stream_id"`
	User      *User  `json:"user"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func NewErrorEvent(code, message string) ServerEvent {
	return ServerEvent{Type: EventError, Data: ErrorPayload{Code: code, Message: message}}
}

func NewGiftSentEvent(streamID string, from *User, result *SendGiftResult) ServerEvent {
	return ServerEvent{Type: EventGiftSent, Data: GiftSentPayload{
		StreamID:  streamID,
		FromUser:  from,
		ToUserID:  result.ReceiverID,
		Gift:      result.Gift,
		Quantity:  result.Quantity,
		Timestamp: time.Now().Unix(),
	}}
}
