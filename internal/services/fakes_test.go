package services_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pklive-backend/internal/models"
)

// memLedger is an in-memory LedgerStore. Transfer holds one lock
// across check and mutation, matching the atomicity contract of the
// Redis script.
type memLedger struct {
	mu            sync.Mutex
	balances      map[int64]int64
	transactions  []*models.Transaction
	notifications []*models.Notification
	idemKeys      map[string]struct{}
}

func newMemLedger(balances map[int64]int64) *memLedger {
	if balances == nil {
		balances = make(map[int64]int64)
	}
	return &memLedger{
		balances: balances,
		idemKeys: make(map[string]struct{}),
	}
}

func (l *memLedger) GetWallet(_ context.Context, userID int64) (*models.Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &models.Wallet{UserID: userID, Balance: l.balances[userID]}, nil
}

func (l *memLedger) Transfer(_ context.Context, fromID, toID, amount int64) (int64, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[fromID] < amount {
		return 0, 0, fmt.Errorf("%w: need %d", models.ErrInsufficientFunds, amount)
	}
	if fromID == toID {
		return l.balances[fromID], l.balances[fromID], nil
	}
	l.balances[fromID] -= amount
	l.balances[toID] += amount
	return l.balances[fromID], l.balances[toID], nil
}

func (l *memLedger) Credit(_ context.Context, userID, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
	return l.balances[userID], nil
}

func (l *memLedger) AppendTransaction(_ context.Context, tx *models.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transactions = append(l.transactions, tx)
	return nil
}

func (l *memLedger) AppendNotification(_ context.Context, n *models.Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifications = append(l.notifications, n)
	return nil
}

func (l *memLedger) ReserveIdempotencyKey(_ context.Context, userID int64, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := fmt.Sprintf("%d:%s", userID, key)
	if _, used := l.idemKeys[k]; used {
		return false, nil
	}
	l.idemKeys[k] = struct{}{}
	return true, nil
}

func (l *memLedger) ReleaseIdempotencyKey(_ context.Context, userID int64, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.idemKeys, fmt.Sprintf("%d:%s", userID, key))
	return nil
}

func (l *memLedger) balance(userID int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

func (l *memLedger) recorded() []*models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*models.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

type memCatalog struct {
	gifts map[string]*models.Gift
}

func newMemCatalog(gifts ...*models.Gift) *memCatalog {
	c := &memCatalog{gifts: make(map[string]*models.Gift)}
	for _, g := range gifts {
		c.gifts[g.ID] = g
	}
	return c
}

func (c *memCatalog) GetGift(_ context.Context, giftID string) (*models.Gift, error) {
	gift, ok := c.gifts[giftID]
	if !ok {
		return nil, fmt.Errorf("%w: gift %s", models.ErrNotFound, giftID)
	}
	return gift, nil
}

func (c *memCatalog) ListActiveGifts(_ context.Context) ([]*models.Gift, error) {
	var out []*models.Gift
	for _, g := range c.gifts {
		if g.IsActive {
			out = append(out, g)
		}
	}
	return out, nil
}

type memStreams struct {
	streams map[string]*models.Stream
}

func newMemStreams(streams ...*models.Stream) *memStreams {
	s := &memStreams{streams: make(map[string]*models.Stream)}
	for _, st := range streams {
		s.streams[st.ID] = st
	}
	return s
}

func (s *memStreams) GetStream(_ context.Context, streamID string) (*models.Stream, error) {
	stream, ok := s.streams[streamID]
	if !ok {
		return nil, fmt.Errorf("%w: stream %s", models.ErrNotFound, streamID)
	}
	return stream, nil
}

// memPublisher records published events per room and per user.
type memPublisher struct {
	mu       sync.Mutex
	events   []publishedEvent
	unicasts []unicastEvent
}

type publishedEvent struct {
	roomID string
	event  models.ServerEvent
}

type unicastEvent struct {
	userID int64
	event  models.ServerEvent
}

func (p *memPublisher) Publish(roomID string, event models.ServerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{roomID: roomID, event: event})
}

func (p *memPublisher) PublishToUser(userID int64, event models.ServerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unicasts = append(p.unicasts, unicastEvent{userID: userID, event: event})
}

func (p *memPublisher) unicastTo(userID int64) []models.ServerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.ServerEvent
	for _, u := range p.unicasts {
		if u.userID == userID {
			out = append(out, u.event)
		}
	}
	return out
}

func (p *memPublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *memPublisher) ofType(t models.EventType) []publishedEvent {
	var out []publishedEvent
	for _, e := range p.published() {
		if e.event.Type == t {
			out = append(out, e)
		}
	}
	return out
}
