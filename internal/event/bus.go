package event

import (
	"strings"
	"sync"
	"time"
)

const (
	EventFileDelivered    = "file.delivered"
	EventDeliveryDenied   = "file.delivery.denied"
	EventPurchaseApproved = "purchase.approved"
	EventGiftRedeemed     = "gift.redeemed"
	EventLotteryDrawn     = "lottery.drawn"
)

type DeliveryPayload struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	Cost   int64  `json:"cost"`
	Reason string `json:"reason,omitempty"`
}

type PurchasePayload struct {
	PurchaseID string `json:"purchase_id"`
	UserID     int64  `json:"user_id"`
	Diamonds   int64  `json:"diamonds"`
}

type GiftRedeemedPayload struct {
	Code   string `json:"code"`
	UserID int64  `json:"user_id"`
	Amount int64  `json:"amount"`
}

type LotteryDrawnPayload struct {
	DayKey   string    `json:"day_key"`
	Winners  []int64   `json:"winners"`
	Reward   int64     `json:"reward"`
	DrawnAt  time.Time `json:"drawn_at"`
	PoolSize int       `json:"pool_size"`
}

type Bus struct {
	handlers sync.Map
	mu       sync.Mutex
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(event string, handler func(payload any)) {
	if b == nil || handler == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := make([]func(payload any), 0, 1)
	if current, ok := b.handlers.Load(eventName); ok {
		if casted, valid := current.([]func(payload any)); valid {
			handlers = append(handlers, casted...)
		}
	}
	handlers = append(handlers, handler)
	b.handlers.Store(eventName, handlers)
}

func (b *Bus) Publish(event string, payload any) {
	if b == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	current, ok := b.handlers.Load(eventName)
	if !ok {
		return
	}

	handlers, ok := current.([]func(payload any))
	if !ok || len(handlers) == 0 {
		return
	}

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		go handler(payload)
	}
}
