package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gemvault/internal/event"
)

var (
	FilesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemvault_files_delivered_total",
		Help: "Total successful file deliveries",
	})

	DeliveriesDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gemvault_deliveries_denied_total",
		Help: "Delivery denials by gate reason",
	}, []string{"reason"})

	DiamondsSpent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemvault_diamonds_spent_total",
		Help: "Diamonds debited for paid deliveries",
	})

	PurchasesApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemvault_purchases_approved_total",
		Help: "Manually approved top-up purchases",
	})

	DiamondsPurchased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemvault_diamonds_purchased_total",
		Help: "Diamonds credited through approved purchases",
	})

	GiftRedemptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemvault_gift_redemptions_total",
		Help: "Successful gift code redemptions",
	})

	LotteryDraws = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemvault_lottery_draws_total",
		Help: "Completed lottery draws",
	})

	LotteryWinners = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gemvault_lottery_winners_total",
		Help: "Winners credited across lottery draws",
	})

	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gemvault_update_duration_seconds",
		Help:    "Time to process one inbound chat update",
		Buckets: prometheus.DefBuckets,
	})
)

func IncDeliveryDenied(reason string) {
	label := strings.TrimSpace(reason)
	if label == "" {
		label = "unknown"
	}
	DeliveriesDenied.WithLabelValues(label).Inc()
}

func ObserveUpdateDuration(duration time.Duration) {
	UpdateDuration.Observe(duration.Seconds())
}

// Subscribe wires the counters to the domain event bus.
func Subscribe(bus *event.Bus) {
	bus.Subscribe(event.EventFileDelivered, func(payload any) {
		FilesDelivered.Inc()
		if p, ok := payload.(event.DeliveryPayload); ok && p.Cost > 0 {
			DiamondsSpent.Add(float64(p.Cost))
		}
	})
	bus.Subscribe(event.EventDeliveryDenied, func(payload any) {
		if p, ok := payload.(event.DeliveryPayload); ok {
			IncDeliveryDenied(p.Reason)
			return
		}
		IncDeliveryDenied("")
	})
	bus.Subscribe(event.EventPurchaseApproved, func(payload any) {
		PurchasesApproved.Inc()
		if p, ok := payload.(event.PurchasePayload); ok {
			DiamondsPurchased.Add(float64(p.Diamonds))
		}
	})
	bus.Subscribe(event.EventGiftRedeemed, func(_ any) {
		GiftRedemptions.Inc()
	})
	bus.Subscribe(event.EventLotteryDrawn, func(payload any) {
		LotteryDraws.Inc()
		if p, ok := payload.(event.LotteryDrawnPayload); ok {
			LotteryWinners.Add(float64(len(p.Winners)))
		}
	})
}
