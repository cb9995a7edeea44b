package repository

import (
	"context"
	"errors"
	"time"

	"gemvault/internal/model"
)

var ErrNotFound = errors.New("record not found")

// UserRepository is the ledger-side user store plus its global indices.
// Block status lives in a separate marker record, mirroring the original
// layout where blocks survive user-record rewrites.
type UserRepository interface {
	Get(ctx context.Context, id int64) (*model.User, error)
	Save(ctx context.Context, user *model.User) error
	ListIDs(ctx context.Context) ([]int64, error)
	AddToIndex(ctx context.Context, id int64) error

	AdminIDs(ctx context.Context) ([]int64, error)
	SetAdmin(ctx context.Context, id int64, admin bool) error

	IsBlocked(ctx context.Context, id int64) (bool, error)
	SetBlocked(ctx context.Context, id int64, blocked bool) error

	GetCheckIn(ctx context.Context, id int64) (*model.CheckIn, error)
	SaveCheckIn(ctx context.Context, rec *model.CheckIn) error

	WeeklyReferrals(ctx context.Context, id int64, weekKey string) (int, error)
	IncrWeeklyReferrals(ctx context.Context, id int64, weekKey string) (int, error)
}

type SessionRepository interface {
	Get(ctx context.Context, userID int64) (*model.Session, error)
	Save(ctx context.Context, session *model.Session) error
	Clear(ctx context.Context, userID int64) error
}

type FileRepository interface {
	Get(ctx context.Context, token string) (*model.FileItem, error)
	Save(ctx context.Context, item *model.FileItem) error
	Delete(ctx context.Context, token string) error
	ListByOwner(ctx context.Context, owner int64) ([]string, error)
	ListAll(ctx context.Context) ([]string, error)
}

type MissionRepository interface {
	Get(ctx context.Context, id string) (*model.Mission, error)
	Save(ctx context.Context, mission *model.Mission) error
	Delete(ctx context.Context, id string) error
	ListIDs(ctx context.Context) ([]string, error)

	GetProgress(ctx context.Context, userID int64) (*model.MissionProgress, error)
	SaveProgress(ctx context.Context, progress *model.MissionProgress) error

	IncrWeeklyScore(ctx context.Context, userID int64, weekKey string, amount int64) error
	WeeklyScores(ctx context.Context, weekKey string) (map[int64]int64, error)
}

type GiftRepository interface {
	Get(ctx context.Context, code string) (*model.GiftCode, error)
	Save(ctx context.Context, gift *model.GiftCode) error
	Delete(ctx context.Context, code string) error
	ListCodes(ctx context.Context) ([]string, error)

	// Redemption markers: presence means this user already redeemed this code.
	Redeemed(ctx context.Context, code string, userID int64) (bool, error)
	MarkRedeemed(ctx context.Context, code string, userID int64, at time.Time) error
}

type PurchaseRepository interface {
	Get(ctx context.Context, id string) (*model.Purchase, error)
	Save(ctx context.Context, purchase *model.Purchase) error
	PendingIDs(ctx context.Context) ([]string, error)
	SetPending(ctx context.Context, id string, pending bool) error
}

type TicketRepository interface {
	Get(ctx context.Context, id string) (*model.Ticket, error)
	Save(ctx context.Context, ticket *model.Ticket) error
	ListIDs(ctx context.Context) ([]string, error)
}

type LotteryRepository interface {
	Config(ctx context.Context) (*model.LotteryConfig, error)
	SaveConfig(ctx context.Context, cfg *model.LotteryConfig) error

	Pool(ctx context.Context, dayKey string) (*model.LotteryPool, error)
	SavePool(ctx context.Context, pool *model.LotteryPool) error

	Drawn(ctx context.Context, dayKey string) (bool, error)
	MarkDrawn(ctx context.Context, dayKey string, at time.Time) error

	History(ctx context.Context) ([]model.LotteryDraw, error)
	AppendHistory(ctx context.Context, draw model.LotteryDraw) error
}

type SettingsRepository interface {
	Get(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, settings *model.Settings) error
}

// UsageRepository holds the small windowed counters: per-user daily priced
// downloads and the best-effort per-action rate limiter.
type UsageRepository interface {
	DailyDownloads(ctx context.Context, userID int64, dayKey string) (int, error)
	IncrDailyDownloads(ctx context.Context, userID int64, dayKey string) (int, error)

	RateWindow(ctx context.Context, userID int64, action string) ([]time.Time, error)
	SaveRateWindow(ctx context.Context, userID int64, action string, window []time.Time) error
}
