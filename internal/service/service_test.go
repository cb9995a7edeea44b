package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gemvault/internal/event"
	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
	"gemvault/internal/repository/kv"
)

// fakeClock drives period boundaries and cooldowns in tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMembers struct {
	member bool
	err    error
}

func (f *fakeMembers) IsMember(context.Context, string, int64) (bool, error) {
	return f.member, f.err
}

// testEnv wires every service over a shared in-memory store.
type testEnv struct {
	clock     *fakeClock
	store     *kvstore.MemoryStore
	users     repository.UserRepository
	files     repository.FileRepository
	missions  repository.MissionRepository
	gifts     repository.GiftRepository
	purchases repository.PurchaseRepository
	lotteries repository.LotteryRepository
	settings  repository.SettingsRepository
	usage     repository.UsageRepository

	members *fakeMembers

	ledger    *LedgerService
	cache     *SettingsCache
	referrals *ReferralService
	giftSvc   *GiftService
	missions2 *MissionService
	lottery   *LotteryService
	purchase  *PurchaseService
	delivery  *DeliveryService
	filesSvc  *FileService
}

func newTestEnv() *testEnv {
	clock := newFakeClock(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC))
	store := kvstore.NewMemory()

	env := &testEnv{
		clock:     clock,
		store:     store,
		users:     kv.NewUserRepository(store),
		files:     kv.NewFileRepository(store),
		missions:  kv.NewMissionRepository(store),
		gifts:     kv.NewGiftRepository(store),
		purchases: kv.NewPurchaseRepository(store),
		lotteries: kv.NewLotteryRepository(store),
		settings:  kv.NewSettingsRepository(store),
		usage:     kv.NewUsageRepository(store),
		members:   &fakeMembers{member: true},
	}

	logger := zap.NewNop()
	env.ledger = NewLedgerService(env.users, clock.Now, logger)
	env.cache = NewSettingsCache(env.settings, clock.Now)
	env.referrals = NewReferralService(env.users, env.ledger, clock.Now, logger)
	env.giftSvc = NewGiftService(env.gifts, env.ledger, event.NewBus(), clock.Now, logger)
	env.missions2 = NewMissionService(env.missions, env.users, env.ledger, env.referrals, clock.Now, logger)
	env.lottery = NewLotteryService(env.lotteries, env.ledger, event.NewBus(), clock.Now, logger)
	env.purchase = NewPurchaseService(env.purchases, env.ledger, event.NewBus(), clock.Now, logger)
	env.delivery = NewDeliveryService(
		env.files, env.users, env.usage,
		env.ledger, env.referrals, env.cache,
		env.members, event.NewBus(), clock.Now, logger,
	)
	env.filesSvc = NewFileService(env.files, clock.Now, logger)
	return env
}

func (e *testEnv) mustUser(ctx context.Context, id int64, diamonds int64) *model.User {
	user, err := e.ledger.GetOrCreate(ctx, id, "")
	if err != nil {
		panic(err)
	}
	if diamonds > 0 {
		user.Diamonds = diamonds
		if err := e.users.Save(ctx, user); err != nil {
			panic(err)
		}
	}
	return user
}

func (e *testEnv) mustFile(ctx context.Context, owner int64, cost, maxDownloads int64, deleteOnLimit bool) *model.FileItem {
	item, err := e.filesSvc.Create(ctx, owner, model.FileTypeDocument, "payload-ref", "file.bin", 1024)
	if err != nil {
		panic(err)
	}
	item.CostPoints = cost
	item.MaxDownloads = maxDownloads
	item.DeleteOnLimit = deleteOnLimit
	if err := e.files.Save(ctx, item); err != nil {
		panic(err)
	}
	return item
}
