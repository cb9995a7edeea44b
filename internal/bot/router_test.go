package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"gemvault/internal/event"
	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
	"gemvault/internal/repository/kv"
	"gemvault/internal/service"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type fakeMembers struct {
	member bool
	err    error
}

func (f *fakeMembers) IsMember(context.Context, string, int64) (bool, error) {
	return f.member, f.err
}

type sentText struct {
	chat int64
	text string
}

type fakeTransport struct {
	mu    sync.Mutex
	texts []sentText
	items []*model.FileItem
	docs  []string
	fail  bool
}

func (t *fakeTransport) SendText(_ context.Context, chatID int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail {
		return context.DeadlineExceeded
	}
	t.texts = append(t.texts, sentText{chat: chatID, text: text})
	return nil
}

func (t *fakeTransport) SendFile(_ context.Context, chatID int64, item *model.FileItem) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, item)
	return nil
}

func (t *fakeTransport) UploadDocument(_ context.Context, _ int64, name string, _ []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.docs = append(t.docs, name)
	return nil
}

func (t *fakeTransport) lastText(chatID int64) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.texts) - 1; i >= 0; i-- {
		if t.texts[i].chat == chatID {
			return t.texts[i].text
		}
	}
	return ""
}

func (t *fakeTransport) textCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.texts)
}

func (t *fakeTransport) fileCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

type botEnv struct {
	router    *Router
	transport *fakeTransport
	members   *fakeMembers
	clock     *fakeClock

	users    repository.UserRepository
	sessions repository.SessionRepository
	files    repository.FileRepository
	settings repository.SettingsRepository

	ledger   *service.LedgerService
	filesSvc *service.FileService
	cache    *service.SettingsCache
}

func newBotEnv() *botEnv {
	clock := &fakeClock{now: time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)}
	store := kvstore.NewMemory()
	logger := zap.NewNop()

	env := &botEnv{
		clock:     clock,
		transport: &fakeTransport{},
		members:   &fakeMembers{member: true},
		users:     kv.NewUserRepository(store),
		sessions:  kv.NewSessionRepository(store),
		files:     kv.NewFileRepository(store),
		settings:  kv.NewSettingsRepository(store),
	}
	missions := kv.NewMissionRepository(store)
	gifts := kv.NewGiftRepository(store)
	purchases := kv.NewPurchaseRepository(store)
	lotteries := kv.NewLotteryRepository(store)
	tickets := kv.NewTicketRepository(store)
	usage := kv.NewUsageRepository(store)

	env.ledger = service.NewLedgerService(env.users, clock.Now, logger)
	env.cache = service.NewSettingsCache(env.settings, clock.Now)
	referrals := service.NewReferralService(env.users, env.ledger, clock.Now, logger)
	giftSvc := service.NewGiftService(gifts, env.ledger, event.NewBus(), clock.Now, logger)
	missionSvc := service.NewMissionService(missions, env.users, env.ledger, referrals, clock.Now, logger)
	lotterySvc := service.NewLotteryService(lotteries, env.ledger, event.NewBus(), clock.Now, logger)
	purchaseSvc := service.NewPurchaseService(purchases, env.ledger, event.NewBus(), clock.Now, logger)
	ticketSvc := service.NewTicketService(tickets, clock.Now, logger)
	delivery := service.NewDeliveryService(
		env.files, env.users, usage,
		env.ledger, referrals, env.cache,
		env.members, event.NewBus(), clock.Now, logger,
	)
	env.filesSvc = service.NewFileService(env.files, clock.Now, logger)
	backup := service.NewBackupService(env.users, env.files, missions, gifts, env.settings, clock.Now, logger)
	limiter := service.NewRateLimiter(usage, clock.Now, 100, time.Minute)

	env.router = NewRouter(Deps{
		Sessions:  env.sessions,
		Users:     env.users,
		Ledger:    env.ledger,
		Delivery:  delivery,
		Files:     env.filesSvc,
		Gifts:     giftSvc,
		Missions:  missionSvc,
		Lottery:   lotterySvc,
		Purchases: purchaseSvc,
		Tickets:   ticketSvc,
		Referrals: referrals,
		Settings:  env.cache,
		Limiter:   limiter,
		Backup:    backup,
	}, env.transport, clock.Now, logger)
	return env
}

func (e *botEnv) mustFile(ctx context.Context, owner, cost int64) *model.FileItem {
	item, err := e.filesSvc.Create(ctx, owner, model.FileTypeDocument, "payload-ref", "file.bin", 1024)
	if err != nil {
		panic(err)
	}
	item.CostPoints = cost
	if err := e.files.Save(ctx, item); err != nil {
		panic(err)
	}
	return item
}

func (e *botEnv) text(ctx context.Context, userID int64, text string) {
	if err := e.router.HandleUpdate(ctx, Update{UserID: userID, Text: text}); err != nil {
		panic(err)
	}
}

func (e *botEnv) action(ctx context.Context, userID int64, action string) {
	if err := e.router.HandleUpdate(ctx, Update{UserID: userID, Action: action}); err != nil {
		panic(err)
	}
}

func (e *botEnv) pendingKind(ctx context.Context, userID int64) model.PendingKind {
	session, err := e.sessions.Get(ctx, userID)
	if err != nil {
		panic(err)
	}
	return session.Pending.Kind
}

func TestRouter_StartReferralPayloadCreditsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()

	env.text(ctx, 10, "/start")
	env.text(ctx, 20, "/start ref_10")
	env.text(ctx, 20, "/start ref_10")

	referrer, err := env.users.Get(ctx, 10)
	if err != nil {
		t.Fatalf("referrer missing: %v", err)
	}
	if referrer.Diamonds != 5 {
		t.Fatalf("expected one referral bonus of 5, got %d", referrer.Diamonds)
	}
	if referrer.Referrals != 1 {
		t.Fatalf("expected 1 referral, got %d", referrer.Referrals)
	}
}

func TestRouter_FetchQuoteThenConfirm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()
	item := env.mustFile(ctx, 9, 3)

	env.text(ctx, 1, "/start "+item.Token)
	if got := env.pendingKind(ctx, 1); got != model.PendingDeliveryConfirm {
		t.Fatalf("expected delivery confirm pending, got %q", got)
	}
	if !strings.Contains(env.transport.lastText(1), "costs 3") {
		t.Fatalf("expected quote message, got %q", env.transport.lastText(1))
	}

	// Confirm with no balance: denied in-band, quote stays parked.
	env.action(ctx, 1, ActionConfirm)
	if env.transport.fileCount() != 0 {
		t.Fatal("file delivered without payment")
	}

	if _, err := env.ledger.Credit(ctx, 1, 5); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	env.action(ctx, 1, ActionConfirm)

	if env.transport.fileCount() != 1 {
		t.Fatalf("expected 1 file delivered, got %d", env.transport.fileCount())
	}
	if got := env.pendingKind(ctx, 1); got != model.PendingNone {
		t.Fatalf("session not cleared after delivery: %q", got)
	}
	balance, _ := env.ledger.Balance(ctx, 1)
	if balance != 2 {
		t.Fatalf("expected balance 2, got %d", balance)
	}
}

func TestRouter_JoinGateParksAndResumesFetch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()
	item := env.mustFile(ctx, 9, 0)

	settings, _ := env.cache.Get(ctx)
	settings.RequiredChannels = []string{"@channel"}
	if err := env.cache.Update(ctx, settings); err != nil {
		t.Fatalf("settings update: %v", err)
	}
	env.members.member = false

	env.text(ctx, 1, "/start "+item.Token)
	if env.transport.fileCount() != 0 {
		t.Fatal("file delivered past the join gate")
	}

	session, _ := env.sessions.Get(ctx, 1)
	if session.PendingDownload != item.Token {
		t.Fatalf("fetch not parked, pending_download = %q", session.PendingDownload)
	}

	env.members.member = true
	env.action(ctx, 1, ActionJoined)
	if env.transport.fileCount() != 1 {
		t.Fatalf("expected delivery after join, got %d files", env.transport.fileCount())
	}
}

func TestRouter_TransferWizard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()
	env.text(ctx, 1, "/start")
	env.text(ctx, 2, "/start")
	if _, err := env.ledger.Credit(ctx, 1, 50); err != nil {
		t.Fatalf("credit: %v", err)
	}

	env.action(ctx, 1, ActionTransfer)
	if got := env.pendingKind(ctx, 1); got != model.PendingTransferTarget {
		t.Fatalf("expected transfer target pending, got %q", got)
	}

	// Bad input re-prompts without advancing.
	env.text(ctx, 1, "not a number")
	if got := env.pendingKind(ctx, 1); got != model.PendingTransferTarget {
		t.Fatalf("bad input advanced the wizard to %q", got)
	}

	env.text(ctx, 1, "2")
	env.text(ctx, 1, "20")
	if got := env.pendingKind(ctx, 1); got != model.PendingTransferConfirm {
		t.Fatalf("expected confirm step, got %q", got)
	}
	env.text(ctx, 1, "yes")

	from, _ := env.ledger.Balance(ctx, 1)
	to, _ := env.ledger.Balance(ctx, 2)
	if from != 30 || to != 20 {
		t.Fatalf("expected 30/20 after transfer, got %d/%d", from, to)
	}
	if !strings.Contains(env.transport.lastText(2), "received 20") {
		t.Fatalf("recipient not notified: %q", env.transport.lastText(2))
	}
}

func TestRouter_CancelClearsFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()
	env.text(ctx, 1, "/start")

	env.action(ctx, 1, ActionTransfer)
	env.text(ctx, 1, "/cancel")
	if got := env.pendingKind(ctx, 1); got != model.PendingNone {
		t.Fatalf("cancel left pending %q", got)
	}
}

func TestRouter_NewFlowReplacesOld(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()
	env.text(ctx, 1, "/start")

	env.action(ctx, 1, ActionTransfer)
	env.action(ctx, 1, ActionGift)
	if got := env.pendingKind(ctx, 1); got != model.PendingGiftRedeemCode {
		t.Fatalf("expected gift flow to replace transfer, got %q", got)
	}
}

func TestRouter_BlockedUserIsDropped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()
	env.text(ctx, 1, "/start")
	if err := env.users.SetBlocked(ctx, 1, true); err != nil {
		t.Fatalf("block: %v", err)
	}

	before := env.transport.textCount()
	env.text(ctx, 1, "/start")
	env.action(ctx, 1, ActionBalance)
	if env.transport.textCount() != before {
		t.Fatal("blocked user still received replies")
	}
}

func TestRouter_AdminWizardReVerifiesEachStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()
	env.text(ctx, 1, "/start")
	if err := env.users.SetAdmin(ctx, 1, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}

	env.action(ctx, 1, ActionAdminMission)
	if got := env.pendingKind(ctx, 1); got != model.PendingMissionTitle {
		t.Fatalf("expected mission wizard, got %q", got)
	}
	env.text(ctx, 1, "Join our group")
	if got := env.pendingKind(ctx, 1); got != model.PendingMissionReward {
		t.Fatalf("expected reward step, got %q", got)
	}

	// Revoked mid-wizard: the next step aborts and clears the flow.
	if err := env.users.SetAdmin(ctx, 1, false); err != nil {
		t.Fatalf("revoke admin: %v", err)
	}
	env.text(ctx, 1, "10")
	if got := env.pendingKind(ctx, 1); got != model.PendingNone {
		t.Fatalf("revoked admin kept wizard state %q", got)
	}
}

func TestRouter_GiftRedeemFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()
	env.text(ctx, 1, "/start")
	env.text(ctx, 9, "/start")
	if err := env.users.SetAdmin(ctx, 9, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}

	// Admin creates the code through the wizard.
	env.action(ctx, 9, ActionAdminGift)
	env.text(ctx, 9, "WELCOME10")
	env.text(ctx, 9, "10")
	env.text(ctx, 9, "0")

	env.action(ctx, 1, ActionGift)
	env.text(ctx, 1, "welcome10")
	balance, _ := env.ledger.Balance(ctx, 1)
	if balance != 10 {
		t.Fatalf("expected balance 10 after redeem, got %d", balance)
	}

	// Second attempt is refused.
	env.action(ctx, 1, ActionGift)
	env.text(ctx, 1, "WELCOME10")
	if got, _ := env.ledger.Balance(ctx, 1); got != 10 {
		t.Fatalf("double redemption changed balance to %d", got)
	}
}

func TestRouter_PurchaseReviewFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()
	env.text(ctx, 1, "/start")
	env.text(ctx, 9, "/start")
	if err := env.users.SetAdmin(ctx, 9, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}

	env.action(ctx, 1, ActionBuy)
	env.text(ctx, 1, "1")
	if got := env.pendingKind(ctx, 1); got != model.PendingPurchaseReceipt {
		t.Fatalf("expected receipt step, got %q", got)
	}

	if err := env.router.HandleUpdate(ctx, Update{UserID: 1, PhotoFileID: "photo-1"}); err != nil {
		t.Fatalf("receipt update: %v", err)
	}

	// The admin sees it pending and approves.
	env.action(ctx, 9, ActionAdminPurchases)
	pendingList := env.transport.lastText(9)
	if !strings.Contains(pendingList, "user 1") {
		t.Fatalf("pending list missing purchase: %q", pendingList)
	}
	id := extractPurchaseID(pendingList)
	if id == "" {
		t.Fatalf("no purchase id in %q", pendingList)
	}

	env.action(ctx, 9, "purchase:approve:"+id)
	balance, _ := env.ledger.Balance(ctx, 1)
	if balance != diamondPackages[0].Diamonds {
		t.Fatalf("expected %d after approval, got %d", diamondPackages[0].Diamonds, balance)
	}

	// Second approval tap does not double-credit.
	env.action(ctx, 9, "purchase:approve:"+id)
	if got, _ := env.ledger.Balance(ctx, 1); got != diamondPackages[0].Diamonds {
		t.Fatalf("double approval changed balance to %d", got)
	}
}

// extractPurchaseID pulls the id out of the pending-purchases listing.
func extractPurchaseID(listing string) string {
	for _, line := range strings.Split(listing, "\n") {
		line = strings.TrimPrefix(strings.TrimSpace(line), "• ")
		if fields := strings.Fields(line); len(fields) > 0 && fields[0] != "Pending" {
			return fields[0]
		}
	}
	return ""
}

func TestRouter_DocumentUploadRegistersFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()

	err := env.router.HandleUpdate(ctx, Update{
		UserID:         7,
		DocumentFileID: "doc-ref-1",
		DocumentName:   "notes.pdf",
		DocumentSize:   2048,
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	items, err := env.filesSvc.ListByOwner(ctx, 7)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 stored item, got %d", len(items))
	}
	item := items[0]
	if item.Type != model.FileTypeDocument || item.PayloadRef != "doc-ref-1" || item.Size != 2048 {
		t.Fatalf("stored item mismatch: %+v", item)
	}
	if !strings.Contains(env.transport.lastText(7), item.Token) {
		t.Fatalf("reply should carry the share token, got %q", env.transport.lastText(7))
	}

	// The token is immediately fetchable by someone else.
	env.text(ctx, 8, "/start "+item.Token)
	if env.transport.fileCount() != 1 {
		t.Fatalf("expected immediate free delivery, got %d files", env.transport.fileCount())
	}
}

func TestRouter_UploadDuringWizardIsNotIntake(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()

	env.action(ctx, 1, ActionTransfer)
	err := env.router.HandleUpdate(ctx, Update{
		UserID:         1,
		DocumentFileID: "doc-ref-2",
		DocumentName:   "receipt.jpg",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	items, err := env.filesSvc.ListByOwner(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("attachment inside a flow must not register a file, got %d", len(items))
	}
}

func TestRouter_DisabledButtonRefusedForUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newBotEnv()

	settings, err := env.cache.Get(ctx)
	if err != nil {
		t.Fatalf("settings load failed: %v", err)
	}
	settings.ButtonsDisabled = []string{"lottery"}
	if err := env.cache.Update(ctx, settings); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}

	env.action(ctx, 1, ActionLottery)
	if got := env.transport.lastText(1); got != msgFeatureDisabled {
		t.Fatalf("expected feature-disabled reply, got %q", got)
	}

	// Other actions are untouched.
	env.action(ctx, 1, ActionBalance)
	if got := env.transport.lastText(1); !strings.Contains(got, "0") {
		t.Fatalf("expected balance reply, got %q", got)
	}

	// Admins bypass the toggle.
	if err := env.users.SetAdmin(ctx, 2, true); err != nil {
		t.Fatalf("set admin failed: %v", err)
	}
	env.action(ctx, 2, ActionLottery)
	if got := env.transport.lastText(2); got == msgFeatureDisabled {
		t.Fatalf("admin should bypass the toggle, got %q", got)
	}
}
