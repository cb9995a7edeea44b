package bot

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"gemvault/internal/model"
	"gemvault/internal/period"
	"gemvault/internal/repository"
	"gemvault/internal/service"
	"gemvault/pkg/token"
)

// Deps bundles everything the conversation machine calls into.
type Deps struct {
	Sessions repository.SessionRepository
	Users    repository.UserRepository

	Ledger    *service.LedgerService
	Delivery  *service.DeliveryService
	Files     *service.FileService
	Gifts     *service.GiftService
	Missions  *service.MissionService
	Lottery   *service.LotteryService
	Purchases *service.PurchaseService
	Tickets   *service.TicketService
	Referrals *service.ReferralService
	Settings  *service.SettingsCache
	Limiter   *service.RateLimiter
	Backup    *service.BackupService
}

// Router is the conversation state machine. One update produces at most
// one state transition plus outbound effects. Updates for the same user
// are serialized; the session's Pending record decides which step handler
// runs next, and starting a new flow silently abandons the old one.
type Router struct {
	deps      Deps
	transport Transport
	now       period.Clock
	logger    *zap.Logger

	locks sync.Map // userID -> *sync.Mutex
}

func NewRouter(deps Deps, transport Transport, now period.Clock, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &Router{deps: deps, transport: transport, now: now, logger: logger}
}

func (r *Router) userLock(userID int64) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// HandleUpdate applies one update. Errors returned here are transport or
// store failures; user mistakes are answered in-band with a re-prompt.
func (r *Router) HandleUpdate(ctx context.Context, up Update) error {
	mu := r.userLock(up.UserID)
	mu.Lock()
	defer mu.Unlock()

	blocked, err := r.deps.Users.IsBlocked(ctx, up.UserID)
	if err != nil {
		return err
	}
	if blocked {
		r.logger.Debug("update from blocked user dropped", zap.Int64("user_id", up.UserID))
		return nil
	}

	user, err := r.deps.Ledger.GetOrCreate(ctx, up.UserID, up.Username)
	if err != nil {
		return err
	}
	session, err := r.deps.Sessions.Get(ctx, up.UserID)
	if err != nil {
		return err
	}

	if up.Action == ActionCancel || strings.EqualFold(strings.TrimSpace(up.Text), "/cancel") {
		session.Clear()
		if err := r.deps.Sessions.Save(ctx, session); err != nil {
			return err
		}
		return r.sendMenu(ctx, user)
	}

	if payload, ok := startCommand(up.Text); ok {
		return r.handleStart(ctx, user, session, payload)
	}

	if up.Action != "" {
		return r.handleAction(ctx, user, session, up)
	}

	if session.Active() {
		return r.handleStep(ctx, user, session, up)
	}

	if up.DocumentFileID != "" || up.PhotoFileID != "" {
		return r.storeUpload(ctx, user, up)
	}

	return r.sendMenu(ctx, user)
}

// startCommand parses "/start" with an optional deep-link payload.
func startCommand(text string) (payload string, ok bool) {
	text = strings.TrimSpace(text)
	if text != "/start" && !strings.HasPrefix(text, "/start ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(text, "/start")), true
}

// handleStart resolves the deep-link payload: "ref_<id>" attributes a
// referral, a bare token starts a fetch, "<token>_ref_<id>" does both.
func (r *Router) handleStart(ctx context.Context, user *model.User, session *model.Session, payload string) error {
	settings, err := r.deps.Settings.Get(ctx)
	if err != nil {
		return err
	}

	var fileToken string
	var referrer int64
	switch {
	case payload == "":
	case strings.HasPrefix(payload, "ref_"):
		referrer = parseID(strings.TrimPrefix(payload, "ref_"))
	case strings.Contains(payload, "_ref_"):
		parts := strings.SplitN(payload, "_ref_", 2)
		fileToken = parts[0]
		referrer = parseID(parts[1])
	case token.Valid(payload):
		fileToken = payload
	}

	if referrer != 0 && fileToken == "" {
		// Sign-up referral: attributed now rather than on first fetch.
		r.deps.Referrals.Attribute(ctx, user.ID, referrer, settings.ReferralBonus)
	}

	if fileToken != "" {
		return r.startFetch(ctx, user, session, fileToken, referrer)
	}
	return r.sendMenu(ctx, user)
}

// startFetch runs the delivery gates for a token and routes the outcome:
// delivered, a confirm prompt, a join prompt (with the fetch parked in
// the session), or a denial message.
func (r *Router) startFetch(ctx context.Context, user *model.User, session *model.Session, fileToken string, referrer int64) error {
	if !r.deps.Limiter.Allow(ctx, user.ID, "fetch") {
		return r.send(ctx, user.ID, msgRateLimited)
	}

	isAdmin := r.isAdmin(ctx, user.ID)
	result, err := r.deps.Delivery.Request(ctx, user.ID, fileToken, referrer, isAdmin)
	if err != nil {
		return err
	}

	switch result.Status {
	case service.StatusDelivered:
		session.Clear()
		if err := r.deps.Sessions.Save(ctx, session); err != nil {
			return err
		}
		return r.sendItem(ctx, user.ID, result.Item)

	case service.StatusAwaitingPayment:
		session.Pending = model.Pending{Kind: model.PendingDeliveryConfirm}
		session.PendingDownload = fileToken
		session.PendingRef = referrer
		if err := r.deps.Sessions.Save(ctx, session); err != nil {
			return err
		}
		balance, _ := r.deps.Ledger.Balance(ctx, user.ID)
		return r.send(ctx, user.ID, msgConfirmPurchase(result.Cost, balance))

	default:
		return r.sendDenial(ctx, user, session, fileToken, referrer, result)
	}
}

// sendDenial answers a gate denial. join_required parks the fetch so the
// "joined" action can resume it after membership is verified.
func (r *Router) sendDenial(ctx context.Context, user *model.User, session *model.Session, fileToken string, referrer int64, result *service.DeliveryResult) error {
	if result.Reason == service.DenyJoinRequired {
		session.PendingDownload = fileToken
		session.PendingRef = referrer
		if err := r.deps.Sessions.Save(ctx, session); err != nil {
			return err
		}
		settings, err := r.deps.Settings.Get(ctx)
		if err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgJoinRequired(settings.RequiredChannels))
	}
	return r.send(ctx, user.ID, msgDenied(result))
}

// handleAction routes button clicks. A recognized action replaces any
// in-progress flow.
func (r *Router) handleAction(ctx context.Context, user *model.User, session *model.Session, up Update) error {
	verb, arg := splitAction(up.Action)

	if disabled, err := r.featureDisabled(ctx, verb); err != nil {
		return err
	} else if disabled && !r.isAdmin(ctx, user.ID) {
		return r.send(ctx, user.ID, msgFeatureDisabled)
	}

	switch verb {
	case ActionMenu:
		return r.sendMenu(ctx, user)
	case ActionBalance:
		balance, err := r.deps.Ledger.Balance(ctx, user.ID)
		if err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgBalance(balance))
	case ActionTransfer:
		return r.startTransfer(ctx, user, session)
	case ActionMissions:
		return r.sendMissions(ctx, user)
	case "mission":
		return r.startMission(ctx, user, session, arg)
	case ActionCheckIn:
		return r.claimCheckIn(ctx, user)
	case ActionLottery:
		return r.enrollLottery(ctx, user)
	case ActionGift:
		return r.startGiftRedeem(ctx, user, session)
	case ActionTickets:
		return r.startTicket(ctx, user, session)
	case "ticket":
		return r.ticketAction(ctx, user, session, arg)
	case ActionBuy:
		return r.startPurchase(ctx, user, session)
	case ActionMyFiles:
		return r.sendMyFiles(ctx, user)
	case "file":
		return r.fileAction(ctx, user, session, arg)
	case ActionJoined:
		return r.resumePending(ctx, user, session)
	case ActionConfirm:
		return r.confirmPending(ctx, user, session)
	}

	if strings.HasPrefix(up.Action, "admin") || strings.HasPrefix(up.Action, "purchase:") {
		return r.handleAdminAction(ctx, user, session, up)
	}

	r.logger.Debug("unknown action", zap.String("action", up.Action), zap.Int64("user_id", user.ID))
	return r.sendMenu(ctx, user)
}

// confirmPending commits a quoted priced fetch. Gates re-run inside the
// delivery service; the quote may have gone stale.
func (r *Router) confirmPending(ctx context.Context, user *model.User, session *model.Session) error {
	if session.Pending.Kind != model.PendingDeliveryConfirm || session.PendingDownload == "" {
		return r.sendMenu(ctx, user)
	}

	fileToken, referrer := session.PendingDownload, session.PendingRef
	isAdmin := r.isAdmin(ctx, user.ID)
	result, err := r.deps.Delivery.Confirm(ctx, user.ID, fileToken, referrer, isAdmin)
	if err != nil {
		return err
	}

	if result.Status == service.StatusDelivered {
		session.Clear()
		if err := r.deps.Sessions.Save(ctx, session); err != nil {
			return err
		}
		if err := r.sendItem(ctx, user.ID, result.Item); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgDebited(result.Cost, result.Balance))
	}
	return r.sendDenial(ctx, user, session, fileToken, referrer, result)
}

// resumePending retries a fetch parked by the join gate.
func (r *Router) resumePending(ctx context.Context, user *model.User, session *model.Session) error {
	if session.PendingDownload == "" {
		return r.sendMenu(ctx, user)
	}
	return r.startFetch(ctx, user, session, session.PendingDownload, session.PendingRef)
}

// handleStep dispatches free-text (or attachment) input to the step the
// session is waiting on.
func (r *Router) handleStep(ctx context.Context, user *model.User, session *model.Session, up Update) error {
	switch session.Pending.Kind {
	case model.PendingDeliveryConfirm:
		// Only the confirm button advances this one.
		return r.send(ctx, user.ID, msgConfirmOrCancel)

	case model.PendingTransferTarget, model.PendingTransferAmount, model.PendingTransferConfirm:
		return r.stepTransfer(ctx, user, session, up)
	case model.PendingGiftRedeemCode:
		return r.stepGiftRedeem(ctx, user, session, up)
	case model.PendingMissionAnswer:
		return r.stepMissionAnswer(ctx, user, session, up)
	case model.PendingTicketCategory, model.PendingTicketSubject, model.PendingTicketDesc, model.PendingTicketReply:
		return r.stepTicket(ctx, user, session, up)
	case model.PendingPurchasePackage, model.PendingPurchaseReceipt:
		return r.stepPurchase(ctx, user, session, up)
	case model.PendingFileRename, model.PendingFilePrice:
		return r.stepFileEdit(ctx, user, session, up)

	case model.PendingMissionTitle, model.PendingMissionReward, model.PendingMissionPeriod,
		model.PendingGiftCode, model.PendingGiftAmount, model.PendingGiftMaxUses,
		model.PendingGiveBalanceID, model.PendingGiveBalanceAmt,
		model.PendingBroadcastText:
		return r.stepAdmin(ctx, user, session, up)
	}

	// Unknown pending state, likely from an older build. Reset.
	session.Clear()
	if err := r.deps.Sessions.Save(ctx, session); err != nil {
		return err
	}
	return r.sendMenu(ctx, user)
}

// featureDisabled consults the button-disable list in settings. A
// listed verb is switched off for regular users; admins pass.
func (r *Router) featureDisabled(ctx context.Context, verb string) (bool, error) {
	settings, err := r.deps.Settings.Get(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range settings.ButtonsDisabled {
		if strings.EqualFold(strings.TrimSpace(name), verb) {
			return true, nil
		}
	}
	return false, nil
}

// isAdmin consults the admin marker list. Checked again at every admin
// wizard step, not only at entry.
func (r *Router) isAdmin(ctx context.Context, userID int64) bool {
	ids, err := r.deps.Users.AdminIDs(ctx)
	if err != nil {
		r.logger.Warn("admin list unavailable", zap.Error(err))
		return false
	}
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *Router) send(ctx context.Context, chatID int64, text string) error {
	if err := r.transport.SendText(ctx, chatID, text); err != nil {
		r.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return nil
}

func (r *Router) sendItem(ctx context.Context, chatID int64, item *model.FileItem) error {
	if err := r.transport.SendFile(ctx, chatID, item); err != nil {
		r.logger.Warn("file send failed", zap.Int64("chat_id", chatID), zap.String("token", item.Token), zap.Error(err))
	}
	return nil
}

func (r *Router) sendMenu(ctx context.Context, user *model.User) error {
	settings, err := r.deps.Settings.Get(ctx)
	if err != nil {
		return err
	}
	text := settings.WelcomeText
	if text == "" {
		text = msgDefaultWelcome
	}
	return r.send(ctx, user.ID, text)
}

// notifyAdmins sends to the configured admin chat, if any.
func (r *Router) notifyAdmins(ctx context.Context, text string) {
	settings, err := r.deps.Settings.Get(ctx)
	if err != nil || settings.AdminChatID == 0 {
		return
	}
	if err := r.transport.SendText(ctx, settings.AdminChatID, text); err != nil {
		r.logger.Warn("admin notify failed", zap.Error(err))
	}
}

func splitAction(action string) (verb, arg string) {
	if i := strings.Index(action, ":"); i >= 0 {
		return action[:i], action[i+1:]
	}
	return action, ""
}
