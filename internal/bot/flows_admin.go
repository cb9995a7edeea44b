package bot

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"gemvault/internal/model"
	"gemvault/internal/service"
)

type missionDraft struct {
	Title  string `json:"title"`
	Reward int64  `json:"reward"`
}

type giftDraft struct {
	Code   string `json:"code"`
	Amount int64  `json:"amount"`
}

type giveDraft struct {
	UserID int64 `json:"user_id"`
}

// handleAdminAction routes admin buttons. Every entry re-verifies the
// admin marker; a revoked admin mid-session is cut off here.
func (r *Router) handleAdminAction(ctx context.Context, user *model.User, session *model.Session, up Update) error {
	if !r.isAdmin(ctx, user.ID) {
		return r.sendMenu(ctx, user)
	}

	verb, arg := splitAction(up.Action)
	switch up.Action {
	case ActionAdmin:
		return r.send(ctx, user.ID, msgAdminMenu)

	case ActionAdminMission:
		if err := r.setPending(ctx, session, model.PendingMissionTitle, nil); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskMissionTitle)

	case ActionAdminGift:
		if err := r.setPending(ctx, session, model.PendingGiftCode, nil); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskGiftCodeNew)

	case ActionAdminGive:
		if err := r.setPending(ctx, session, model.PendingGiveBalanceID, nil); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskGiveUser)

	case ActionAdminBroadcast:
		if err := r.setPending(ctx, session, model.PendingBroadcastText, nil); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskBroadcast)

	case ActionAdminMaintenance:
		settings, err := r.deps.Settings.Get(ctx)
		if err != nil {
			return err
		}
		settings.MaintenanceMode = !settings.MaintenanceMode
		if err := r.deps.Settings.Update(ctx, settings); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgMaintenance(settings.MaintenanceMode))

	case ActionAdminPurchases:
		pending, err := r.deps.Purchases.Pending(ctx)
		if err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgPendingPurchases(pending))

	case ActionAdminBackup:
		payload, err := r.deps.Backup.Export(ctx)
		if err != nil {
			return err
		}
		name := "backup-" + r.now().Format("2006-01-02") + ".json"
		if err := r.transport.UploadDocument(ctx, user.ID, name, payload); err != nil {
			r.logger.Warn("backup upload failed", zap.Error(err))
		}
		return nil
	}

	if verb == "purchase" {
		return r.reviewPurchase(ctx, user, arg)
	}
	return r.send(ctx, user.ID, msgAdminMenu)
}

// reviewPurchase handles "approve:<id>" / "reject:<id>". The service
// enforces the state machine; a second tap on approve lands in
// wrong-state, not a second credit.
func (r *Router) reviewPurchase(ctx context.Context, user *model.User, arg string) error {
	op, id := splitAction(arg)

	var (
		purchase *model.Purchase
		err      error
	)
	switch op {
	case "approve":
		purchase, err = r.deps.Purchases.Approve(ctx, id, user.ID)
	case "reject":
		purchase, err = r.deps.Purchases.Reject(ctx, id, user.ID)
	default:
		return r.send(ctx, user.ID, msgAdminMenu)
	}

	switch {
	case errors.Is(err, service.ErrPurchaseNotFound):
		return r.send(ctx, user.ID, msgPurchaseGone)
	case errors.Is(err, service.ErrPurchaseWrongState):
		return r.send(ctx, user.ID, msgPurchaseAlreadyHandled)
	case err != nil:
		return err
	}

	if purchase.Status == model.PurchaseApproved {
		if err := r.send(ctx, purchase.UserID, msgPurchaseApproved(purchase.Diamonds)); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgPurchaseReviewed("approved", purchase.ID))
	}
	if err := r.send(ctx, purchase.UserID, msgPurchaseRejected); err != nil {
		return err
	}
	return r.send(ctx, user.ID, msgPurchaseReviewed("rejected", purchase.ID))
}

// stepAdmin advances the admin wizards. The admin check runs again on
// every step: losing the marker mid-wizard aborts the flow.
func (r *Router) stepAdmin(ctx context.Context, user *model.User, session *model.Session, up Update) error {
	if !r.isAdmin(ctx, user.ID) {
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}
		return r.sendMenu(ctx, user)
	}

	text := strings.TrimSpace(up.Text)
	switch session.Pending.Kind {

	// Mission creation: title -> reward -> period.
	case model.PendingMissionTitle:
		if text == "" {
			return r.send(ctx, user.ID, msgAskMissionTitle)
		}
		if err := r.setPending(ctx, session, model.PendingMissionReward, missionDraft{Title: text}); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskMissionReward)

	case model.PendingMissionReward:
		reward, ok := parseAmount(text)
		if !ok {
			return r.send(ctx, user.ID, msgBadAmount)
		}
		d := decodeDraft[missionDraft](session.Pending)
		d.Reward = reward
		if err := r.setPending(ctx, session, model.PendingMissionPeriod, d); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskMissionPeriod)

	case model.PendingMissionPeriod:
		period := model.MissionPeriod(strings.ToLower(text))
		switch period {
		case model.MissionPeriodOnce, model.MissionPeriodDaily, model.MissionPeriodWeekly:
		default:
			return r.send(ctx, user.ID, msgBadPeriod)
		}
		d := decodeDraft[missionDraft](session.Pending)
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}
		mission := &model.Mission{
			Title:   d.Title,
			Reward:  d.Reward,
			Period:  period,
			Type:    model.MissionTypeGeneric,
			Enabled: true,
		}
		if err := r.deps.Missions.Create(ctx, mission); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgMissionCreated(mission))

	// Gift creation: code -> amount -> max uses.
	case model.PendingGiftCode:
		if text == "" {
			return r.send(ctx, user.ID, msgAskGiftCodeNew)
		}
		if err := r.setPending(ctx, session, model.PendingGiftAmount, giftDraft{Code: text}); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskGiftAmount)

	case model.PendingGiftAmount:
		amount, ok := parseAmount(text)
		if !ok {
			return r.send(ctx, user.ID, msgBadAmount)
		}
		d := decodeDraft[giftDraft](session.Pending)
		d.Amount = amount
		if err := r.setPending(ctx, session, model.PendingGiftMaxUses, d); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskGiftMaxUses)

	case model.PendingGiftMaxUses:
		maxUses := 0
		if !strings.EqualFold(text, "0") {
			n, ok := parseAmount(text)
			if !ok {
				return r.send(ctx, user.ID, msgBadAmount)
			}
			maxUses = int(n)
		}
		d := decodeDraft[giftDraft](session.Pending)
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}
		gift, err := r.deps.Gifts.Create(ctx, d.Code, d.Amount, maxUses, user.ID)
		if errors.Is(err, service.ErrGiftCodeExists) {
			return r.send(ctx, user.ID, msgGiftExists)
		}
		if err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgGiftCreated(gift))

	// Balance grant: user id -> amount.
	case model.PendingGiveBalanceID:
		target := parseID(text)
		if target == 0 {
			return r.send(ctx, user.ID, msgBadUserID)
		}
		if err := r.setPending(ctx, session, model.PendingGiveBalanceAmt, giveDraft{UserID: target}); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskGiveAmount)

	case model.PendingGiveBalanceAmt:
		amount, ok := parseAmount(text)
		if !ok {
			return r.send(ctx, user.ID, msgBadAmount)
		}
		d := decodeDraft[giveDraft](session.Pending)
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}
		if _, err := r.deps.Ledger.GetOrCreate(ctx, d.UserID, ""); err != nil {
			return err
		}
		balance, err := r.deps.Ledger.Credit(ctx, d.UserID, amount)
		if err != nil {
			return err
		}
		if err := r.send(ctx, d.UserID, msgBalanceGranted(amount, balance)); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgGiveDone(amount, d.UserID))

	case model.PendingBroadcastText:
		if text == "" {
			return r.send(ctx, user.ID, msgAskBroadcast)
		}
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}
		return r.broadcast(ctx, user.ID, text)
	}
	return nil
}

// broadcast sends text to every known user. Failures are logged and
// skipped; the loop always finishes.
func (r *Router) broadcast(ctx context.Context, adminID int64, text string) error {
	ids, err := r.deps.Users.ListIDs(ctx)
	if err != nil {
		return err
	}

	sent := 0
	for _, id := range ids {
		if err := r.transport.SendText(ctx, id, text); err != nil {
			r.logger.Debug("broadcast send failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		sent++
	}
	r.logger.Info("broadcast finished", zap.Int("sent", sent), zap.Int("total", len(ids)))
	return r.send(ctx, adminID, msgBroadcastDone(sent, len(ids)))
}
