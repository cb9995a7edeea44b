package bot

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"gemvault/internal/model"
	"gemvault/internal/service"
)

// Wizard drafts. Each is the "form so far" carried structurally in the
// session's Pending record between steps.
type transferDraft struct {
	Target int64 `json:"target"`
	Amount int64 `json:"amount"`
}

type answerDraft struct {
	MissionID string `json:"mission_id"`
}

type ticketDraft struct {
	TicketID string `json:"ticket_id,omitempty"` // set only for replies
	Category string `json:"category,omitempty"`
	Subject  string `json:"subject,omitempty"`
}

type purchaseDraft struct {
	PurchaseID string `json:"purchase_id"`
}

func decodeDraft[T any](p model.Pending) T {
	var d T
	if len(p.Draft) > 0 {
		_ = json.Unmarshal(p.Draft, &d)
	}
	return d
}

// setPending stores the next awaited step plus its draft and persists the
// session. This is the single place wizard state advances.
func (r *Router) setPending(ctx context.Context, session *model.Session, kind model.PendingKind, draft any) error {
	var raw json.RawMessage
	if draft != nil {
		b, err := json.Marshal(draft)
		if err != nil {
			return err
		}
		raw = b
	}
	session.Pending = model.Pending{Kind: kind, Draft: raw}
	return r.deps.Sessions.Save(ctx, session)
}

func (r *Router) clearPending(ctx context.Context, session *model.Session) error {
	session.Clear()
	return r.deps.Sessions.Save(ctx, session)
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func parseAmount(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// --- balance transfer -------------------------------------------------

func (r *Router) startTransfer(ctx context.Context, user *model.User, session *model.Session) error {
	if err := r.setPending(ctx, session, model.PendingTransferTarget, nil); err != nil {
		return err
	}
	return r.send(ctx, user.ID, msgAskTransferTarget)
}

func (r *Router) stepTransfer(ctx context.Context, user *model.User, session *model.Session, up Update) error {
	switch session.Pending.Kind {
	case model.PendingTransferTarget:
		target := parseID(up.Text)
		if target == 0 {
			return r.send(ctx, user.ID, msgBadUserID)
		}
		if target == user.ID {
			return r.send(ctx, user.ID, msgSelfTransfer)
		}
		if err := r.setPending(ctx, session, model.PendingTransferAmount, transferDraft{Target: target}); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskTransferAmount)

	case model.PendingTransferAmount:
		d := decodeDraft[transferDraft](session.Pending)
		amount, ok := parseAmount(up.Text)
		if !ok {
			return r.send(ctx, user.ID, msgBadAmount)
		}
		d.Amount = amount
		if err := r.setPending(ctx, session, model.PendingTransferConfirm, d); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgConfirmTransfer(d.Target, d.Amount))

	case model.PendingTransferConfirm:
		if !strings.EqualFold(strings.TrimSpace(up.Text), "yes") && up.Action != ActionConfirm {
			return r.send(ctx, user.ID, msgConfirmOrCancel)
		}
		d := decodeDraft[transferDraft](session.Pending)
		settings, err := r.deps.Settings.Get(ctx)
		if err != nil {
			return err
		}
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}

		err = r.deps.Ledger.Transfer(ctx, user.ID, d.Target, d.Amount, settings.TransferMin, settings.TransferMax)
		switch {
		case errors.Is(err, service.ErrInsufficientBalance):
			return r.send(ctx, user.ID, msgInsufficient)
		case errors.Is(err, service.ErrTransferBounds):
			return r.send(ctx, user.ID, msgTransferBounds(settings.TransferMin, settings.TransferMax))
		case errors.Is(err, service.ErrSelfTransfer):
			return r.send(ctx, user.ID, msgSelfTransfer)
		case err != nil:
			return err
		}
		balance, _ := r.deps.Ledger.Balance(ctx, user.ID)
		if err := r.send(ctx, user.ID, msgTransferDone(d.Amount, d.Target, balance)); err != nil {
			return err
		}
		return r.send(ctx, d.Target, msgTransferReceived(d.Amount, user.ID))
	}
	return nil
}

// --- gift codes -------------------------------------------------------

func (r *Router) startGiftRedeem(ctx context.Context, user *model.User, session *model.Session) error {
	if err := r.setPending(ctx, session, model.PendingGiftRedeemCode, nil); err != nil {
		return err
	}
	return r.send(ctx, user.ID, msgAskGiftCode)
}

func (r *Router) stepGiftRedeem(ctx context.Context, user *model.User, session *model.Session, up Update) error {
	code := strings.TrimSpace(up.Text)
	if code == "" {
		return r.send(ctx, user.ID, msgAskGiftCode)
	}
	if !r.deps.Limiter.Allow(ctx, user.ID, "gift") {
		return r.send(ctx, user.ID, msgRateLimited)
	}
	if err := r.clearPending(ctx, session); err != nil {
		return err
	}

	amount, err := r.deps.Gifts.Redeem(ctx, user.ID, code)
	switch {
	case errors.Is(err, service.ErrGiftCodeNotFound):
		return r.send(ctx, user.ID, msgGiftNotFound)
	case errors.Is(err, service.ErrGiftCodeDisabled), errors.Is(err, service.ErrGiftCodeCapacity):
		return r.send(ctx, user.ID, msgGiftSpent)
	case errors.Is(err, service.ErrGiftCodeRedeemed):
		return r.send(ctx, user.ID, msgGiftAlreadyRedeemed)
	case err != nil:
		return err
	}
	balance, _ := r.deps.Ledger.Balance(ctx, user.ID)
	return r.send(ctx, user.ID, msgGiftRedeemed(amount, balance))
}

// --- missions ---------------------------------------------------------

func (r *Router) sendMissions(ctx context.Context, user *model.User) error {
	missions, err := r.deps.Missions.List(ctx, true)
	if err != nil {
		return err
	}
	return r.send(ctx, user.ID, msgMissionList(missions))
}

// startMission routes a mission tap by type: quiz and question missions
// open the answer prompt, invite missions claim any earned tiers, plain
// ones complete directly.
func (r *Router) startMission(ctx context.Context, user *model.User, session *model.Session, missionID string) error {
	mission, err := r.deps.Missions.Get(ctx, missionID)
	if err != nil {
		return r.send(ctx, user.ID, msgMissionGone)
	}

	switch mission.Type {
	case model.MissionTypeQuiz, model.MissionTypeQuestion:
		if err := r.setPending(ctx, session, model.PendingMissionAnswer, answerDraft{MissionID: mission.ID}); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgMissionQuestion(mission))

	case model.MissionTypeInvite:
		earned, err := r.deps.Missions.ClaimInviteMissions(ctx, user.ID)
		if err != nil {
			return err
		}
		if earned == 0 {
			count, _ := r.deps.Referrals.WeeklyCount(ctx, user.ID)
			return r.send(ctx, user.ID, msgInviteProgress(count, mission))
		}
		return r.send(ctx, user.ID, msgMissionReward(earned))

	default:
		done, err := r.deps.Missions.CompleteIfEligible(ctx, user.ID, mission)
		if err != nil {
			return err
		}
		if !done {
			return r.send(ctx, user.ID, msgMissionDone)
		}
		return r.send(ctx, user.ID, msgMissionReward(mission.Reward))
	}
}

func (r *Router) stepMissionAnswer(ctx context.Context, user *model.User, session *model.Session, up Update) error {
	d := decodeDraft[answerDraft](session.Pending)
	answer := strings.TrimSpace(up.Text)
	if answer == "" {
		return r.send(ctx, user.ID, msgAskAnswer)
	}
	if err := r.clearPending(ctx, session); err != nil {
		return err
	}

	correct, err := r.deps.Missions.SubmitAnswer(ctx, user.ID, d.MissionID, answer)
	switch {
	case errors.Is(err, service.ErrMissionCompleted):
		return r.send(ctx, user.ID, msgMissionDone)
	case errors.Is(err, service.ErrMissionAttempted):
		return r.send(ctx, user.ID, msgMissionAttempted)
	case errors.Is(err, service.ErrMissionNotFound), errors.Is(err, service.ErrMissionDisabled):
		return r.send(ctx, user.ID, msgMissionGone)
	case err != nil:
		return err
	}
	if !correct {
		return r.send(ctx, user.ID, msgWrongAnswer)
	}
	mission, err := r.deps.Missions.Get(ctx, d.MissionID)
	if err != nil {
		return err
	}
	return r.send(ctx, user.ID, msgMissionReward(mission.Reward))
}

// --- check-in and lottery ---------------------------------------------

func (r *Router) claimCheckIn(ctx context.Context, user *model.User) error {
	if !r.deps.Limiter.Allow(ctx, user.ID, "checkin") {
		return r.send(ctx, user.ID, msgRateLimited)
	}
	settings, err := r.deps.Settings.Get(ctx)
	if err != nil {
		return err
	}

	remaining, err := r.deps.Missions.ClaimCheckIn(ctx, user.ID, settings.CheckinReward)
	if errors.Is(err, service.ErrCheckInCooldown) {
		return r.send(ctx, user.ID, msgCheckInCooldown(remaining))
	}
	if err != nil {
		return err
	}
	return r.send(ctx, user.ID, msgCheckInDone(settings.CheckinReward))
}

func (r *Router) enrollLottery(ctx context.Context, user *model.User) error {
	if !r.deps.Limiter.Allow(ctx, user.ID, "lottery") {
		return r.send(ctx, user.ID, msgRateLimited)
	}

	added, err := r.deps.Lottery.Enroll(ctx, user.ID)
	if errors.Is(err, service.ErrLotteryDisabled) {
		return r.send(ctx, user.ID, msgLotteryDisabled)
	}
	if err != nil {
		return err
	}
	if !added {
		return r.send(ctx, user.ID, msgLotteryAlready)
	}
	return r.send(ctx, user.ID, msgLotteryEnrolled)
}

// --- tickets ----------------------------------------------------------

func (r *Router) startTicket(ctx context.Context, user *model.User, session *model.Session) error {
	if err := r.setPending(ctx, session, model.PendingTicketCategory, nil); err != nil {
		return err
	}
	return r.send(ctx, user.ID, msgAskTicketCategory)
}

func (r *Router) ticketAction(ctx context.Context, user *model.User, session *model.Session, arg string) error {
	op, id := splitAction(arg)
	switch op {
	case "reply":
		ticket, err := r.deps.Tickets.Get(ctx, id)
		if err != nil || (ticket.UserID != user.ID && !r.isAdmin(ctx, user.ID)) {
			return r.send(ctx, user.ID, msgTicketGone)
		}
		if err := r.setPending(ctx, session, model.PendingTicketReply, ticketDraft{TicketID: id}); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskTicketReply)
	case "close":
		if !r.isAdmin(ctx, user.ID) {
			return r.sendMenu(ctx, user)
		}
		if err := r.deps.Tickets.Close(ctx, id); err != nil {
			return r.send(ctx, user.ID, msgTicketGone)
		}
		return r.send(ctx, user.ID, msgTicketClosed)
	}
	return r.sendMenu(ctx, user)
}

func (r *Router) stepTicket(ctx context.Context, user *model.User, session *model.Session, up Update) error {
	text := strings.TrimSpace(up.Text)
	if text == "" {
		return r.send(ctx, user.ID, msgNeedText)
	}

	switch session.Pending.Kind {
	case model.PendingTicketCategory:
		if err := r.setPending(ctx, session, model.PendingTicketSubject, ticketDraft{Category: text}); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskTicketSubject)

	case model.PendingTicketSubject:
		d := decodeDraft[ticketDraft](session.Pending)
		d.Subject = text
		if err := r.setPending(ctx, session, model.PendingTicketDesc, d); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskTicketDesc)

	case model.PendingTicketDesc:
		d := decodeDraft[ticketDraft](session.Pending)
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}
		ticket, err := r.deps.Tickets.Create(ctx, user.ID, d.Category, d.Subject, text)
		if err != nil {
			return err
		}
		r.notifyAdmins(ctx, msgAdminNewTicket(ticket))
		return r.send(ctx, user.ID, msgTicketCreated(ticket.ID))

	case model.PendingTicketReply:
		d := decodeDraft[ticketDraft](session.Pending)
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}
		from := "user"
		if r.isAdmin(ctx, user.ID) {
			from = "admin"
		}
		ticket, err := r.deps.Tickets.AddMessage(ctx, d.TicketID, user.ID, from, text)
		switch {
		case errors.Is(err, service.ErrTicketClosed):
			return r.send(ctx, user.ID, msgTicketClosed)
		case err != nil:
			return r.send(ctx, user.ID, msgTicketGone)
		}
		if from == "admin" {
			return r.send(ctx, ticket.UserID, msgTicketAdminReplied(ticket.ID))
		}
		r.notifyAdmins(ctx, msgAdminTicketReply(ticket))
		return r.send(ctx, user.ID, msgTicketReplySaved)
	}
	return nil
}

// --- purchases --------------------------------------------------------

type diamondPackage struct {
	Diamonds   int64
	PriceToman int64
}

// diamondPackages are the fixed top-up offers shown in the buy flow.
var diamondPackages = []diamondPackage{
	{10, 50000},
	{50, 200000},
	{120, 400000},
}

func (r *Router) startPurchase(ctx context.Context, user *model.User, session *model.Session) error {
	if err := r.setPending(ctx, session, model.PendingPurchasePackage, nil); err != nil {
		return err
	}
	return r.send(ctx, user.ID, msgPackageList(diamondPackages))
}

func (r *Router) stepPurchase(ctx context.Context, user *model.User, session *model.Session, up Update) error {
	switch session.Pending.Kind {
	case model.PendingPurchasePackage:
		pick, ok := parseAmount(up.Text)
		if !ok || pick > int64(len(diamondPackages)) {
			return r.send(ctx, user.ID, msgBadPackage(len(diamondPackages)))
		}
		pkg := diamondPackages[pick-1]
		purchase, err := r.deps.Purchases.Start(ctx, user.ID, pkg.Diamonds, pkg.PriceToman)
		if err != nil {
			return err
		}
		if err := r.setPending(ctx, session, model.PendingPurchaseReceipt, purchaseDraft{PurchaseID: purchase.ID}); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskReceipt(purchase))

	case model.PendingPurchaseReceipt:
		fileID := up.PhotoFileID
		if fileID == "" {
			fileID = up.DocumentFileID
		}
		if fileID == "" {
			return r.send(ctx, user.ID, msgNeedReceiptPhoto)
		}
		d := decodeDraft[purchaseDraft](session.Pending)
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}
		purchase, err := r.deps.Purchases.AttachReceipt(ctx, d.PurchaseID, user.ID, fileID)
		if err != nil {
			return r.send(ctx, user.ID, msgPurchaseGone)
		}
		r.notifyAdmins(ctx, msgAdminPurchasePending(purchase))
		return r.send(ctx, user.ID, msgReceiptReceived(purchase.ID))
	}
	return nil
}

// --- own files --------------------------------------------------------

func (r *Router) sendMyFiles(ctx context.Context, user *model.User) error {
	items, err := r.deps.Files.ListByOwner(ctx, user.ID)
	if err != nil {
		return err
	}
	return r.send(ctx, user.ID, msgFileList(items))
}

// fileAction handles owner (or admin) item management buttons:
// "file:toggle:<token>", "file:rename:<token>", "file:price:<token>",
// "file:delete:<token>".
func (r *Router) fileAction(ctx context.Context, user *model.User, session *model.Session, arg string) error {
	op, fileToken := splitAction(arg)
	isAdmin := r.isAdmin(ctx, user.ID)

	item, err := r.deps.Files.Get(ctx, fileToken)
	if err != nil {
		return r.send(ctx, user.ID, msgFileGone)
	}
	if item.Owner != user.ID && !isAdmin {
		return r.send(ctx, user.ID, msgNotYours)
	}

	switch op {
	case "toggle":
		if err := r.deps.Files.SetDisabled(ctx, fileToken, !item.Disabled); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgFileToggled(!item.Disabled))
	case "delete":
		if err := r.deps.Files.Delete(ctx, fileToken, user.ID, isAdmin); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgFileDeleted)
	case "rename":
		if err := r.setPending(ctx, session, model.PendingFileRename, fileDraft{Token: fileToken}); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskFileName)
	case "price":
		if err := r.setPending(ctx, session, model.PendingFilePrice, fileDraft{Token: fileToken}); err != nil {
			return err
		}
		return r.send(ctx, user.ID, msgAskFilePrice)
	}
	return r.sendMenu(ctx, user)
}

type fileDraft struct {
	Token string `json:"token"`
}

// stepFileEdit finishes the rename and re-price prompts. Ownership is
// enforced inside the file service; admins pass for any item.
func (r *Router) stepFileEdit(ctx context.Context, user *model.User, session *model.Session, up Update) error {
	d := decodeDraft[fileDraft](session.Pending)
	kind := session.Pending.Kind
	text := strings.TrimSpace(up.Text)
	isAdmin := r.isAdmin(ctx, user.ID)

	switch kind {
	case model.PendingFileRename:
		if text == "" {
			return r.send(ctx, user.ID, msgAskFileName)
		}
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}
		if err := r.deps.Files.Rename(ctx, d.Token, user.ID, isAdmin, text); err != nil {
			if errors.Is(err, service.ErrNotOwner) {
				return r.send(ctx, user.ID, msgNotYours)
			}
			return r.send(ctx, user.ID, msgFileGone)
		}
		return r.send(ctx, user.ID, msgFileRenamed(text))

	case model.PendingFilePrice:
		price, err := strconv.ParseInt(text, 10, 64)
		if err != nil || price < 0 {
			return r.send(ctx, user.ID, msgBadAmount)
		}
		if err := r.clearPending(ctx, session); err != nil {
			return err
		}
		if err := r.deps.Files.SetPrice(ctx, d.Token, user.ID, isAdmin, price); err != nil {
			if errors.Is(err, service.ErrNotOwner) {
				return r.send(ctx, user.ID, msgNotYours)
			}
			return r.send(ctx, user.ID, msgFileGone)
		}
		return r.send(ctx, user.ID, msgFilePriced(price))
	}
	return nil
}

// storeUpload registers an attachment sent outside any flow as a new
// shareable item. The sender becomes the owner; the token is the share
// handle for /start fetches.
func (r *Router) storeUpload(ctx context.Context, user *model.User, up Update) error {
	fileType := model.FileTypeDocument
	payloadRef := up.DocumentFileID
	name := up.DocumentName
	size := up.DocumentSize
	if payloadRef == "" {
		fileType = model.FileTypePhoto
		payloadRef = up.PhotoFileID
		name = "photo"
		size = 0
	}

	item, err := r.deps.Files.Create(ctx, user.ID, fileType, payloadRef, name, size)
	if err != nil {
		return err
	}
	return r.send(ctx, user.ID, msgFileStored(item))
}
