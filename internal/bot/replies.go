package bot

import (
	"fmt"
	"strings"
	"time"

	"gemvault/internal/model"
	"gemvault/internal/service"
)

// Outbound message texts. Kept in one place so the flows read as state
// transitions, not string formatting.

const (
	msgDefaultWelcome = "Welcome! Send a file link or pick an option from the menu."

	msgRateLimited     = "Too many attempts. Please wait a moment and try again."
	msgConfirmOrCancel = "Please confirm or cancel first."
	msgFeatureDisabled = "This feature is currently switched off."

	msgAskTransferTarget = "Enter the recipient's user id:"
	msgAskTransferAmount = "Enter the amount of diamonds to send:"
	msgBadUserID         = "That doesn't look like a user id. Try again or /cancel."
	msgBadAmount         = "Please send a positive whole number, or /cancel."
	msgSelfTransfer      = "You can't transfer diamonds to yourself."
	msgInsufficient      = "You don't have enough diamonds for that."

	msgAskGiftCode         = "Enter the gift code:"
	msgGiftNotFound        = "Unknown gift code."
	msgGiftSpent           = "This gift code can no longer be redeemed."
	msgGiftAlreadyRedeemed = "You already redeemed this code."

	msgAskAnswer        = "Send your answer as a text message."
	msgMissionDone      = "You already completed this mission for this period."
	msgMissionAttempted = "You already used your attempt for this period."
	msgWrongAnswer      = "Wrong answer. You can try again next period."
	msgMissionGone      = "That mission is no longer available."

	msgLotteryDisabled = "The lottery is currently disabled."
	msgLotteryAlready  = "You're already in today's draw. Good luck!"
	msgLotteryEnrolled = "You're in today's draw. Good luck!"

	msgAskTicketCategory = "What is your ticket about? (e.g. payment, files, other)"
	msgAskTicketSubject  = "Give your ticket a short subject:"
	msgAskTicketDesc     = "Describe the issue:"
	msgAskTicketReply    = "Send your reply:"
	msgTicketGone        = "That ticket is not available."
	msgTicketClosed      = "This ticket is closed."
	msgTicketReplySaved  = "Reply added. Support will get back to you."
	msgNeedText          = "Please send a text message, or /cancel."

	msgNeedReceiptPhoto       = "Please send the payment receipt as a photo or document."
	msgPurchaseGone           = "That purchase is not available."
	msgPurchaseAlreadyHandled = "This purchase was already reviewed."
	msgPurchaseRejected       = "Your purchase was rejected. Contact support if you think this is a mistake."

	msgFileGone     = "That file is not available."
	msgNotYours     = "Only the owner can manage this file."
	msgFileDeleted  = "File deleted."
	msgAskFileName  = "Send the new file name:"
	msgAskFilePrice = "Send the new price in diamonds (0 for free):"

	msgAdminMenu = "Admin: missions, gift codes, give balance, purchases, broadcast, maintenance, backup."

	msgAskMissionTitle  = "New mission. Send the title:"
	msgAskMissionReward = "Reward in diamonds:"
	msgAskMissionPeriod = "Period? (once / daily / weekly)"
	msgBadPeriod        = "Send one of: once, daily, weekly."

	msgAskGiftCodeNew = "New gift code. Send the code text:"
	msgAskGiftAmount  = "Diamonds per redemption:"
	msgAskGiftMaxUses = "Max redemptions? (0 = unlimited)"
	msgGiftExists     = "A gift code with that name already exists."

	msgAskGiveUser   = "Send the user id to credit:"
	msgAskGiveAmount = "How many diamonds?"

	msgAskBroadcast = "Send the broadcast text:"
)

func msgBalance(balance int64) string {
	return fmt.Sprintf("Your balance: %d 💎", balance)
}

func msgConfirmPurchase(cost, balance int64) string {
	return fmt.Sprintf("This file costs %d 💎 (you have %d). Confirm to pay.", cost, balance)
}

func msgDebited(cost, balance int64) string {
	return fmt.Sprintf("Paid %d 💎. New balance: %d 💎.", cost, balance)
}

func msgJoinRequired(channels []string) string {
	if len(channels) == 0 {
		return "You need to join our channel first, then tap Joined."
	}
	return fmt.Sprintf("Please join %s first, then tap Joined.", strings.Join(channels, ", "))
}

func msgDenied(result *service.DeliveryResult) string {
	switch result.Reason {
	case service.DenyInvalidToken, service.DenyNotFound:
		return "That file link is invalid or has been removed."
	case service.DenyServiceUnavailable:
		return "The service is temporarily unavailable. Try again later."
	case service.DenyItemDisabled:
		return "This file is currently disabled."
	case service.DenyQuotaExhausted:
		return "This file has reached its download limit."
	case service.DenyDailyCap:
		return "You reached today's download limit. Come back tomorrow."
	case service.DenyInsufficientBalance:
		return fmt.Sprintf("You need %d more 💎 for this file (costs %d, you have %d).",
			result.Needed, result.Cost, result.Balance)
	}
	return "Request denied."
}

func msgConfirmTransfer(target, amount int64) string {
	return fmt.Sprintf("Send %d 💎 to user %d? Reply \"yes\" to confirm, or /cancel.", amount, target)
}

func msgTransferBounds(min, max int64) string {
	return fmt.Sprintf("Transfers must be between %d and %d 💎.", min, max)
}

func msgTransferDone(amount, target, balance int64) string {
	return fmt.Sprintf("Sent %d 💎 to user %d. New balance: %d 💎.", amount, target, balance)
}

func msgTransferReceived(amount, from int64) string {
	return fmt.Sprintf("You received %d 💎 from user %d.", amount, from)
}

func msgGiftRedeemed(amount, balance int64) string {
	return fmt.Sprintf("Gift code redeemed: +%d 💎. New balance: %d 💎.", amount, balance)
}

func msgMissionList(missions []*model.Mission) string {
	if len(missions) == 0 {
		return "No missions right now. Check back later."
	}
	var b strings.Builder
	b.WriteString("Missions:\n")
	for _, m := range missions {
		fmt.Fprintf(&b, "• %s — %d 💎 (%s)\n", m.Title, m.Reward, m.Period)
	}
	return b.String()
}

func msgMissionQuestion(mission *model.Mission) string {
	q := mission.Config.Question
	if q == "" {
		q = mission.Title
	}
	if len(mission.Config.Options) > 0 {
		return fmt.Sprintf("%s\nOptions: %s", q, strings.Join(mission.Config.Options, " / "))
	}
	return q
}

func msgMissionReward(reward int64) string {
	return fmt.Sprintf("Mission complete! +%d 💎.", reward)
}

func msgInviteProgress(count int, mission *model.Mission) string {
	return fmt.Sprintf("You invited %d friend(s) this week; %d needed for \"%s\". Keep going!",
		count, mission.Config.InvitesNeeded, mission.Title)
}

func msgCheckInCooldown(remaining time.Duration) string {
	return fmt.Sprintf("Already checked in. Next check-in in %s.", remaining.Round(time.Minute))
}

func msgCheckInDone(reward int64) string {
	return fmt.Sprintf("Checked in! +%d 💎. See you next week.", reward)
}

func msgAdminNewTicket(t *model.Ticket) string {
	return fmt.Sprintf("New ticket %s from user %d: [%s] %s", t.ID, t.UserID, t.Category, t.Subject)
}

func msgTicketCreated(id string) string {
	return fmt.Sprintf("Ticket %s created. Support will reply here.", id)
}

func msgTicketAdminReplied(id string) string {
	return fmt.Sprintf("Support replied to your ticket %s.", id)
}

func msgAdminTicketReply(t *model.Ticket) string {
	return fmt.Sprintf("User %d replied to ticket %s.", t.UserID, t.ID)
}

func msgPackageList(packages []diamondPackage) string {
	var b strings.Builder
	b.WriteString("Top-up packages:\n")
	for i, p := range packages {
		fmt.Fprintf(&b, "%d) %d 💎 — %d Toman\n", i+1, p.Diamonds, p.PriceToman)
	}
	b.WriteString("Send the package number:")
	return b.String()
}

func msgBadPackage(n int) string {
	return fmt.Sprintf("Send a number between 1 and %d, or /cancel.", n)
}

func msgAskReceipt(p *model.Purchase) string {
	return fmt.Sprintf("Order %s: %d 💎 for %d Toman. Pay and send the receipt as a photo.",
		p.ID, p.Diamonds, p.PriceToman)
}

func msgReceiptReceived(id string) string {
	return fmt.Sprintf("Receipt received for order %s. You'll be credited after review.", id)
}

func msgAdminPurchasePending(p *model.Purchase) string {
	return fmt.Sprintf("Purchase %s awaiting review: user %d, %d 💎 for %d Toman.",
		p.ID, p.UserID, p.Diamonds, p.PriceToman)
}

func msgPendingPurchases(pending []*model.Purchase) string {
	if len(pending) == 0 {
		return "No purchases awaiting review."
	}
	var b strings.Builder
	b.WriteString("Pending purchases:\n")
	for _, p := range pending {
		fmt.Fprintf(&b, "• %s — user %d, %d 💎 / %d Toman\n", p.ID, p.UserID, p.Diamonds, p.PriceToman)
	}
	return b.String()
}

func msgPurchaseApproved(diamonds int64) string {
	return fmt.Sprintf("Your purchase was approved: +%d 💎.", diamonds)
}

func msgPurchaseReviewed(verdict, id string) string {
	return fmt.Sprintf("Purchase %s %s.", id, verdict)
}

func msgFileList(items []*model.FileItem) string {
	if len(items) == 0 {
		return "You haven't uploaded any files yet."
	}
	var b strings.Builder
	b.WriteString("Your files:\n")
	for _, it := range items {
		state := ""
		if it.Disabled {
			state = " (disabled)"
		}
		fmt.Fprintf(&b, "• %s — %d 💎, %d downloads%s\n  token: %s\n", it.Name, it.CostPoints, it.Downloads, state, it.Token)
	}
	return b.String()
}

func msgFileStored(item *model.FileItem) string {
	return fmt.Sprintf("Stored %q. Share it with:\n/start %s\nUse My files to set a price or manage it.", item.Name, item.Token)
}

func msgFileToggled(disabled bool) string {
	if disabled {
		return "File disabled."
	}
	return "File enabled."
}

func msgFileRenamed(name string) string {
	return fmt.Sprintf("File renamed to %q.", name)
}

func msgFilePriced(price int64) string {
	if price == 0 {
		return "File is now free."
	}
	return fmt.Sprintf("File price set to %d 💎.", price)
}

func msgMaintenance(on bool) string {
	if on {
		return "Maintenance mode is ON. Only admins can use the bot."
	}
	return "Maintenance mode is OFF."
}

func msgMissionCreated(m *model.Mission) string {
	return fmt.Sprintf("Mission %q created: %d 💎, %s.", m.Title, m.Reward, m.Period)
}

func msgGiftCreated(g *model.GiftCode) string {
	uses := "unlimited"
	if g.MaxUses > 0 {
		uses = fmt.Sprintf("%d uses", g.MaxUses)
	}
	return fmt.Sprintf("Gift code %s created: %d 💎, %s.", g.Code, g.Amount, uses)
}

func msgBalanceGranted(amount, balance int64) string {
	return fmt.Sprintf("An admin credited you %d 💎. New balance: %d 💎.", amount, balance)
}

func msgGiveDone(amount, target int64) string {
	return fmt.Sprintf("Credited %d 💎 to user %d.", amount, target)
}

func msgBroadcastDone(sent, total int) string {
	return fmt.Sprintf("Broadcast delivered to %d of %d users.", sent, total)
}
