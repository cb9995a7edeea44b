package model

import "encoding/json"

// PendingKind identifies which input the conversation machine expects next.
// A session holds at most one pending interaction; starting a new flow
// silently replaces the old one.
type PendingKind string

const (
	PendingNone PendingKind = ""

	// User flows.
	PendingTransferTarget  PendingKind = "transfer.target"
	PendingTransferAmount  PendingKind = "transfer.amount"
	PendingTransferConfirm PendingKind = "transfer.confirm"
	PendingGiftRedeemCode  PendingKind = "gift.redeem_code"
	PendingMissionAnswer   PendingKind = "mission.answer"
	PendingTicketCategory  PendingKind = "ticket.category"
	PendingTicketSubject   PendingKind = "ticket.subject"
	PendingTicketDesc      PendingKind = "ticket.desc"
	PendingTicketReply     PendingKind = "ticket.reply"
	PendingPurchasePackage PendingKind = "purchase.package"
	PendingPurchaseReceipt PendingKind = "purchase.receipt"
	PendingDeliveryConfirm PendingKind = "delivery.confirm"

	// File management (owner or admin).
	PendingFileRename PendingKind = "file.rename"
	PendingFilePrice  PendingKind = "file.price"

	// Admin flows.
	PendingMissionTitle   PendingKind = "admin.mission.title"
	PendingMissionReward  PendingKind = "admin.mission.reward"
	PendingMissionPeriod  PendingKind = "admin.mission.period"
	PendingGiftCode       PendingKind = "admin.gift.code"
	PendingGiftAmount     PendingKind = "admin.gift.amount"
	PendingGiftMaxUses    PendingKind = "admin.gift.max_uses"
	PendingGiveBalanceID  PendingKind = "admin.give.user"
	PendingGiveBalanceAmt PendingKind = "admin.give.amount"
	PendingBroadcastText  PendingKind = "admin.broadcast"
)

// Pending is the structured replacement for tag-encoded wizard state: the
// kind names the awaited step, Draft carries the form collected so far.
type Pending struct {
	Kind  PendingKind     `json:"kind"`
	Draft json.RawMessage `json:"draft,omitempty"`
}

// Session is the per-user conversational cursor. PendingDownload and
// PendingRef survive a join-gate interruption so the fetch can resume
// after membership is verified.
type Session struct {
	UserID          int64   `json:"user_id"`
	Pending         Pending `json:"pending"`
	PendingDownload string  `json:"pending_download,omitempty"`
	PendingRef      int64   `json:"pending_ref,omitempty"`
}

// Active reports whether a multi-step flow is in progress.
func (s *Session) Active() bool {
	return s != nil && s.Pending.Kind != PendingNone
}

// Clear abandons any in-progress flow and pending download.
func (s *Session) Clear() {
	s.Pending = Pending{}
	s.PendingDownload = ""
	s.PendingRef = 0
}
