package bot

import (
	"context"

	"gemvault/internal/model"
)

// Update is one normalized inbound event from the chat platform: either
// free text, a button action, or an attachment. Exactly one state
// transition is applied per update.
type Update struct {
	UserID   int64
	Username string

	// Text is the raw message text, commands included.
	Text string

	// Action is the payload of a button click; empty for plain messages.
	Action string

	// PhotoFileID and DocumentFileID reference platform-side uploads. Only
	// the reference is stored; payload bytes never pass through here.
	PhotoFileID    string
	DocumentFileID string
	DocumentName   string
	DocumentSize   int64
}

// Transport is the outbound side of the chat platform. Send failures are
// logged and swallowed by the router: the state transition has already
// been committed by the time anything is sent.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendFile(ctx context.Context, chatID int64, item *model.FileItem) error
	UploadDocument(ctx context.Context, chatID int64, name string, payload []byte) error
}

// Common button actions. Parameterized actions are "<verb>:<arg>".
const (
	ActionMenu     = "menu"
	ActionCancel   = "cancel"
	ActionBalance  = "balance"
	ActionTransfer = "transfer"
	ActionMissions = "missions"
	ActionCheckIn  = "checkin"
	ActionLottery  = "lottery"
	ActionGift     = "gift"
	ActionTickets  = "tickets"
	ActionBuy      = "buy"
	ActionMyFiles  = "myfiles"
	ActionJoined   = "joined"
	ActionConfirm  = "confirm"

	ActionAdmin            = "admin"
	ActionAdminMission     = "admin:mission"
	ActionAdminGift        = "admin:gift"
	ActionAdminGive        = "admin:give"
	ActionAdminBroadcast   = "admin:broadcast"
	ActionAdminMaintenance = "admin:maintenance"
	ActionAdminPurchases   = "admin:purchases"
	ActionAdminBackup      = "admin:backup"
)
