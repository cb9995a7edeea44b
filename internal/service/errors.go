package service

import "errors"

// Sentinel errors shared across services. Entry points translate these
// into terminal denial outcomes; nothing here is raised past the caller.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrSelfTransfer        = errors.New("cannot transfer to yourself")
	ErrTransferBounds      = errors.New("amount outside transfer bounds")

	ErrGiftCodeNotFound  = errors.New("gift code not found")
	ErrGiftCodeDisabled  = errors.New("gift code disabled")
	ErrGiftCodeCapacity  = errors.New("gift code capacity reached")
	ErrGiftCodeRedeemed  = errors.New("gift code already redeemed")
	ErrGiftCodeExists    = errors.New("gift code already exists")
	ErrGiftCodeBadInput  = errors.New("invalid gift code input")

	ErrMissionNotFound  = errors.New("mission not found")
	ErrMissionDisabled  = errors.New("mission disabled")
	ErrMissionCompleted = errors.New("mission already completed this period")
	ErrMissionAttempted = errors.New("mission already attempted this period")
	ErrMissionNotDue    = errors.New("mission requirements not met")

	ErrCheckInCooldown = errors.New("check-in cooldown not elapsed")

	ErrLotteryDisabled     = errors.New("lottery disabled")
	ErrLotteryDrawnAlready = errors.New("lottery already drawn for this day")

	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrPurchaseWrongState = errors.New("purchase is not in the expected state")

	ErrTicketNotFound = errors.New("ticket not found")
	ErrTicketClosed   = errors.New("ticket is closed")
)
