package model

import "time"

type PurchaseStatus string

const (
	PurchaseAwaitingReceipt PurchaseStatus = "awaiting_receipt"
	PurchasePendingReview   PurchaseStatus = "pending_review"
	PurchaseApproved        PurchaseStatus = "approved"
	PurchaseRejected        PurchaseStatus = "rejected"
)

// Purchase is a manual diamond top-up. Balance credit happens exactly once,
// on the transition into approved.
type Purchase struct {
	ID            string         `json:"id"`
	UserID        int64          `json:"user_id"`
	Diamonds      int64          `json:"diamonds"`
	PriceToman    int64          `json:"price_toman"`
	ReceiptFileID string         `json:"receipt_file_id,omitempty"`
	Status        PurchaseStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	ReceiptAt     time.Time      `json:"receipt_at,omitempty"`
	ProcessedAt   time.Time      `json:"processed_at,omitempty"`
	ProcessedBy   int64          `json:"processed_by,omitempty"`
}
