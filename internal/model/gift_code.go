package model

import "time"

// GiftCode identity is the normalized upper-case code string.
type GiftCode struct {
	Code      string    `json:"code"`
	Amount    int64     `json:"amount"`
	MaxUses   int       `json:"max_uses"`
	Used      int       `json:"used"`
	Disabled  bool      `json:"disabled"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// CapacityReached reports whether the global use cap is spent.
func (g *GiftCode) CapacityReached() bool {
	return g.MaxUses > 0 && g.Used >= g.MaxUses
}
