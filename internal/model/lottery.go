package model

import "time"

// LotteryConfig is the global lottery configuration.
type LotteryConfig struct {
	Enabled        bool  `json:"enabled"`
	Winners        int   `json:"winners"`
	RewardDiamonds int64 `json:"reward_diamonds"`
	RunEveryHours  int   `json:"run_every_hours"`
}

// LotteryPool is the enrollment pool for one UTC calendar day.
type LotteryPool struct {
	DayKey  string  `json:"day_key"`
	Entries []int64 `json:"entries"`
}

// Contains reports whether the user is already enrolled.
func (p *LotteryPool) Contains(userID int64) bool {
	for _, id := range p.Entries {
		if id == userID {
			return true
		}
	}
	return false
}

const LotteryHistoryCap = 50

type LotteryDraw struct {
	DayKey   string    `json:"day_key"`
	Winners  []int64   `json:"winners"`
	Reward   int64     `json:"reward"`
	PoolSize int       `json:"pool_size"`
	DrawnAt  time.Time `json:"drawn_at"`
}
