package model

// Settings is the global configuration record, read through a short-lived
// in-process cache (see service.SettingsCache).
type Settings struct {
	WelcomeText      string   `json:"welcome_text,omitempty"`
	ServiceEnabled   bool     `json:"service_enabled"`
	MaintenanceMode  bool     `json:"maintenance_mode"`
	DailyQuota       int      `json:"daily_quota"`
	RequiredChannels []string `json:"required_channels,omitempty"`
	ReferralBonus    int64    `json:"referral_bonus"`
	CheckinReward    int64    `json:"checkin_reward"`
	TransferMin      int64    `json:"transfer_min"`
	TransferMax      int64    `json:"transfer_max"`
	ButtonsDisabled  []string `json:"buttons_disabled,omitempty"`
	AdminChatID      int64    `json:"admin_chat_id,omitempty"`
}

// DefaultSettings are applied when no settings record exists yet.
func DefaultSettings() *Settings {
	return &Settings{
		ServiceEnabled: true,
		DailyQuota:     0,
		ReferralBonus:  5,
		CheckinReward:  3,
		TransferMin:    1,
		TransferMax:    1000,
	}
}
