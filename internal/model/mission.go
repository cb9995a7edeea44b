package model

import "time"

type MissionPeriod string

const (
	MissionPeriodOnce   MissionPeriod = "once"
	MissionPeriodDaily  MissionPeriod = "daily"
	MissionPeriodWeekly MissionPeriod = "weekly"
)

type MissionType string

const (
	MissionTypeGeneric  MissionType = "generic"
	MissionTypeQuiz     MissionType = "quiz"
	MissionTypeQuestion MissionType = "question"
	MissionTypeInvite   MissionType = "invite"
)

// MissionConfig carries the type-specific settings; unused fields stay zero.
type MissionConfig struct {
	Question      string   `json:"question,omitempty"`
	Answer        string   `json:"answer,omitempty"`
	Options       []string `json:"options,omitempty"`
	InvitesNeeded int      `json:"invites_needed,omitempty"`
}

type Mission struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Reward    int64         `json:"reward"`
	Period    MissionPeriod `json:"period"`
	Type      MissionType   `json:"type"`
	Config    MissionConfig `json:"config"`
	Enabled   bool          `json:"enabled"`
	CreatedAt time.Time     `json:"created_at"`
}

// MissionProgress is the per-user completion record. Map keys are
// "<missionID>:<periodKey>"; presence means completed (value is the mark
// time in unix milliseconds). Attempts tracks single-attempt gating for
// quiz/question missions, keyed the same way.
type MissionProgress struct {
	UserID    int64            `json:"user_id"`
	Completed int              `json:"completed"`
	Map       map[string]int64 `json:"map"`
	Attempts  map[string]int64 `json:"attempts,omitempty"`
}

// ProgressKey builds the completion-map key for a mission in a period.
func ProgressKey(missionID, periodKey string) string {
	return missionID + ":" + periodKey
}
