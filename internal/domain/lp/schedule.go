package lp

import (
	"time"
)

// ScheduleStatus is the lifecycle state of a DCA schedule.
type ScheduleStatus string

const (
	ScheduleActive    ScheduleStatus = "ACTIVE"
	SchedulePaused    ScheduleStatus = "PAUSED"
	ScheduleComplete  ScheduleStatus = "COMPLETE"
	ScheduleCancelled ScheduleStatus = "CANCELLED"
	ScheduleFailed    ScheduleStatus = "FAILED"
)

// Schedule is a recurring deposit plan owned by a single wallet.
type Schedule struct {
	ID            string         `json:"id"`
	Wallet        string         `json:"wallet"`
	Pool          string         `json:"pool"`
	Venue         Venue          `json:"venue"`
	AmountPerTick uint64         `json:"amountPerTick"` // raw collateral units
	Budget        uint64         `json:"budget"`
	Spent         uint64         `json:"spent"`
	Interval      time.Duration  `json:"interval"`
	NextTick      time.Time      `json:"nextTick"`
	Executions    int            `json:"executions"`
	MaxExecutions int            `json:"maxExecutions"`
	Shape         RangeShape     `json:"shape"`
	Status        ScheduleStatus `json:"status"`
	LastError     string         `json:"lastError,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Due reports whether the schedule should execute at now.
func (s *Schedule) Due(now time.Time) bool {
	return s.Status == ScheduleActive && !s.NextTick.After(now)
}

// Exhausted reports whether the schedule has hit its budget or execution cap.
func (s *Schedule) Exhausted() bool {
	return s.Spent >= s.Budget || s.Executions >= s.MaxExecutions
}

// ScheduleExecution is one entry in a schedule's capped history list.
type ScheduleExecution struct {
	At      time.Time `json:"at"`
	Amount  uint64    `json:"amount"`
	Success bool      `json:"success"`
	TxID    string    `json:"txId,omitempty"`
	Error   string    `json:"error,omitempty"`
}
