package domain

import "time"

// ReminderAction tells the worker what to do for a stage.
type ReminderAction string

const (
	// ReminderSyncAction replaces the stage's notification and calendar
	// event with ones matching the current stage date.
	ReminderSyncAction ReminderAction = "sync"
	// ReminderRemoveAction clears any scheduled reminder for the stage.
	ReminderRemoveAction ReminderAction = "remove"
)

// ReminderSync is the transport format for the async reminder pipeline.
// It carries everything the worker needs so that a remove still works after
// the company or stage is gone.
type ReminderSync struct {
	CompanyID       string         `json:"company_id"`
	StageID         string         `json:"stage_id"`
	Action          ReminderAction `json:"action"`
	Title           string         `json:"title"`
	Body            string         `json:"body"`
	FireAt          time.Time      `json:"fire_at"`
	Location        string         `json:"location,omitempty"`
	CalendarEventID string         `json:"calendar_event_id,omitempty"`
	Attempt         int            `json:"attempt"`
	RequestedAt     time.Time      `json:"requested_at"`
}

// AgendaEntry is one stage due today, paired with its company.
type AgendaEntry struct {
	Company *Company
	Stage   StageRecord
}

// Statistics aggregates the tracked companies for the overview board.
type Statistics struct {
	Total     int                   `json:"total"`
	Offers    int                   `json:"offers"`
	Failed    int                   `json:"failed"`
	OfferRate int                   `json:"offer_rate"`
	ByStatus  map[OverallStatus]int `json:"by_status"`
}
