// Package types defines the public domain types for the draftcue scheduler.
package types

import "time"

// Schedule is a recurring content-generation job definition. NextRun is the
// sole concurrency-control field: a due schedule is claimed by conditionally
// advancing NextRun, and exactly one claimant wins per NextRun value.
type Schedule struct {
	ID         int64      `json:"id" yaml:"id,omitempty"`
	TemplateID int64      `json:"templateId" yaml:"templateId"`
	Frequency  Frequency  `json:"frequency" yaml:"frequency"`
	Topic      string     `json:"topic,omitempty" yaml:"topic,omitempty"`
	Rules      *RuleSet   `json:"rules,omitempty" yaml:"rules,omitempty"`
	NextRun    time.Time  `json:"nextRun" yaml:"nextRun,omitempty"`
	LastRun    *time.Time `json:"lastRun,omitempty" yaml:"-"`
	Active     bool       `json:"active" yaml:"active"`
	CreatedAt  time.Time  `json:"createdAt" yaml:"-"`
	UpdatedAt  time.Time  `json:"updatedAt" yaml:"-"`
}

// RuleSet is an advanced schedule constraint: a set of time-window conditions
// combined under all/any semantics. An empty condition list under "all"
// matches every timestamp.
type RuleSet struct {
	Mode       RuleMode    `json:"mode" yaml:"mode"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

// Condition is one rule in a RuleSet. Kind selects the variant; the other
// fields are interpreted per kind:
//   - time_between: Start/End as "HH:MM", half-open [Start, End), may cross midnight
//   - days_of_week: Days as lowercase weekday names
//   - exclude_month_days: MonthDays as days-of-month that do NOT match
type Condition struct {
	Kind      ConditionKind `json:"kind" yaml:"kind"`
	Start     string        `json:"start,omitempty" yaml:"start,omitempty"`
	End       string        `json:"end,omitempty" yaml:"end,omitempty"`
	Days      []string      `json:"days,omitempty" yaml:"days,omitempty"`
	MonthDays []int         `json:"monthDays,omitempty" yaml:"monthDays,omitempty"`
}

// Template is a content template referenced by schedules. The body prompt is
// opaque to the scheduler core and handed through to the generation backend.
type Template struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryRecord is the audit entry for one execution attempt. Content is the
// full generated payload and is only hydrated by detail fetches, never by
// list queries.
type HistoryRecord struct {
	ID             int64         `json:"id"`
	TemplateID     int64         `json:"templateId"`
	TemplateName   string        `json:"templateName,omitempty"`
	Status         HistoryStatus `json:"status"`
	GeneratedTitle string        `json:"generatedTitle,omitempty"`
	Content        string        `json:"content,omitempty"`
	ErrorMessage   string        `json:"errorMessage,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
	Log            []LogEntry    `json:"log,omitempty"`
}

// LogEntry is one step in a history record's insertion-ordered log.
type LogEntry struct {
	ID        int64          `json:"id"`
	HistoryID int64          `json:"historyId"`
	EntryType string         `json:"entryType"`
	Kind      LogKind        `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// HistoryFilter shapes a paginated history listing.
type HistoryFilter struct {
	Status     HistoryStatus `json:"status,omitempty"`
	TemplateID int64         `json:"templateId,omitempty"`
	Search     string        `json:"search,omitempty"`
	Page       int           `json:"page,omitempty"`
	PerPage    int           `json:"perPage,omitempty"`
}

// HistoryPage is one page of history records plus the unpaginated total.
type HistoryPage struct {
	Items []HistoryRecord `json:"items"`
	Total int             `json:"total"`
}

// Alert is a notification about a scheduling or generation problem.
type Alert struct {
	Level      AlertLevel `json:"level"`
	ScheduleID int64      `json:"scheduleId,omitempty"`
	Message    string     `json:"message"`
	Timestamp  time.Time  `json:"timestamp"`
}
