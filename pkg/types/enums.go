package types

import "strings"

// Frequency describes how often a schedule recurs. Beyond the named values,
// two prefixed forms are recognized: "every:<seconds>" for a custom fixed
// period and "cron:<expr>" for a standard cron expression.
type Frequency string

// Frequency values enumerate the named recurrence descriptors.
const (
	FreqHourly  Frequency = "hourly"
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqOnce    Frequency = "once"
)

// Frequency prefixes for the parameterized descriptor forms.
const (
	FreqEveryPrefix = "every:"
	FreqCronPrefix  = "cron:"
)

// IsOnce reports whether the frequency is the one-shot descriptor.
func (f Frequency) IsOnce() bool { return f == FreqOnce }

// RuleMode defines how a rule set combines its conditions.
type RuleMode string

// RuleMode values define the supported combination semantics.
const (
	RuleModeAll RuleMode = "all"
	RuleModeAny RuleMode = "any"
)

// ConditionKind selects a rule condition variant.
type ConditionKind string

// ConditionKind values enumerate the supported condition variants.
const (
	CondTimeBetween      ConditionKind = "time_between"
	CondDaysOfWeek       ConditionKind = "days_of_week"
	CondExcludeMonthDays ConditionKind = "exclude_month_days"
)

// HistoryStatus represents the lifecycle state of a history record.
type HistoryStatus string

// HistoryStatus values represent the lifecycle states of an execution attempt.
const (
	HistoryProcessing HistoryStatus = "processing"
	HistoryCompleted  HistoryStatus = "completed"
	HistoryFailed     HistoryStatus = "failed"
)

// LogKind classifies a history log entry for audit display and
// activity-stream filtering.
type LogKind string

// LogKind values enumerate the log entry taxonomy.
const (
	LogGeneric    LogKind = "LOG"
	LogError      LogKind = "ERROR"
	LogWarning    LogKind = "WARNING"
	LogActivity   LogKind = "ACTIVITY"
	LogAIRequest  LogKind = "AI_REQUEST"
	LogAIResponse LogKind = "AI_RESPONSE"
)

// ActivityVisible reports whether entries of this kind appear in the
// activity stream, as opposed to the full audit log only.
func (k LogKind) ActivityVisible() bool {
	switch k {
	case LogActivity, LogError, LogWarning:
		return true
	default:
		return false
	}
}

// GeneratorType selects a content-generation backend.
type GeneratorType string

// GeneratorType values enumerate the supported generation backends.
const (
	GeneratorAnthropic GeneratorType = "anthropic"
	GeneratorHTTP      GeneratorType = "http"
	GeneratorCommand   GeneratorType = "command"
)

// AlertType defines the alert sink type.
type AlertType string

// AlertType values enumerate the supported alert sink backends.
const (
	AlertConsole AlertType = "console"
	AlertWebhook AlertType = "webhook"
	AlertFile    AlertType = "file"
)

// AlertLevel replaces string-typed alert levels with a proper enum.
type AlertLevel string

const (
	AlertLevelError   AlertLevel = "error"
	AlertLevelWarning AlertLevel = "warning"
	AlertLevelInfo    AlertLevel = "info"
)

// ParseLogKind maps a raw classification string to a LogKind, defaulting to
// the generic LOG classification for unknown input.
func ParseLogKind(raw string) LogKind {
	switch LogKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case LogError:
		return LogError
	case LogWarning:
		return LogWarning
	case LogActivity:
		return LogActivity
	case LogAIRequest:
		return LogAIRequest
	case LogAIResponse:
		return LogAIResponse
	default:
		return LogGeneric
	}
}
