// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	TicksTotal           = expvar.NewInt("ticks_total")
	SchedulesDue         = expvar.NewInt("schedules_due")
	ClaimsWon            = expvar.NewInt("claims_won")
	ClaimsLost           = expvar.NewInt("claims_lost")
	GenerationsTotal     = expvar.NewInt("generations_total")
	GenerationsFailed    = expvar.NewInt("generations_failed")
	SchedulesDeactivated = expvar.NewInt("schedules_deactivated")
	HistoryWrites        = expvar.NewInt("history_writes")
	WakeupsRegistered    = expvar.NewInt("wakeups_registered")
	AlertsDispatched     = expvar.NewInt("alerts_dispatched")
)
