package models

import "time"

// Plan is a teacher's subscription tier, governing monthly usage limits.
type Plan string

const (
	PlanFree    Plan = "FREE"
	PlanPro     Plan = "PRO"
	PlanSchools Plan = "SCHOOLS"
)

// PlanLimits are the monthly word/character ceilings for one plan. SCHOOLS
// has no entry — it is unlimited and admitted unconditionally.
type PlanLimits struct {
	MonthlyWords int
	MonthlyChars int
}

// TeacherUsage is the per-teacher quota ledger row, read and updated by
// QuotaLedger.Admit / RecordUsage.
type TeacherUsage struct {
	OwnerID                        string    `json:"owner_id"`
	Plan                           Plan      `json:"plan"`
	WordsUsedCurrentCycle          int       `json:"words_used_current_cycle"`
	DocumentsProcessedCurrentCycle int       `json:"documents_processed_current_cycle"`
	CycleAnchor                    time.Time `json:"cycle_anchor"`
}

// CycleStart returns the UTC month-start instant for t, used to detect
// whether a usage row's cycle has rolled over.
func CycleStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
