package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/interfaces"
	"github.com/bobmcallan/assessor/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// QuotaLedger implements interfaces.QuotaLedger, keyed by owner ID, using
// BadgerHold Get/Upsert CRUD.
type QuotaLedger struct {
	store  *Store
	logger *common.Logger
	limits map[models.Plan]models.PlanLimits
	planOf func(ctx context.Context, ownerID string) (models.Plan, error)
}

// NewQuotaLedger creates a QuotaLedger backed by BadgerHold. planOf resolves
// an owner's current plan; when nil, every owner is treated as FREE.
func NewQuotaLedger(store *Store, logger *common.Logger, limits map[models.Plan]models.PlanLimits, planOf func(ctx context.Context, ownerID string) (models.Plan, error)) *QuotaLedger {
	return &QuotaLedger{store: store, logger: logger, limits: limits, planOf: planOf}
}

func (s *QuotaLedger) get(ownerID string) (*models.TeacherUsage, error) {
	var usage models.TeacherUsage
	err := s.store.db.Get(ownerID, &usage)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get quota usage for '%s': %w", ownerID, err)
	}
	return &usage, nil
}

func (s *QuotaLedger) plan(ctx context.Context, ownerID string) models.Plan {
	if s.planOf == nil {
		return models.PlanFree
	}
	plan, err := s.planOf(ctx, ownerID)
	if err != nil {
		s.logger.Warn().Str("owner_id", ownerID).Err(err).Msg("Failed to resolve plan, defaulting to FREE")
		return models.PlanFree
	}
	return plan
}

// currentCycle loads the owner's usage row, rolling it over to a fresh
// cycle if the stored cycle_anchor predates this month's start.
func (s *QuotaLedger) currentCycle(ownerID string, plan models.Plan, now time.Time) (*models.TeacherUsage, error) {
	cycleAnchor := models.CycleStart(now)
	usage, err := s.get(ownerID)
	if err != nil {
		return nil, err
	}
	if usage == nil || usage.CycleAnchor.Before(cycleAnchor) {
		usage = &models.TeacherUsage{OwnerID: ownerID, Plan: plan, CycleAnchor: cycleAnchor}
	}
	return usage, nil
}

// Admit enforces the monthly word/character ceiling for the owner's plan,
// checking the word limit first and the character limit second so a single
// admission call yields exactly one deny reason. RecordUsage never
// accumulates character counts, so the character check compares this
// document's count directly against the limit rather than a running total —
// enforcement is effectively per-document, not cumulative, for characters.
func (s *QuotaLedger) Admit(ctx context.Context, ownerID string, wordCount, charCount int) (interfaces.AdmitDecision, error) {
	now := time.Now().UTC()
	plan := s.plan(ctx, ownerID)

	if plan == models.PlanSchools {
		return interfaces.AdmitDecision{Admitted: true}, nil
	}

	usage, err := s.currentCycle(ownerID, plan, now)
	if err != nil {
		return interfaces.AdmitDecision{}, err
	}

	limits, ok := s.limits[plan]
	if !ok {
		limits = s.limits[models.PlanFree]
	}

	if limits.MonthlyWords > 0 && usage.WordsUsedCurrentCycle+wordCount > limits.MonthlyWords {
		return interfaces.AdmitDecision{Admitted: false, Reason: "monthly word limit exceeded"}, nil
	}
	if limits.MonthlyChars > 0 && charCount > limits.MonthlyChars {
		return interfaces.AdmitDecision{Admitted: false, Reason: "monthly character limit exceeded"}, nil
	}

	return interfaces.AdmitDecision{Admitted: true}, nil
}

// RecordUsage applies a successful assessment's word/document consumption to
// the owner's current cycle, rolling the cycle over lazily if it has
// elapsed. The worker is expected never to call this for denied tasks nor
// for SCHOOLS plans, but SCHOOLS is also a no-op here so the invariant holds
// even if a caller calls it unconditionally.
func (s *QuotaLedger) RecordUsage(ctx context.Context, ownerID string, wordCount int, documents int) error {
	now := time.Now().UTC()
	plan := s.plan(ctx, ownerID)
	if plan == models.PlanSchools {
		return nil
	}

	usage, err := s.currentCycle(ownerID, plan, now)
	if err != nil {
		return err
	}

	usage.WordsUsedCurrentCycle += wordCount
	usage.DocumentsProcessedCurrentCycle += documents

	if err := s.store.db.Upsert(ownerID, usage); err != nil {
		return fmt.Errorf("record quota usage for '%s': %w", ownerID, err)
	}
	return nil
}

var _ interfaces.QuotaLedger = (*QuotaLedger)(nil)
