// Package sla computes resolution and assignment SLA status for tickets.
package sla

import (
	"math"
	"time"

	"github.com/accio/servicemeow/internal/domain"
)

// Outcome values reported once a ticket is resolved.
const (
	OutcomeWithinSLA = "within_sla"
	OutcomeOverSLA   = "over_sla"
)

const atRiskRatio = 0.8

// ResolveStatus describes progress against the resolution target.
type ResolveStatus struct {
	TargetMinutes    int     `json:"target_minutes"`
	ElapsedMinutes   int     `json:"elapsed_minutes"`
	Percentage       float64 `json:"percentage"`
	IsBreached       bool    `json:"is_breached"`
	IsAtRisk         bool    `json:"is_at_risk"`
	RemainingMinutes int     `json:"remaining_minutes"`
	IsResolved       bool    `json:"is_resolved"`
	Outcome          *string `json:"outcome"`
}

// AssignStatus describes progress against the time-to-assign target.
type AssignStatus struct {
	TargetMinutes  int     `json:"target_minutes"`
	ElapsedMinutes int     `json:"elapsed_minutes"`
	Percentage     float64 `json:"percentage"`
	IsBreached     bool    `json:"is_breached"`
	IsMet          bool    `json:"is_met"`
	IsPending      bool    `json:"is_pending"`
}

// Calculator evaluates SLA state against an injectable clock.
type Calculator struct {
	Now func() time.Time
}

// NewCalculator returns a calculator using the wall clock in UTC.
func NewCalculator() *Calculator {
	return &Calculator{Now: func() time.Time { return time.Now().UTC() }}
}

func (c *Calculator) now() time.Time {
	if c == nil || c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now()
}

// ElapsedSeconds is the whole seconds between creation and resolution (or now), never negative.
func (c *Calculator) ElapsedSeconds(t *domain.Ticket) int {
	end := c.now()
	if t.ResolvedAt != nil {
		end = *t.ResolvedAt
	}
	return clampSeconds(end.Sub(t.CreatedAt))
}

// IsBreached reports whether elapsed time exceeds the resolution target.
func (c *Calculator) IsBreached(t *domain.Ticket) bool {
	if t.SLATargetMinutes == nil {
		return false
	}
	return c.ElapsedSeconds(t) > *t.SLATargetMinutes*60
}

// IsAtRisk reports whether elapsed time exceeds 80% of the resolution target.
func (c *Calculator) IsAtRisk(t *domain.Ticket) bool {
	if t.SLATargetMinutes == nil {
		return false
	}
	return float64(c.ElapsedSeconds(t)) > float64(*t.SLATargetMinutes*60)*atRiskRatio
}

// ResolveStatus returns nil when the ticket carries no resolution target.
func (c *Calculator) ResolveStatus(t *domain.Ticket) *ResolveStatus {
	if t.SLATargetMinutes == nil {
		return nil
	}
	elapsed := c.ElapsedSeconds(t)
	target := *t.SLATargetMinutes * 60
	breached := elapsed > target
	resolved := t.ResolvedAt != nil

	status := &ResolveStatus{
		TargetMinutes:    *t.SLATargetMinutes,
		ElapsedMinutes:   roundMinutes(elapsed),
		Percentage:       percentage(elapsed, target),
		IsBreached:       breached,
		IsAtRisk:         float64(elapsed) > float64(target)*atRiskRatio,
		RemainingMinutes: roundMinutes(target - elapsed),
		IsResolved:       resolved,
	}
	if resolved {
		outcome := OutcomeWithinSLA
		if breached {
			outcome = OutcomeOverSLA
		}
		status.Outcome = &outcome
	}
	return status
}

// AssignStatus returns nil when the ticket carries no assignment target.
// Once a user has been attached the elapsed time is frozen at first assignment.
func (c *Calculator) AssignStatus(t *domain.Ticket) *AssignStatus {
	if t.SLATargetAssignMinutes == nil {
		return nil
	}
	target := *t.SLATargetAssignMinutes * 60

	var elapsed int
	pending := t.FirstAssignedAt == nil
	if pending {
		elapsed = clampSeconds(c.now().Sub(t.CreatedAt))
	} else {
		elapsed = clampSeconds(t.FirstAssignedAt.Sub(t.CreatedAt))
	}

	return &AssignStatus{
		TargetMinutes:  *t.SLATargetAssignMinutes,
		ElapsedMinutes: roundMinutes(elapsed),
		Percentage:     percentage(elapsed, target),
		IsBreached:     elapsed > target,
		IsMet:          !pending && elapsed <= target,
		IsPending:      pending,
	}
}

func clampSeconds(d time.Duration) int {
	seconds := int(d / time.Second)
	if seconds < 0 {
		return 0
	}
	return seconds
}

// roundMinutes converts seconds to minutes rounding half to even.
func roundMinutes(seconds int) int {
	return int(math.RoundToEven(float64(seconds) / 60))
}

// percentage is elapsed/target as a percent with one decimal, 0 for a zero target.
func percentage(elapsed, target int) float64 {
	if target <= 0 {
		return 0
	}
	return math.RoundToEven(float64(elapsed)/float64(target)*1000) / 10
}
