package domain

import "time"

// SlaConfig holds the per-priority targets copied onto new tickets.
type SlaConfig struct {
	Priority             TicketPriority
	TargetAssignMinutes  int
	TargetResolveMinutes int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
