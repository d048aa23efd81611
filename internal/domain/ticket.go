package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen               TicketStatus = "open"
	TicketStatusUnderInvestigation TicketStatus = "under_investigation"
	TicketStatusResolved           TicketStatus = "resolved"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusUnderInvestigation,
	TicketStatusResolved,
}

func (s TicketStatus) String() string { return string(s) }

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// IsOpen reports whether the ticket still counts against its SLA.
func (s TicketStatus) IsOpen() bool {
	return s == TicketStatusOpen || s == TicketStatusUnderInvestigation
}

// ParseTicketStatus validates a raw status value.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid ticket status %q", raw)
	}
	return status, nil
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "critical"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityLow      TicketPriority = "low"
)

// TicketPriorities lists priorities from most to least urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityCritical,
	TicketPriorityHigh,
	TicketPriorityMedium,
	TicketPriorityLow,
}

func (p TicketPriority) String() string { return string(p) }

// IsValid reports whether p is a known priority.
func (p TicketPriority) IsValid() bool {
	return p.Rank() >= 0
}

// Rank returns the urgency order of p, critical first, or -1 when unknown.
func (p TicketPriority) Rank() int {
	for i, candidate := range TicketPriorities {
		if p == candidate {
			return i
		}
	}
	return -1
}

// ParseTicketPriority validates a raw priority value.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	priority := TicketPriority(raw)
	if !priority.IsValid() {
		return "", fmt.Errorf("invalid ticket priority %q", raw)
	}
	return priority, nil
}

// TicketNumberPrefix prefixes every human readable ticket number.
const TicketNumberPrefix = "ASM-"

// FormatTicketNumber renders a sequence value as a ticket number.
func FormatTicketNumber(seq int64) string {
	return fmt.Sprintf("%s%04d", TicketNumberPrefix, seq)
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                     uuid.UUID
	TicketNumber           string
	Title                  string
	Description            string
	Status                 TicketStatus
	Priority               TicketPriority
	AssignedGroupID        uuid.UUID
	AssignedUserID         *uuid.UUID
	CreatedByID            uuid.UUID
	ResolvedAt             *time.Time
	FirstAssignedAt        *time.Time
	SLATargetMinutes       *int
	SLATargetAssignMinutes *int
	CreatedAt              time.Time
	UpdatedAt              time.Time

	// Read-side names joined from groups and users.
	AssignedGroupName string
	AssignedUserName  *string
	CreatedByName     string
}

// IsResolved reports whether the ticket has reached the terminal state.
func (t *Ticket) IsResolved() bool {
	return t.ResolvedAt != nil
}
