package domain

// StatusCount is a ticket count for one status.
type StatusCount struct {
	Status TicketStatus `json:"status"`
	Count  int          `json:"count"`
}

// PriorityCount is a ticket count for one priority.
type PriorityCount struct {
	Priority TicketPriority `json:"priority"`
	Count    int            `json:"count"`
}

// GroupCount is a ticket count for one group.
type GroupCount struct {
	GroupName string `json:"group_name"`
	Count     int    `json:"count"`
}

// DashboardSummary aggregates ticket counts for the dashboard.
type DashboardSummary struct {
	TotalTickets int             `json:"total_tickets"`
	ByStatus     []StatusCount   `json:"by_status"`
	ByPriority   []PriorityCount `json:"by_priority"`
	ByGroup      []GroupCount    `json:"by_group"`
}

// SLAMetrics holds mean time to assign and resolve, in seconds.
type SLAMetrics struct {
	MTTASeconds *float64        `json:"mtta_seconds"`
	MTTRSeconds *float64        `json:"mttr_seconds"`
	GroupName   *string         `json:"group_name"`
	Priority    *TicketPriority `json:"priority"`
}
