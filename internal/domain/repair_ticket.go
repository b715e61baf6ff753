package domain

import "time"

// RepairStatus enumerates lifecycle states for repair tickets.
type RepairStatus string

const (
	StatusReceived      RepairStatus = "received"
	StatusDiagnosing    RepairStatus = "diagnosing"
	StatusAwaitingParts RepairStatus = "awaiting_parts"
	StatusRepairing     RepairStatus = "repairing"
	StatusQualityCheck  RepairStatus = "quality_check"
	StatusReady         RepairStatus = "ready"
	StatusCompleted     RepairStatus = "completed"
	StatusCancelled     RepairStatus = "cancelled"
)

// StatusOrder is the canonical seven-step progression rendered on the
// tracking timeline. Cancelled sits outside the linear order.
var StatusOrder = []RepairStatus{
	StatusReceived,
	StatusDiagnosing,
	StatusAwaitingParts,
	StatusRepairing,
	StatusQualityCheck,
	StatusReady,
	StatusCompleted,
}

// IsKnown reports whether s is one of the eight defined statuses.
func (s RepairStatus) IsKnown() bool {
	if s == StatusCancelled {
		return true
	}
	return ProgressIndex(s) >= 0
}

// IsTerminal reports whether s ends the lifecycle for reporting purposes.
func (s RepairStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ProgressIndex returns the position of s within StatusOrder, or -1 when s
// is cancelled or not a known status.
func ProgressIndex(s RepairStatus) int {
	for i, candidate := range StatusOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// RepairPriority enumerates urgency levels set by staff.
type RepairPriority string

const (
	PriorityLow    RepairPriority = "low"
	PriorityNormal RepairPriority = "normal"
	PriorityHigh   RepairPriority = "high"
	PriorityUrgent RepairPriority = "urgent"
)

// IsKnown reports whether p is one of the four defined priorities.
func (p RepairPriority) IsKnown() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// DisplayTier buckets priorities for presentation. High and urgent share
// the severe tier; normal renders as its own medium tier.
type DisplayTier string

const (
	TierSevere DisplayTier = "severe"
	TierMedium DisplayTier = "medium"
	TierMild   DisplayTier = "mild"
)

// DisplayTier maps a priority to its presentation tier. Unknown values
// fall back to the medium tier.
func (p RepairPriority) DisplayTier() DisplayTier {
	switch p {
	case PriorityUrgent, PriorityHigh:
		return TierSevere
	case PriorityLow:
		return TierMild
	default:
		return TierMedium
	}
}

// RepairTicket is the aggregate for one customer device submitted for repair.
type RepairTicket struct {
	ID                  string
	TicketNumber        string
	CustomerName        string
	CustomerEmail       *string
	CustomerPhone       *string
	DeviceType          string
	DeviceBrand         string
	DeviceModel         string
	IssueDescription    string
	Status              RepairStatus
	Priority            RepairPriority
	EstimatedCost       *float64
	FinalCost           *float64
	EstimatedCompletion *time.Time
	CustomerNotes       *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}
