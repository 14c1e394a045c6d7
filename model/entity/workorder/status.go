package workorder

type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusWaitingApproval Status = "WAITING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusScheduled       Status = "SCHEDULED"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusOnHold          Status = "ON_HOLD"
	StatusCompleted       Status = "COMPLETED"
	StatusClosed          Status = "CLOSED"
	StatusCancelled       Status = "CANCELLED"
)

// OpenStatuses are the states in which a work order is still outstanding.
var OpenStatuses = []Status{
	StatusDraft, StatusWaitingApproval, StatusApproved,
	StatusScheduled, StatusInProgress, StatusOnHold,
}

func (s Status) IsOpen() bool {
	for _, o := range OpenStatuses {
		if s == o {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// CostsFrozen reports whether total_cost has been fixed. No override
// may book charges past this point.
func (s Status) CostsFrozen() bool {
	return s == StatusCompleted || s.IsTerminal()
}

// IsChargeable reports whether labor and material may be booked.
func (s Status) IsChargeable() bool {
	return s == StatusInProgress || s == StatusOnHold
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusWaitingApproval, StatusApproved, StatusScheduled,
		StatusInProgress, StatusOnHold, StatusCompleted, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityEmergency Priority = "EMERGENCY"
	PriorityHigh      Priority = "HIGH"
	PriorityMedium    Priority = "MEDIUM"
	PriorityLow       Priority = "LOW"
	PriorityScheduled Priority = "SCHEDULED"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityEmergency, PriorityHigh, PriorityMedium, PriorityLow, PriorityScheduled:
		return true
	}
	return false
}

type Type string

const (
	TypeCorrective  Type = "CORRECTIVE"
	TypePreventive  Type = "PREVENTIVE"
	TypePredictive  Type = "PREDICTIVE"
	TypeEmergency   Type = "EMERGENCY"
	TypeProject     Type = "PROJECT"
	TypeInspection  Type = "INSPECTION"
	TypeCalibration Type = "CALIBRATION"
)

func (t Type) Valid() bool {
	switch t {
	case TypeCorrective, TypePreventive, TypePredictive, TypeEmergency,
		TypeProject, TypeInspection, TypeCalibration:
		return true
	}
	return false
}
