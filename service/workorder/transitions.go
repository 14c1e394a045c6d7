package workorder

import woEntity "cmms.GO/model/entity/workorder"

var transitions = map[woEntity.Status][]woEntity.Status{
	woEntity.StatusDraft:           {woEntity.StatusWaitingApproval, woEntity.StatusApproved, woEntity.StatusCancelled},
	woEntity.StatusWaitingApproval: {woEntity.StatusApproved, woEntity.StatusDraft, woEntity.StatusCancelled},
	woEntity.StatusApproved:        {woEntity.StatusScheduled, woEntity.StatusInProgress, woEntity.StatusCancelled},
	woEntity.StatusScheduled:       {woEntity.StatusInProgress, woEntity.StatusApproved, woEntity.StatusCancelled},
	woEntity.StatusInProgress:      {woEntity.StatusOnHold, woEntity.StatusCompleted, woEntity.StatusCancelled},
	woEntity.StatusOnHold:          {woEntity.StatusInProgress, woEntity.StatusCancelled},
	woEntity.StatusCompleted:       {woEntity.StatusClosed, woEntity.StatusCancelled},
}

// CanTransition reports whether from -> to is a legal edge. With
// requireApproval set, a draft must pass through WAITING_APPROVAL.
func CanTransition(from, to woEntity.Status, requireApproval bool) bool {
	if requireApproval && from == woEntity.StatusDraft && to == woEntity.StatusApproved {
		return false
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the targets reachable from from.
func AllowedTransitions(from woEntity.Status, requireApproval bool) []woEntity.Status {
	var out []woEntity.Status
	for _, s := range transitions[from] {
		if CanTransition(from, s, requireApproval) {
			out = append(out, s)
		}
	}
	return out
}
