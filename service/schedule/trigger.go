package schedule

import (
	"time"

	"cmms.GO/core/apperr"
)

type TriggerType string

const (
	TriggerTime         TriggerType = "TIME"
	TriggerMeter        TriggerType = "METER"
	TriggerCondition    TriggerType = "CONDITION"
	TriggerTimeOrMeter  TriggerType = "TIME_OR_METER"
	TriggerTimeAndMeter TriggerType = "TIME_AND_METER"
)

// DueContext is everything a trigger may look at. Dates are day-truncated
// in the scheduler's location.
type DueContext struct {
	Today        time.Time
	NextDue      *time.Time
	LeadTimeDays int

	// Reading is the asset's current meter value, nil when unknown.
	Reading *float64
	// Threshold is the reading at which a meter trigger fires.
	Threshold *float64
}

// Trigger is one variant of PM trigger evaluation.
type Trigger interface {
	IsDue(c DueContext) bool
}

// TimeTrigger fires once today reaches next_due minus the lead time.
type TimeTrigger struct{}

func (TimeTrigger) IsDue(c DueContext) bool {
	if c.NextDue == nil {
		return false
	}
	opens := c.NextDue.AddDate(0, 0, -c.LeadTimeDays)
	return !c.Today.Before(opens)
}

// MeterTrigger fires when the reading reaches the threshold.
type MeterTrigger struct{}

func (MeterTrigger) IsDue(c DueContext) bool {
	return c.Reading != nil && c.Threshold != nil && *c.Reading >= *c.Threshold
}

// ConditionTrigger fires while the reading satisfies Operator Value.
type ConditionTrigger struct {
	Operator string
	Value    float64
}

func (t ConditionTrigger) IsDue(c DueContext) bool {
	if c.Reading == nil {
		return false
	}
	r := *c.Reading
	switch t.Operator {
	case ">":
		return r > t.Value
	case ">=":
		return r >= t.Value
	case "<":
		return r < t.Value
	case "<=":
		return r <= t.Value
	case "=", "==":
		return r == t.Value
	}
	return false
}

// AnyOf fires when any member fires.
type AnyOf []Trigger

func (a AnyOf) IsDue(c DueContext) bool {
	for _, t := range a {
		if t.IsDue(c) {
			return true
		}
	}
	return false
}

// AllOf fires only when every member fires.
type AllOf []Trigger

func (a AllOf) IsDue(c DueContext) bool {
	if len(a) == 0 {
		return false
	}
	for _, t := range a {
		if !t.IsDue(c) {
			return false
		}
	}
	return true
}

var conditionOperators = map[string]bool{">": true, ">=": true, "<": true, "<=": true, "=": true, "==": true}

// NewTrigger builds the trigger for a PM's trigger type.
func NewTrigger(tt TriggerType, operator string, value float64) (Trigger, error) {
	switch tt {
	case TriggerTime:
		return TimeTrigger{}, nil
	case TriggerMeter:
		return MeterTrigger{}, nil
	case TriggerCondition:
		if !conditionOperators[operator] {
			return nil, apperr.Validation("condition_operator", "unsupported operator %q", operator)
		}
		return ConditionTrigger{Operator: operator, Value: value}, nil
	case TriggerTimeOrMeter:
		return AnyOf{TimeTrigger{}, MeterTrigger{}}, nil
	case TriggerTimeAndMeter:
		return AllOf{TimeTrigger{}, MeterTrigger{}}, nil
	}
	return nil, apperr.Validation("trigger_type", "unknown trigger type %q", tt)
}
