// Package models adapts entities to the GraphQL schema. graphql-go matches
// fields to methods, so every exported method here is a schema field.
package models

import (
	"time"

	gql "github.com/graph-gophers/graphql-go"

	"cmms.GO/graphql"
	ccEntity "cmms.GO/model/entity/cyclecount"
	invEntity "cmms.GO/model/entity/inventory"
	pmEntity "cmms.GO/model/entity/pm"
	woEntity "cmms.GO/model/entity/workorder"
	"cmms.GO/service/scheduler"
)

const dateLayout = "2006-01-02"

func formatTime(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(layout)
	return &s
}

type WorkOrder struct{ wo *woEntity.WorkOrder }

func NewWorkOrder(wo *woEntity.WorkOrder) *WorkOrder { return &WorkOrder{wo: wo} }

func (w *WorkOrder) ID() gql.ID { return graphql.ToID(w.wo.ID) }
func (w *WorkOrder) WONumber() string { return w.wo.WONumber }
func (w *WorkOrder) Title() string { return w.wo.Title }
func (w *WorkOrder) Status() string { return string(w.wo.Status) }
func (w *WorkOrder) Priority() string { return string(w.wo.Priority) }
func (w *WorkOrder) WorkType() string { return string(w.wo.WorkType) }
func (w *WorkOrder) AssetID() *gql.ID { return graphql.OptionalID(w.wo.AssetID) }
func (w *WorkOrder) PMID() *gql.ID { return graphql.OptionalID(w.wo.PMID) }
func (w *WorkOrder) DueDate() *string { return formatTime(w.wo.DueDate, dateLayout) }
func (w *WorkOrder) EstimatedHours() float64 { return w.wo.EstimatedHours }
func (w *WorkOrder) ActualLaborHours() float64 { return w.wo.ActualLaborHours }
func (w *WorkOrder) TotalCost() string { return w.wo.TotalCost.StringFixed(2) }
func (w *WorkOrder) Version() int32 { return int32(w.wo.Version) }

type PM struct{ d *pmEntity.Definition }

func NewPM(d *pmEntity.Definition) *PM { return &PM{d: d} }

func (p *PM) ID() gql.ID { return graphql.ToID(p.d.ID) }
func (p *PM) PMNumber() string { return p.d.PMNumber }
func (p *PM) Name() string { return p.d.Name }
func (p *PM) AssetID() *gql.ID { return graphql.OptionalID(p.d.AssetID) }
func (p *PM) Priority() string { return p.d.Priority }
func (p *PM) NextDueDate() *string { return formatTime(p.d.NextDueDate, dateLayout) }
func (p *PM) IsActive() bool { return p.d.IsActive }
func (p *PM) IsPaused() bool { return p.d.IsPaused }

type StockLevel struct{ s *invEntity.StockLevel }

func NewStockLevel(s *invEntity.StockLevel) *StockLevel { return &StockLevel{s: s} }

func (s *StockLevel) ID() gql.ID { return graphql.ToID(s.s.ID) }
func (s *StockLevel) PartID() gql.ID { return graphql.ToID(s.s.PartID) }
func (s *StockLevel) StoreroomID() gql.ID { return graphql.ToID(s.s.StoreroomID) }
func (s *StockLevel) CurrentBalance() float64 { return s.s.CurrentBalance }
func (s *StockLevel) ReservedQuantity() float64 { return s.s.ReservedQuantity }
func (s *StockLevel) AvailableQuantity() float64 { return s.s.AvailableQuantity }
func (s *StockLevel) ReorderPoint() float64 { return s.s.ReorderPoint }

func (s *StockLevel) BinLocation() *string {
	if s.s.BinLocation == "" {
		return nil
	}
	return &s.s.BinLocation
}

type CycleCount struct {
	s     *ccEntity.Session
	lines []ccEntity.Line
}

func NewCycleCount(s *ccEntity.Session, lines []ccEntity.Line) *CycleCount {
	return &CycleCount{s: s, lines: lines}
}

func (c *CycleCount) ID() gql.ID { return graphql.ToID(c.s.ID) }
func (c *CycleCount) CountNumber() string { return c.s.CountNumber }
func (c *CycleCount) Name() string { return c.s.Name }
func (c *CycleCount) Status() string { return string(c.s.Status) }
func (c *CycleCount) ScheduledDate() string { return c.s.ScheduledDate.UTC().Format(dateLayout) }
func (c *CycleCount) TotalLines() int32 { return int32(c.s.TotalLines) }
func (c *CycleCount) CountedLines() int32 { return int32(c.s.CountedLines) }

func (c *CycleCount) Lines() []*CycleCountLine {
	out := make([]*CycleCountLine, len(c.lines))
	for i := range c.lines {
		out[i] = &CycleCountLine{l: &c.lines[i]}
	}
	return out
}

type CycleCountLine struct{ l *ccEntity.Line }

func (l *CycleCountLine) ID() gql.ID { return graphql.ToID(l.l.ID) }
func (l *CycleCountLine) PartNumber() string { return l.l.PartNumber }
func (l *CycleCountLine) ExpectedQuantity() float64 { return l.l.ExpectedQuantity }
func (l *CycleCountLine) CountedQuantity() *float64 { return l.l.CountedQuantity }
func (l *CycleCountLine) Variance() *float64 { return l.l.Variance }

func (l *CycleCountLine) BinLocation() *string {
	if l.l.BinLocation == "" {
		return nil
	}
	return &l.l.BinLocation
}

type SchedulerStatus struct{ s scheduler.OrgStatus }

func NewSchedulerStatus(s scheduler.OrgStatus) *SchedulerStatus { return &SchedulerStatus{s: s} }

func (s *SchedulerStatus) Name() string { return s.s.Name }
func (s *SchedulerStatus) Paused() bool { return s.s.Paused }
func (s *SchedulerStatus) OrganizationPaused() bool { return s.s.OrganizationPaused }
func (s *SchedulerStatus) Running() bool { return s.s.Running }
func (s *SchedulerStatus) LastRunAt() *string { return formatTime(s.s.LastRunAt, time.RFC3339) }

func (s *SchedulerStatus) LastGenerated() *int32 {
	if s.s.LastResult == nil {
		return nil
	}
	n := int32(s.s.LastResult.Generated)
	return &n
}

func (s *SchedulerStatus) LastError() *string {
	if s.s.LastError == "" {
		return nil
	}
	return &s.s.LastError
}
