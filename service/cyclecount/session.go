package cyclecount

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	ccEntity "cmms.GO/model/entity/cyclecount"
	invEntity "cmms.GO/model/entity/inventory"
	ccRepo "cmms.GO/model/repository/cyclecount"
	"cmms.GO/model/repository/sequence"
	"cmms.GO/service/inventory"
)

var errNoStock = &apperr.ValidationError{Field: "filters", Message: "no stock rows match the count filters"}

// Filters select the stock rows a session counts.
type Filters struct {
	Name                string     `json:"name,omitempty"`
	StoreroomID         *uint      `json:"storeroom_id,omitempty"`
	CategoryIDs         []uint     `json:"category_ids,omitempty"`
	BinPrefix           string     `json:"bin_prefix,omitempty"`
	PartType            string     `json:"part_type,omitempty"`
	UsedInLastDays      int        `json:"used_in_last_days,omitempty"`
	UsageStartDate      *time.Time `json:"usage_start_date,omitempty"`
	UsageEndDate        *time.Time `json:"usage_end_date,omitempty"`
	TransactedOnly      bool       `json:"transacted_only,omitempty"`
	IncludeZeroMovement bool       `json:"include_zero_movement,omitempty"`
	LineLimit           int        `json:"line_limit,omitempty"`
	ScheduledDate       *time.Time `json:"scheduled_date,omitempty"`
}

func (f Filters) validate() error {
	if f.UsedInLastDays < 0 {
		return apperr.Validation("used_in_last_days", "must not be negative")
	}
	if f.LineLimit < 0 {
		return apperr.Validation("line_limit", "must not be negative")
	}
	if f.UsageStartDate != nil && f.UsageEndDate != nil && f.UsageEndDate.Before(*f.UsageStartDate) {
		return apperr.Validation("usage_end_date", "must not be before usage_start_date")
	}
	return nil
}

// stock resolves relative usage windows against today. An explicit start
// date wins over used_in_last_days; the end date is inclusive.
func (f Filters) stock(today time.Time) ccRepo.StockFilter {
	sf := ccRepo.StockFilter{
		StoreroomID:         f.StoreroomID,
		CategoryIDs:         f.CategoryIDs,
		BinPrefix:           f.BinPrefix,
		PartType:            f.PartType,
		TransactedOnly:      f.TransactedOnly,
		IncludeZeroMovement: f.IncludeZeroMovement,
		LineLimit:           f.LineLimit,
	}
	switch {
	case f.UsageStartDate != nil:
		from := f.UsageStartDate.UTC()
		sf.UsageFrom = &from
	case f.UsedInLastDays > 0:
		from := today.AddDate(0, 0, -f.UsedInLastDays).UTC()
		sf.UsageFrom = &from
	}
	if f.UsageEndDate != nil {
		to := f.UsageEndDate.AddDate(0, 0, 1).UTC()
		sf.UsageTo = &to
	}
	return sf
}

type Detail struct {
	*ccEntity.Session
	Lines []ccEntity.Line `json:"lines"`
}

// LineCount is one recorded count.
type LineCount struct {
	LineID          uint    `json:"line_id"`
	CountedQuantity float64 `json:"counted_quantity"`
	Notes           string  `json:"notes,omitempty"`
}

// CreateCycleCount snapshots the matching stock rows. Expected quantities
// are frozen here and never recomputed.
func (s *Service) CreateCycleCount(ctx context.Context, orgID uint, f Filters) (*Detail, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	var out *Detail
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		d, err := s.createTx(ctx, tx, orgID, f, nil)
		out = d
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("cycle count created",
		zap.Uint("organization_id", orgID),
		zap.String("count_number", out.CountNumber),
		zap.Int("lines", out.TotalLines))
	return out, nil
}

func (s *Service) createTx(ctx context.Context, tx *gorm.DB, orgID uint, f Filters, planID *uint) (*Detail, error) {
	today := s.today()
	repo := ccRepo.NewCycleCountRepository(tx)
	cands, err := repo.SelectStock(orgID, f.stock(today))
	if err != nil {
		return nil, fmt.Errorf("select stock: %w", err)
	}
	if len(cands) == 0 {
		return nil, errNoStock
	}
	number, err := sequence.NextNumber(tx, orgID, sequence.CycleCount)
	if err != nil {
		return nil, err
	}
	scheduled := today
	if f.ScheduledDate != nil {
		scheduled = *f.ScheduledDate
	}
	name := f.Name
	if name == "" {
		name = "Cycle count " + number
	}
	sess := &ccEntity.Session{
		OrganizationID: orgID,
		CountNumber:    number,
		Name:           name,
		PlanID:         planID,
		StoreroomID:    f.StoreroomID,
		Status:         ccEntity.StatusPlanned,
		ScheduledDate:  scheduled,
		TotalLines:     len(cands),
		CreatedBy:      actor.UserID(ctx),
		Version:        1,
	}
	if err := tx.Create(sess).Error; err != nil {
		return nil, err
	}
	lines := make([]ccEntity.Line, 0, len(cands))
	for _, c := range cands {
		lines = append(lines, ccEntity.Line{
			OrganizationID:   orgID,
			CycleCountID:     sess.ID,
			PartID:           c.PartID,
			StoreroomID:      c.StoreroomID,
			StockLevelID:     c.StockLevelID,
			PartNumber:       c.PartNumber,
			BinLocation:      c.BinLocation,
			ExpectedQuantity: c.CurrentBalance,
		})
	}
	if err := tx.CreateInBatches(&lines, 200).Error; err != nil {
		return nil, err
	}
	return &Detail{Session: sess, Lines: lines}, nil
}

// RecordCycleCount stores counts for one or more lines. Lines may be
// recounted until the session completes, which happens on the call that
// fills the last line.
func (s *Service) RecordCycleCount(ctx context.Context, orgID, sessionID uint, counts []LineCount) (*Detail, error) {
	if len(counts) == 0 {
		return nil, apperr.Validation("lines", "at least one count is required")
	}
	for _, c := range counts {
		if c.CountedQuantity < 0 {
			return nil, apperr.Validation("counted_quantity", "line %d: must not be negative", c.LineID)
		}
	}

	var out *Detail
	err := s.run(ctx, func(tx *gorm.DB, buf *signal.Buffer) error {
		repo := ccRepo.NewCycleCountRepository(tx)
		sess, err := repo.LockSession(orgID, sessionID)
		if err != nil {
			return err
		}
		if sess.Status.IsTerminal() {
			return &apperr.InvalidTransitionError{
				Entity: "cycle count " + sess.CountNumber,
				From:   string(sess.Status), To: string(ccEntity.StatusInProgress),
				Reason: "counts can no longer be recorded",
			}
		}
		lines, err := repo.Lines(sess.ID)
		if err != nil {
			return err
		}
		byID := make(map[uint]int, len(lines))
		for i := range lines {
			byID[lines[i].ID] = i
		}

		now := s.now().UTC()
		user := actor.UserID(ctx)
		for _, c := range counts {
			i, ok := byID[c.LineID]
			if !ok {
				return apperr.Validation("line_id", "line %d is not part of cycle count %s", c.LineID, sess.CountNumber)
			}
			l := &lines[i]
			counted := c.CountedQuantity
			variance := counted - l.ExpectedQuantity
			fields := map[string]interface{}{
				"counted_quantity": counted,
				"variance":         variance,
				"counted_by":       user,
				"counted_at":       now,
			}
			if c.Notes != "" {
				fields["notes"] = c.Notes
				l.Notes = c.Notes
			}
			if err := tx.Model(&ccEntity.Line{}).Where("id = ?", l.ID).Updates(fields).Error; err != nil {
				return err
			}
			l.CountedQuantity, l.Variance, l.CountedBy, l.CountedAt = &counted, &variance, user, &now
		}

		done := 0
		for _, l := range lines {
			if l.CountedQuantity != nil {
				done++
			}
		}
		fields := map[string]interface{}{"counted_lines": done}
		if sess.Status == ccEntity.StatusPlanned {
			fields["status"] = ccEntity.StatusInProgress
			fields["started_at"] = now
			sess.Status, sess.StartedAt = ccEntity.StatusInProgress, &now
		}
		if done == len(lines) {
			if err := s.reconcile(ctx, tx, sess, lines, buf); err != nil {
				return err
			}
			fields["status"] = ccEntity.StatusCompleted
			fields["completed_at"] = now
			sess.Status, sess.CompletedAt = ccEntity.StatusCompleted, &now
		}
		if err := repo.UpdateSession(sess, fields); err != nil {
			return err
		}
		sess.CountedLines = done
		out = &Detail{Session: sess, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Status == ccEntity.StatusCompleted {
		s.log.Info("cycle count completed",
			zap.Uint("organization_id", orgID),
			zap.String("count_number", out.CountNumber))
	}
	return out, nil
}

// reconcile posts a CYCLE_COUNT movement per line so that the balance
// equals the counted quantity. The delta is taken against the live balance,
// so movements made during the count are overwritten by the count.
func (s *Service) reconcile(ctx context.Context, tx *gorm.DB, sess *ccEntity.Session, lines []ccEntity.Line, buf *signal.Buffer) error {
	adjusted := 0
	for _, l := range lines {
		_, err := s.inv.AdjustTx(ctx, tx, inventory.Adjustment{
			OrganizationID: sess.OrganizationID,
			PartID:         l.PartID,
			StoreroomID:    l.StoreroomID,
			Target:         l.CountedQuantity,
			Type:           invEntity.TxCycleCount,
			CycleCountID:   &sess.ID,
			CountedAt:      l.CountedAt,
			Notes:          sess.CountNumber,
		}, buf)
		if err != nil {
			return fmt.Errorf("line %d (%s): %w", l.ID, l.PartNumber, err)
		}
		if l.Variance != nil && *l.Variance != 0 {
			adjusted++
		}
	}
	buf.Add(signal.New(signal.CycleCountClosed, sess.OrganizationID, "cycle_count", sess.ID,
		fmt.Sprintf("cycle count %s completed", sess.CountNumber)).
		With("lines", len(lines)).
		With("variance_lines", adjusted))
	return nil
}

// CancelCycleCount abandons a session. Recorded counts are kept but never
// posted to the ledger.
func (s *Service) CancelCycleCount(ctx context.Context, orgID, sessionID uint) (*ccEntity.Session, error) {
	var out *ccEntity.Session
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		repo := ccRepo.NewCycleCountRepository(tx)
		sess, err := repo.LockSession(orgID, sessionID)
		if err != nil {
			return err
		}
		if sess.Status.IsTerminal() {
			return &apperr.InvalidTransitionError{
				Entity: "cycle count " + sess.CountNumber,
				From:   string(sess.Status), To: string(ccEntity.StatusCancelled),
			}
		}
		if err := repo.UpdateSession(sess, map[string]interface{}{"status": ccEntity.StatusCancelled}); err != nil {
			return err
		}
		sess.Status = ccEntity.StatusCancelled
		out = sess
		return nil
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, orgID, sessionID uint) (*Detail, error) {
	repo := ccRepo.NewCycleCountRepository(s.db.WithContext(ctx))
	sess, err := repo.FindSession(orgID, sessionID)
	if err != nil {
		return nil, err
	}
	lines, err := repo.Lines(sess.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{Session: sess, Lines: lines}, nil
}

func (s *Service) List(ctx context.Context, orgID uint, status []ccEntity.Status, limit int) ([]ccEntity.Session, error) {
	return ccRepo.NewCycleCountRepository(s.db.WithContext(ctx)).ListSessions(orgID, status, limit)
}
