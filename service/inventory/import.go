package inventory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	invEntity "cmms.GO/model/entity/inventory"
	invRepo "cmms.GO/model/repository/inventory"
)

// ImportOptions configures a parts import run.
type ImportOptions struct {
	BatchSize int
	// Storeroom is the code used for rows without a storeroom column value.
	// Empty means the organization's default storeroom.
	Storeroom string
}

// ImportResult holds counters and timing from an import run.
type ImportResult struct {
	TotalRows int
	Created   int
	Updated   int
	Skipped   int
	StockRows int
	Opening   int
	Warnings  []string
	TotalTime time.Duration
}

var importColumns = map[string]bool{
	"part_number": true, "name": true, "part_type": true, "unit_cost": true,
	"storeroom": true, "bin_location": true, "quantity": true,
	"reorder_point": true, "reorder_quantity": true, "min_level": true, "max_level": true,
}

var stockColumns = []string{"bin_location", "quantity", "reorder_point", "reorder_quantity", "min_level", "max_level"}

type importRow struct {
	line int
	cols map[string]string
}

func (r importRow) get(col string) (string, bool) {
	v, ok := r.cols[col]
	return v, ok && v != ""
}

func (r importRow) float(col string, warn func(string, ...interface{})) (float64, bool) {
	v, ok := r.get(col)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		warn("line %d: invalid %s %q", r.line, col, v)
		return 0, false
	}
	return f, true
}

// ImportParts reads a CSV of parts and stock settings. New part numbers are
// inserted in batches, existing ones updated. An opening quantity is only
// applied to stock rows that have never moved; balances otherwise change
// through the ledger.
func (s *Service) ImportParts(ctx context.Context, orgID uint, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, apperr.Validation("file", "read CSV header: %v", err)
	}
	res := &ImportResult{}
	warn := func(format string, args ...interface{}) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}
	hasPartNumber := false
	for i := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(headers[i]))
		if headers[i] == "part_number" {
			hasPartNumber = true
		}
		if !importColumns[headers[i]] {
			warn("column %q: unknown, skipping", headers[i])
		}
	}
	if !hasPartNumber {
		return nil, apperr.Validation("file", "CSV must contain a part_number column")
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperr.Validation("file", "read CSV rows: %v", err)
	}
	res.TotalRows = len(records)

	rows := make([]importRow, 0, len(records))
	var numbers []string
	for i, rec := range records {
		row := importRow{line: i + 2, cols: make(map[string]string, len(headers))}
		for ci, h := range headers {
			if ci < len(rec) {
				row.cols[h] = strings.TrimSpace(rec[ci])
			}
		}
		if _, ok := row.get("part_number"); !ok {
			res.Skipped++
			continue
		}
		rows = append(rows, row)
		numbers = append(numbers, row.cols["part_number"])
	}

	inv := invRepo.NewInventoryRepository(s.db.WithContext(ctx))
	ids, err := inv.PartIDsByNumber(orgID, numbers, opts.BatchSize)
	if err != nil {
		return nil, err
	}
	if err := s.importParts(ctx, orgID, rows, ids, opts, res, warn); err != nil {
		return nil, err
	}
	if err := s.importStock(ctx, orgID, rows, ids, opts, res, warn); err != nil {
		return nil, err
	}

	res.TotalTime = time.Since(start)
	s.log.Info("parts imported",
		zap.Uint("organization_id", orgID),
		zap.Int("rows", res.TotalRows),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("took", res.TotalTime))
	return res, nil
}

func partFromRow(orgID uint, row importRow, warn func(string, ...interface{})) (invEntity.Part, bool) {
	p := invEntity.Part{OrganizationID: orgID, PartNumber: row.cols["part_number"]}
	p.Name, _ = row.get("name")
	if p.Name == "" {
		p.Name = p.PartNumber
	}
	p.PartType, _ = row.get("part_type")
	if v, ok := row.get("unit_cost"); ok {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			warn("line %d: invalid unit_cost %q", row.line, v)
			return p, false
		}
		p.UnitCost, p.LastCost = d, d
	}
	return p, true
}

// importParts inserts new parts in batches and updates ids in place.
func (s *Service) importParts(ctx context.Context, orgID uint, rows []importRow, ids map[string]uint, opts ImportOptions, res *ImportResult, warn func(string, ...interface{})) error {
	var fresh []invEntity.Part
	seen := make(map[string]bool, len(rows))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			number := row.cols["part_number"]
			if seen[number] {
				warn("line %d: duplicate part_number %s, later rows only update stock", row.line, number)
				continue
			}
			seen[number] = true
			p, ok := partFromRow(orgID, row, warn)
			if !ok {
				res.Skipped++
				continue
			}
			id, exists := ids[number]
			if !exists {
				fresh = append(fresh, p)
				continue
			}
			fields := map[string]interface{}{}
			if v, ok := row.get("name"); ok {
				fields["name"] = v
			}
			if v, ok := row.get("part_type"); ok {
				fields["part_type"] = v
			}
			if _, ok := row.get("unit_cost"); ok {
				fields["unit_cost"] = p.UnitCost
			}
			if len(fields) > 0 {
				if err := tx.Model(&invEntity.Part{}).Where("id = ?", id).Updates(fields).Error; err != nil {
					return err
				}
			}
			res.Updated++
		}
		if len(fresh) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&fresh, opts.BatchSize).Error; err != nil {
			return err
		}
		for _, p := range fresh {
			ids[p.PartNumber] = p.ID
		}
		res.Created = len(fresh)
		return nil
	})
}

func (s *Service) importStock(ctx context.Context, orgID uint, rows []importRow, ids map[string]uint, opts ImportOptions, res *ImportResult, warn func(string, ...interface{})) error {
	rooms, err := invRepo.NewInventoryRepository(s.db.WithContext(ctx)).StoreroomsByCode(orgID)
	if err != nil {
		return err
	}
	fallback := opts.Storeroom
	if fallback == "" {
		for code, sr := range rooms {
			if sr.IsDefault {
				fallback = code
			}
		}
	}

	for _, row := range rows {
		partID, ok := ids[row.cols["part_number"]]
		if !ok || !hasAny(row, stockColumns) {
			continue
		}
		code, ok := row.get("storeroom")
		if !ok {
			code = fallback
		}
		sr, ok := rooms[code]
		if !ok {
			warn("line %d: unknown storeroom %q", row.line, code)
			continue
		}
		st := StockSettings{}
		st.BinLocation, _ = row.get("bin_location")
		st.ReorderPoint, _ = row.float("reorder_point", warn)
		st.ReorderQuantity, _ = row.float("reorder_quantity", warn)
		st.MinLevel, _ = row.float("min_level", warn)
		st.MaxLevel, _ = row.float("max_level", warn)
		sl, err := s.UpsertStockLevel(ctx, orgID, partID, sr.ID, st)
		if err != nil {
			return err
		}
		res.StockRows++

		qty, ok := row.float("quantity", warn)
		if !ok || qty == 0 {
			continue
		}
		if sl.CurrentBalance != 0 || sl.LastReceiptDate != nil || sl.LastIssueDate != nil {
			warn("line %d: quantity ignored for %s, stock has already moved", row.line, row.cols["part_number"])
			continue
		}
		if _, err := s.Seed(ctx, orgID, partID, sr.ID, qty); err != nil {
			return err
		}
		res.Opening++
	}
	return nil
}

func hasAny(row importRow, cols []string) bool {
	for _, c := range cols {
		if _, ok := row.get(c); ok {
			return true
		}
	}
	_, ok := row.get("storeroom")
	return ok
}
