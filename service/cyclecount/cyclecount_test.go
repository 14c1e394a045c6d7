package cyclecount

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	"cmms.GO/model/dbtest"
	ccEntity "cmms.GO/model/entity/cyclecount"
	invEntity "cmms.GO/model/entity/inventory"
	woEntity "cmms.GO/model/entity/workorder"
	schedRepo "cmms.GO/model/repository/scheduler"
	"cmms.GO/service/inventory"
)

const org = uint(1)

type env struct {
	db   *gorm.DB
	inv  *inventory.Service
	cc   *Service
	rec  *signal.Recorder
	room *invEntity.Storeroom
	now  time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)
	rec := signal.NewRecorder(0)
	e := &env{db: db, rec: rec, now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return e.now }
	e.inv = inventory.NewService(db, rec, zap.NewNop(), inventory.Options{})
	e.inv.SetClock(clock)
	e.cc = NewService(db, e.inv, rec, zap.NewNop(), Options{})
	e.cc.SetClock(clock)

	e.room = &invEntity.Storeroom{OrganizationID: org, Code: "MAIN", Name: "Main", IsDefault: true}
	if err := e.inv.CreateStoreroom(context.Background(), e.room); err != nil {
		t.Fatalf("create storeroom: %v", err)
	}
	return e
}

// part creates a part stocked in the main storeroom. A negative quantity
// leaves the row without any movement.
func (e *env) part(t *testing.T, number, bin string, quantity float64) *invEntity.Part {
	t.Helper()
	ctx := context.Background()
	p := &invEntity.Part{OrganizationID: org, PartNumber: number, Name: number, UnitCost: decimal.NewFromInt(4)}
	if err := e.inv.CreatePart(ctx, p); err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := e.inv.UpsertStockLevel(ctx, org, p.ID, e.room.ID, inventory.StockSettings{BinLocation: bin}); err != nil {
		t.Fatalf("stock level: %v", err)
	}
	if quantity >= 0 {
		if _, err := e.inv.Seed(ctx, org, p.ID, e.room.ID, quantity); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return p
}

func (e *env) balance(t *testing.T, p *invEntity.Part) float64 {
	t.Helper()
	sl, err := e.inv.StockLevel(context.Background(), org, p.ID, e.room.ID)
	if err != nil {
		t.Fatalf("stock level: %v", err)
	}
	return sl.CurrentBalance
}

func (e *env) usage(t *testing.T, p *invEntity.Part, kind woEntity.MaterialType, daysAgo int) {
	t.Helper()
	mt := woEntity.MaterialTransaction{
		OrganizationID:  org,
		WorkOrderID:     1,
		PartID:          p.ID,
		StoreroomID:     e.room.ID,
		TransactionType: kind,
		Quantity:        1,
		CreatedAt:       e.now.AddDate(0, 0, -daysAgo),
	}
	if err := e.db.Create(&mt).Error; err != nil {
		t.Fatalf("material transaction: %v", err)
	}
}

func partNumbers(d *Detail) []string {
	out := make([]string, 0, len(d.Lines))
	for _, l := range d.Lines {
		out = append(out, l.PartNumber)
	}
	return out
}

func TestCountLifecycle_SnapshotPartialComplete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bolt := e.part(t, "BOLT-M8", "A-01", 10)
	nut := e.part(t, "NUT-M8", "B-01", 5)

	d, err := e.cc.CreateCycleCount(ctx, org, Filters{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.CountNumber != "CC-000001" || d.Status != ccEntity.StatusPlanned || d.TotalLines != 2 {
		t.Fatalf("unexpected session: %+v", d.Session)
	}
	if d.Lines[0].PartID != bolt.ID || d.Lines[0].ExpectedQuantity != 10 {
		t.Fatalf("first line: %+v", d.Lines[0])
	}

	// stock moves after the snapshot
	if _, err := e.inv.Adjust(ctx, inventory.Adjustment{OrganizationID: org, PartID: bolt.ID, StoreroomID: e.room.ID, Delta: -3}); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	d, err = e.cc.RecordCycleCount(ctx, org, d.ID, []LineCount{{LineID: d.Lines[0].ID, CountedQuantity: 8}})
	if err != nil {
		t.Fatalf("record first line: %v", err)
	}
	if d.Status != ccEntity.StatusInProgress || d.CountedLines != 1 || d.StartedAt == nil {
		t.Fatalf("after partial count: %+v", d.Session)
	}
	if got := *d.Lines[0].Variance; got != -2 {
		t.Errorf("variance = %v, want -2 against the frozen expectation", got)
	}
	if got := e.balance(t, bolt); got != 7 {
		t.Errorf("balance before completion = %v, want 7", got)
	}

	d, err = e.cc.RecordCycleCount(ctx, org, d.ID, []LineCount{{LineID: d.Lines[1].ID, CountedQuantity: 6, Notes: "found a bag"}})
	if err != nil {
		t.Fatalf("record second line: %v", err)
	}
	if d.Status != ccEntity.StatusCompleted || d.CompletedAt == nil {
		t.Fatalf("session not completed: %+v", d.Session)
	}
	if got := e.balance(t, bolt); got != 8 {
		t.Errorf("bolt balance = %v, want 8", got)
	}
	if got := e.balance(t, nut); got != 6 {
		t.Errorf("nut balance = %v, want 6", got)
	}

	txs, err := e.inv.Transactions(ctx, org, bolt.ID, 10)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	var found bool
	for _, pt := range txs {
		if pt.TransactionType == invEntity.TxCycleCount {
			found = true
			if pt.Quantity != 1 || pt.CycleCountID == nil || *pt.CycleCountID != d.ID {
				t.Errorf("cycle count journal row: %+v", pt)
			}
		}
	}
	if !found {
		t.Error("no CYCLE_COUNT journal row for bolt")
	}
	if n := len(e.rec.OfKind(signal.CycleCountClosed)); n != 1 {
		t.Errorf("completion signals = %d, want 1", n)
	}

	_, err = e.cc.RecordCycleCount(ctx, org, d.ID, []LineCount{{LineID: d.Lines[0].ID, CountedQuantity: 1}})
	var it *apperr.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("recording a completed count: got %v", err)
	}
}

func TestRecordCycleCount_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.part(t, "BOLT-M8", "A-01", 10)
	d, err := e.cc.CreateCycleCount(ctx, org, Filters{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var ve *apperr.ValidationError
	if _, err := e.cc.RecordCycleCount(ctx, org, d.ID, []LineCount{{LineID: 999, CountedQuantity: 1}}); !errors.As(err, &ve) {
		t.Errorf("unknown line: got %v", err)
	}
	if _, err := e.cc.RecordCycleCount(ctx, org, d.ID, []LineCount{{LineID: d.Lines[0].ID, CountedQuantity: -1}}); !errors.As(err, &ve) {
		t.Errorf("negative count: got %v", err)
	}
	if _, err := e.cc.RecordCycleCount(ctx, org, d.ID, nil); !errors.As(err, &ve) {
		t.Errorf("empty batch: got %v", err)
	}
	got, err := e.cc.Get(ctx, org, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ccEntity.StatusPlanned || got.Lines[0].CountedQuantity != nil {
		t.Errorf("rejected counts changed the session: %+v", got.Session)
	}
}

func TestCancelCycleCount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bolt := e.part(t, "BOLT-M8", "A-01", 10)
	d, err := e.cc.CreateCycleCount(ctx, org, Filters{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// a single-line count completes on its first recording
	if _, err := e.cc.RecordCycleCount(ctx, org, d.ID, []LineCount{{LineID: d.Lines[0].ID, CountedQuantity: 4}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	d, err = e.cc.CreateCycleCount(ctx, org, Filters{})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := e.inv.Adjust(ctx, inventory.Adjustment{OrganizationID: org, PartID: bolt.ID, StoreroomID: e.room.ID, Delta: 1}); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	sess, err := e.cc.CancelCycleCount(ctx, org, d.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if sess.Status != ccEntity.StatusCancelled {
		t.Errorf("status = %s", sess.Status)
	}
	var it *apperr.InvalidTransitionError
	if _, err := e.cc.CancelCycleCount(ctx, org, d.ID); !errors.As(err, &it) {
		t.Errorf("cancel twice: got %v", err)
	}
	if got := e.balance(t, bolt); got != 5 {
		t.Errorf("balance = %v, want 5: cancelled counts post nothing", got)
	}
}

func TestCreateCycleCount_Filters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.part(t, "BOLT-M8", "A-01", 10)
	e.part(t, "BOLT-M10", "A-02", 3)
	e.part(t, "NUT-M8", "B-01", 5)
	e.part(t, "WASHER", "A-03", -1)

	d, err := e.cc.CreateCycleCount(ctx, org, Filters{BinPrefix: "A-"})
	if err != nil {
		t.Fatalf("bin prefix: %v", err)
	}
	if got := partNumbers(d); len(got) != 2 || got[0] != "BOLT-M8" || got[1] != "BOLT-M10" {
		t.Errorf("bin prefix lines = %v", got)
	}

	d, err = e.cc.CreateCycleCount(ctx, org, Filters{BinPrefix: "A-", IncludeZeroMovement: true})
	if err != nil {
		t.Fatalf("zero movement: %v", err)
	}
	if got := partNumbers(d); len(got) != 3 || got[2] != "WASHER" {
		t.Errorf("zero movement lines = %v", got)
	}

	d, err = e.cc.CreateCycleCount(ctx, org, Filters{LineLimit: 1})
	if err != nil {
		t.Fatalf("line limit: %v", err)
	}
	if d.TotalLines != 1 {
		t.Errorf("line limit: %d lines", d.TotalLines)
	}

	var ve *apperr.ValidationError
	if _, err := e.cc.CreateCycleCount(ctx, org, Filters{BinPrefix: "Z-"}); !errors.As(err, &ve) {
		t.Errorf("no match: got %v", err)
	}
}

func TestCreateCycleCount_UsageWindow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	issued := e.part(t, "BOLT-M8", "A-01", 10)
	returned := e.part(t, "NUT-M8", "A-02", 5)
	stale := e.part(t, "WASHER", "A-03", 7)
	e.usage(t, issued, woEntity.MaterialIssue, 3)
	e.usage(t, returned, woEntity.MaterialReturn, 2)
	e.usage(t, stale, woEntity.MaterialIssue, 20)

	d, err := e.cc.CreateCycleCount(ctx, org, Filters{UsedInLastDays: 7})
	if err != nil {
		t.Fatalf("used in last days: %v", err)
	}
	if got := partNumbers(d); len(got) != 2 || got[0] != "BOLT-M8" || got[1] != "NUT-M8" {
		t.Errorf("usage window lines = %v", got)
	}

	d, err = e.cc.CreateCycleCount(ctx, org, Filters{UsedInLastDays: 7, TransactedOnly: true})
	if err != nil {
		t.Fatalf("transacted only: %v", err)
	}
	if got := partNumbers(d); len(got) != 1 || got[0] != "BOLT-M8" {
		t.Errorf("transacted only lines = %v", got)
	}

	from := e.now.AddDate(0, 0, -30)
	to := e.now.AddDate(0, 0, -10)
	d, err = e.cc.CreateCycleCount(ctx, org, Filters{UsageStartDate: &from, UsageEndDate: &to})
	if err != nil {
		t.Fatalf("explicit window: %v", err)
	}
	if got := partNumbers(d); len(got) != 1 || got[0] != "WASHER" {
		t.Errorf("explicit window lines = %v", got)
	}
}

func TestRunDue_AdvancesPlans(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.part(t, "BOLT-M8", "A-01", 10)

	weekly, err := e.cc.CreatePlan(ctx, org, PlanInput{Name: "Bolts", FrequencyValue: 7, FrequencyUnit: ccEntity.UnitDays})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	empty, err := e.cc.CreatePlan(ctx, org, PlanInput{Name: "Nothing", Filters: Filters{BinPrefix: "Z-"}, FrequencyValue: 1, FrequencyUnit: ccEntity.UnitMonths})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	res, err := e.cc.RunDue(ctx, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Generated != 1 || res.Skipped != 1 || res.Failed != 0 {
		t.Fatalf("first run: %+v", res)
	}
	p, _ := e.cc.GetPlan(ctx, org, weekly.ID)
	if p.NextRunDate == nil || !p.NextRunDate.Equal(time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("weekly next run = %v", p.NextRunDate)
	}
	p, _ = e.cc.GetPlan(ctx, org, empty.ID)
	if p.NextRunDate == nil || !p.NextRunDate.Equal(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("empty plan next run = %v, want advanced", p.NextRunDate)
	}

	if res, _ := e.cc.RunDue(ctx, nil); res.Scanned != 0 {
		t.Errorf("same-day rerun scanned %d plans", res.Scanned)
	}

	e.now = e.now.AddDate(0, 0, 7)
	if res, _ := e.cc.RunDue(ctx, nil); res.Generated != 1 {
		t.Errorf("a week later: %+v", res)
	}
	sessions, err := e.cc.List(ctx, org, nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 || sessions[0].PlanID == nil || *sessions[0].PlanID != weekly.ID {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestRunDue_PausedOrganization(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.part(t, "BOLT-M8", "A-01", 10)
	if _, err := e.cc.CreatePlan(ctx, org, PlanInput{Name: "Bolts", FrequencyValue: 1, FrequencyUnit: ccEntity.UnitWeeks}); err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if err := schedRepo.NewControlRepository(e.db).SetPaused(org, schedRepo.KindCycleCount, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	res, err := e.cc.RunDue(ctx, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Scanned != 0 {
		t.Errorf("paused organization scanned: %+v", res)
	}

	res, _ = e.cc.RunDue(ctx, func() bool { return true })
	if res.Scanned != 0 {
		t.Errorf("paused loop scanned: %+v", res)
	}
}

func TestEnsureDefaultPlans_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	plans, err := e.cc.EnsureDefaultPlans(ctx, org)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("created %d plans, want 2", len(plans))
	}
	for _, p := range plans {
		if !p.TransactedOnly || p.StoreroomID == nil || *p.StoreroomID != e.room.ID {
			t.Errorf("default plan: %+v", p)
		}
	}
	again, err := e.cc.EnsureDefaultPlans(ctx, org)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second call created %d plans", len(again))
	}
	if none, err := e.cc.EnsureDefaultPlans(ctx, 2); err != nil || len(none) != 0 {
		t.Errorf("organization without storeroom: %v %v", none, err)
	}
}

func TestCreatePlan_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cases := []PlanInput{
		{FrequencyValue: 7, FrequencyUnit: ccEntity.UnitDays},
		{Name: "x", FrequencyValue: 0, FrequencyUnit: ccEntity.UnitDays},
		{Name: "x", FrequencyValue: 1, FrequencyUnit: "HOURS"},
		{Name: "x", FrequencyValue: 1, FrequencyUnit: ccEntity.UnitDays, Filters: Filters{LineLimit: -1}},
	}
	for i, in := range cases {
		var ve *apperr.ValidationError
		if _, err := e.cc.CreatePlan(ctx, org, in); !errors.As(err, &ve) {
			t.Errorf("case %d: got %v", i, err)
		}
	}
}
