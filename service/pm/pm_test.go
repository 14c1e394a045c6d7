package pm

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	"cmms.GO/model/dbtest"
	assetEntity "cmms.GO/model/entity/asset"
	pmEntity "cmms.GO/model/entity/pm"
	woEntity "cmms.GO/model/entity/workorder"
	schedRepo "cmms.GO/model/repository/scheduler"
	woRepo "cmms.GO/model/repository/workorder"
	"cmms.GO/service/workorder"
)

const org = uint(1)

type env struct {
	db  *gorm.DB
	wo  *workorder.Service
	pm  *Service
	rec *signal.Recorder
	now time.Time
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func newEnv(t *testing.T, opts Options, now time.Time) *env {
	t.Helper()
	db := dbtest.Open(t)
	rec := signal.NewRecorder(0)
	e := &env{db: db, rec: rec, now: now}
	e.wo = workorder.NewService(db, rec, zap.NewNop(), workorder.Options{})
	e.wo.SetClock(func() time.Time { return e.now })
	e.pm = NewService(db, e.wo, rec, zap.NewNop(), opts)
	e.pm.SetClock(func() time.Time { return e.now })
	return e
}

func (e *env) create(t *testing.T, in DefinitionInput) *pmEntity.Definition {
	t.Helper()
	d, err := e.pm.Create(context.Background(), org, in)
	if err != nil {
		t.Fatalf("create pm: %v", err)
	}
	return d
}

func (e *env) reload(t *testing.T, id uint) *pmEntity.Definition {
	t.Helper()
	d, err := e.pm.Get(context.Background(), org, id)
	if err != nil {
		t.Fatalf("get pm: %v", err)
	}
	return d
}

func (e *env) run(t *testing.T) int {
	t.Helper()
	res, err := e.pm.RunDue(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Failed != 0 {
		t.Fatalf("failed items: %+v", res)
	}
	return res.Generated
}

func (e *env) openFor(t *testing.T, pmID uint) []woEntity.WorkOrder {
	t.Helper()
	list, _, err := e.wo.List(context.Background(), org, woRepo.ListFilter{PMID: &pmID, Status: woEntity.OpenStatuses})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return list
}

func (e *env) finish(t *testing.T, woID uint) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.wo.Transition(ctx, org, woID, woEntity.StatusInProgress, workorder.TransitionInput{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.wo.Transition(ctx, org, woID, woEntity.StatusCompleted, workorder.TransitionInput{CompletionNotes: "ok"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func fixed30() DefinitionInput {
	return DefinitionInput{
		Name:           "Monthly lube",
		TriggerType:    pmEntity.TriggerTime,
		ScheduleType:   pmEntity.ScheduleFixed,
		FrequencyValue: 30,
		FrequencyUnit:  pmEntity.UnitDays,
		LeadTimeDays:   7,
		NextDueDate:    ptr(day(2024, 1, 1)),
	}
}

func TestFixedScheduleGeneratesWithinLeadTime(t *testing.T) {
	e := newEnv(t, Options{}, day(2023, 12, 24))
	d := e.create(t, fixed30())
	if d.PMNumber != "PM-000001" {
		t.Errorf("pm number = %s", d.PMNumber)
	}

	if n := e.run(t); n != 0 {
		t.Fatalf("generated %d before the lead window opened", n)
	}

	e.now = day(2023, 12, 26)
	if n := e.run(t); n != 1 {
		t.Fatalf("generated = %d, want 1", n)
	}
	got := e.reload(t, d.ID)
	if !got.NextDueDate.Equal(day(2024, 1, 31)) {
		t.Errorf("next due = %v, want 2024-01-31", got.NextDueDate)
	}
	if got.LastWOID == nil {
		t.Fatal("last_wo_id not set")
	}
	open := e.openFor(t, d.ID)
	if len(open) != 1 {
		t.Fatalf("open work orders = %d", len(open))
	}
	wo := open[0]
	if wo.Status != woEntity.StatusApproved || wo.WorkType != woEntity.TypePreventive {
		t.Errorf("work order = %s / %s", wo.Status, wo.WorkType)
	}
	if wo.DueDate == nil || !wo.DueDate.Equal(day(2024, 1, 1)) {
		t.Errorf("due date = %v", wo.DueDate)
	}
}

func TestAtMostOneOpenWorkOrder(t *testing.T) {
	e := newEnv(t, Options{}, day(2024, 1, 10))
	in := fixed30()
	in.FrequencyValue, in.FrequencyUnit = 1, pmEntity.UnitMonths
	in.NextDueDate = ptr(day(2023, 10, 1))
	d := e.create(t, in)

	if n := e.run(t); n != 1 {
		t.Fatalf("first run generated %d", n)
	}
	// next due 2023-11-01 is still in the past, but a work order is open
	if n := e.run(t); n != 0 {
		t.Fatalf("second run generated %d", n)
	}
	if _, err := e.pm.GenerateNow(context.Background(), org, d.ID); err == nil {
		t.Fatal("manual generation with an open work order should fail")
	}
	open := e.openFor(t, d.ID)
	if len(open) != 1 {
		t.Fatalf("open work orders = %d", len(open))
	}

	e.finish(t, open[0].ID)
	if n := e.run(t); n != 1 {
		t.Fatalf("after completion generated %d, want 1", n)
	}
	if got := e.reload(t, d.ID); !got.NextDueDate.Equal(day(2023, 12, 1)) {
		t.Errorf("next due = %v, want 2023-12-01", got.NextDueDate)
	}
}

func TestFloatingScheduleReanchorsAtCompletion(t *testing.T) {
	e := newEnv(t, Options{}, day(2024, 1, 1))
	in := fixed30()
	in.ScheduleType = pmEntity.ScheduleFloating
	in.FrequencyValue = 14
	in.LeadTimeDays = 0
	d := e.create(t, in)

	if n := e.run(t); n != 1 {
		t.Fatalf("generated = %d", n)
	}
	if got := e.reload(t, d.ID); !got.NextDueDate.Equal(day(2024, 1, 15)) {
		t.Errorf("provisional next due = %v, want 2024-01-15", got.NextDueDate)
	}

	e.now = time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC)
	e.finish(t, e.openFor(t, d.ID)[0].ID)
	if got := e.reload(t, d.ID); !got.NextDueDate.Equal(day(2024, 1, 19)) {
		t.Errorf("next due after completion = %v, want 2024-01-19", got.NextDueDate)
	}
}

func TestMeterTriggerResetsBaseline(t *testing.T) {
	for _, policy := range []string{BaselineOnGeneration, BaselineOnCompletion} {
		t.Run(policy, func(t *testing.T) {
			e := newEnv(t, Options{BaselineReset: policy}, day(2024, 2, 1))
			pump := &assetEntity.Asset{OrganizationID: org, AssetNum: "P-1", Name: "Pump", Status: assetEntity.StatusOperating, Criticality: assetEntity.CriticalityLow}
			e.db.Create(pump)
			e.db.Create(&assetEntity.AssetMeter{OrganizationID: org, AssetID: pump.ID, Name: "hours", Reading: 480, ReadAt: e.now})

			d := e.create(t, DefinitionInput{
				Name:          "500h service",
				AssetID:       &pump.ID,
				TriggerType:   pmEntity.TriggerMeter,
				MeterName:     "hours",
				MeterInterval: 500,
			})
			if d.NextDueDate != nil {
				t.Errorf("meter-only pm should have no due date")
			}
			if n := e.run(t); n != 0 {
				t.Fatalf("generated at 480 hours")
			}
			e.db.Model(&assetEntity.AssetMeter{}).Where("asset_id = ?", pump.ID).Update("reading", 510)
			if n := e.run(t); n != 1 {
				t.Fatalf("generated = %d at 510 hours", n)
			}

			got := e.reload(t, d.ID)
			if policy == BaselineOnGeneration {
				if got.LastMeterReading == nil || *got.LastMeterReading != 510 || *got.NextMeterReading != 1010 {
					t.Errorf("baseline = %v / %v", got.LastMeterReading, got.NextMeterReading)
				}
				return
			}
			if got.LastMeterReading != nil {
				t.Errorf("baseline moved at generation under completion policy")
			}
			e.db.Model(&assetEntity.AssetMeter{}).Where("asset_id = ?", pump.ID).Update("reading", 530)
			e.finish(t, e.openFor(t, d.ID)[0].ID)
			got = e.reload(t, d.ID)
			if got.LastMeterReading == nil || *got.LastMeterReading != 530 || *got.NextMeterReading != 1030 {
				t.Errorf("baseline after completion = %v / %v", got.LastMeterReading, got.NextMeterReading)
			}
		})
	}
}

func TestPausedOrganizationAndInterruptedScan(t *testing.T) {
	e := newEnv(t, Options{}, day(2024, 1, 1))
	d := e.create(t, fixed30())

	ctl := schedRepo.NewControlRepository(e.db)
	if err := ctl.SetPaused(org, schedRepo.KindPM, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	res, err := e.pm.RunDue(context.Background(), nil)
	if err != nil || res.Scanned != 0 {
		t.Fatalf("paused org scanned: %+v %v", res, err)
	}

	ctl.SetPaused(org, schedRepo.KindPM, false)
	res, _ = e.pm.RunDue(context.Background(), func() bool { return true })
	if !res.Interrupted || res.Generated != 0 {
		t.Fatalf("paused loop: %+v", res)
	}
	if got := e.reload(t, d.ID); !got.NextDueDate.Equal(day(2024, 1, 1)) {
		t.Errorf("pause moved the due date to %v", got.NextDueDate)
	}

	if n := e.run(t); n != 1 {
		t.Errorf("after resume generated %d", n)
	}
}

func TestSeasonalWindow(t *testing.T) {
	e := newEnv(t, Options{}, day(2024, 7, 1))
	in := fixed30()
	in.NextDueDate = ptr(day(2024, 7, 1))
	in.SeasonalStartMonth, in.SeasonalEndMonth = ptr(11), ptr(3)
	e.create(t, in)
	if n := e.run(t); n != 0 {
		t.Errorf("generated outside the season")
	}
}

func TestDueSignals(t *testing.T) {
	e := newEnv(t, Options{}, day(2024, 3, 10))
	in := fixed30()
	in.NextDueDate = ptr(day(2024, 3, 14))
	in.LeadTimeDays = 0
	in.WarningDays = 5
	e.create(t, in)

	e.run(t)
	if len(e.rec.OfKind(signal.PMDueSoon)) != 1 {
		t.Errorf("due soon signal missing")
	}

	e.now = day(2024, 3, 20)
	e.run(t)
	// generation advanced it; nothing is overdue
	if n := len(e.rec.OfKind(signal.PMOverdue)); n != 0 {
		t.Errorf("overdue signals = %d", n)
	}
}

func TestValidation(t *testing.T) {
	e := newEnv(t, Options{}, day(2024, 1, 1))
	cases := []DefinitionInput{
		{TriggerType: pmEntity.TriggerTime, FrequencyValue: 1, FrequencyUnit: pmEntity.UnitDays},
		{Name: "x", TriggerType: pmEntity.TriggerTime, FrequencyUnit: pmEntity.UnitDays},
		{Name: "x", TriggerType: pmEntity.TriggerTime, FrequencyValue: 1, FrequencyUnit: "FORTNIGHTS"},
		{Name: "x", TriggerType: pmEntity.TriggerMeter, MeterName: "hours", MeterInterval: 10},
		{Name: "x", TriggerType: pmEntity.TriggerCondition, AssetID: ptr(uint(1)), MeterName: "temp", ConditionOperator: "~"},
		{Name: "x", TriggerType: pmEntity.TriggerTime, FrequencyValue: 1, FrequencyUnit: pmEntity.UnitDays, SeasonalStartMonth: ptr(13), SeasonalEndMonth: ptr(2)},
	}
	for i, in := range cases {
		_, err := e.pm.Create(context.Background(), org, in)
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("case %d: want ValidationError, got %v", i, err)
		}
	}
}

func TestGenerateNowKeepsCallerAndUsesPMStatus(t *testing.T) {
	e := newEnv(t, Options{}, day(2023, 11, 1))
	e.wo = workorder.NewService(e.db, e.rec, zap.NewNop(), workorder.Options{RequireApproval: true})
	e.wo.SetClock(func() time.Time { return e.now })
	e.pm = NewService(e.db, e.wo, e.rec, zap.NewNop(), Options{})
	e.pm.SetClock(func() time.Time { return e.now })
	d := e.create(t, fixed30())

	operator := actor.With(context.Background(), actor.Actor{OrganizationID: org})
	wo, err := e.pm.GenerateNow(operator, org, d.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if wo.Status != woEntity.StatusApproved {
		t.Errorf("status = %s, want APPROVED", wo.Status)
	}

	// the same caller may not create an APPROVED order by hand
	_, err = e.wo.Create(operator, org, workorder.CreateInput{Title: "Ad hoc", Status: woEntity.StatusApproved})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("manual APPROVED create: want ValidationError, got %v", err)
	}
}
