package workorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	"cmms.GO/model/dbtest"
	assetEntity "cmms.GO/model/entity/asset"
	invEntity "cmms.GO/model/entity/inventory"
	pmEntity "cmms.GO/model/entity/pm"
	woEntity "cmms.GO/model/entity/workorder"
	"cmms.GO/service/inventory"
)

const org = uint(1)

var clock = time.Date(2024, 5, 6, 14, 30, 0, 0, time.UTC)

func newService(t *testing.T, opts Options) (*Service, *gorm.DB, *signal.Recorder) {
	t.Helper()
	db := dbtest.Open(t)
	rec := signal.NewRecorder(0)
	svc := NewService(db, rec, zap.NewNop(), opts)
	svc.SetClock(func() time.Time { return clock })
	return svc, db, rec
}

func walk(t *testing.T, svc *Service, wo *woEntity.WorkOrder, path ...woEntity.Status) *woEntity.WorkOrder {
	t.Helper()
	var err error
	for _, st := range path {
		in := TransitionInput{}
		if st == woEntity.StatusCompleted {
			in.CompletionNotes = "done"
		}
		wo, err = svc.Transition(context.Background(), org, wo.ID, st, in)
		if err != nil {
			t.Fatalf("transition to %s: %v", st, err)
		}
	}
	return wo
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to woEntity.Status
		approval bool
		want     bool
	}{
		{woEntity.StatusDraft, woEntity.StatusApproved, false, true},
		{woEntity.StatusDraft, woEntity.StatusApproved, true, false},
		{woEntity.StatusDraft, woEntity.StatusWaitingApproval, true, true},
		{woEntity.StatusDraft, woEntity.StatusCompleted, false, false},
		{woEntity.StatusScheduled, woEntity.StatusApproved, false, true},
		{woEntity.StatusOnHold, woEntity.StatusCompleted, false, false},
		{woEntity.StatusCompleted, woEntity.StatusClosed, false, true},
		{woEntity.StatusCompleted, woEntity.StatusInProgress, false, false},
		{woEntity.StatusClosed, woEntity.StatusCancelled, false, false},
		{woEntity.StatusCancelled, woEntity.StatusDraft, false, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to, c.approval); got != c.want {
			t.Errorf("CanTransition(%s, %s, approval=%v) = %v, want %v", c.from, c.to, c.approval, got, c.want)
		}
	}
	if got := AllowedTransitions(woEntity.StatusClosed, false); len(got) != 0 {
		t.Errorf("CLOSED should be terminal, got %v", got)
	}
}

func TestCreateNumbersAndDefaults(t *testing.T) {
	svc, _, _ := newService(t, Options{})
	ctx := context.Background()

	first, err := svc.Create(ctx, org, CreateInput{Title: "Leaking valve", Tasks: []TaskInput{{Description: "Isolate"}, {Description: "Replace seal"}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(ctx, org, CreateInput{Title: "Noisy fan"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.WONumber != "WO-000001" || second.WONumber != "WO-000002" {
		t.Errorf("numbers = %s, %s", first.WONumber, second.WONumber)
	}
	if first.Status != woEntity.StatusDraft || first.Priority != woEntity.PriorityMedium {
		t.Errorf("defaults = %s / %s", first.Status, first.Priority)
	}
	d, err := svc.Detail(ctx, org, first.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(d.Tasks) != 2 || d.Tasks[1].Sequence != 20 {
		t.Errorf("tasks = %+v", d.Tasks)
	}
	if len(d.History) != 1 || d.History[0].ToStatus != woEntity.StatusDraft {
		t.Errorf("history = %+v", d.History)
	}

	_, err = svc.Create(ctx, org, CreateInput{})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Errorf("missing title: got %v", err)
	}
}

func TestIllegalTransitionLeavesRowUntouched(t *testing.T) {
	svc, _, rec := newService(t, Options{RequireApproval: true})
	ctx := context.Background()
	wo, _ := svc.Create(ctx, org, CreateInput{Title: "Inspect pump"})

	_, err := svc.Transition(ctx, org, wo.ID, woEntity.StatusApproved, TransitionInput{})
	var it *apperr.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}
	got, _ := svc.Get(ctx, org, wo.ID)
	if got.Status != woEntity.StatusDraft || got.Version != wo.Version {
		t.Errorf("row changed: status=%s version=%d", got.Status, got.Version)
	}
	if len(rec.OfKind(signal.WOStatusChanged)) != 0 {
		t.Errorf("no signal expected for rejected transition")
	}
}

func TestCompleteFreezesCostsAndReleases(t *testing.T) {
	svc, db, rec := newService(t, Options{})
	ctx := context.Background()
	inv := inventory.NewService(db, nil, zap.NewNop(), inventory.Options{})

	pump := &assetEntity.Asset{OrganizationID: org, AssetNum: "P-100", Name: "Pump", Status: assetEntity.StatusOperating, Criticality: assetEntity.CriticalityHigh}
	db.Create(pump)
	part := &invEntity.Part{OrganizationID: org, PartNumber: "SEAL-1", UnitCost: decimal.RequireFromString("20")}
	inv.CreatePart(ctx, part)
	room := &invEntity.Storeroom{OrganizationID: org, Code: "MAIN", IsDefault: true}
	inv.CreateStoreroom(ctx, room)
	inv.Seed(ctx, org, part.ID, room.ID, 10)

	closed := 0
	svc.OnClose(func(tx *gorm.DB, ev CloseEvent) error {
		if ev.Status == woEntity.StatusCompleted {
			closed++
		}
		return nil
	})

	wo, err := svc.Create(ctx, org, CreateInput{Title: "Replace seal", AssetID: &pump.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	db.Create(&pmEntity.OpenClaim{PMDefinitionID: 99, OrganizationID: org, WorkOrderID: wo.ID, ClaimedAt: clock})

	wo = walk(t, svc, wo, woEntity.StatusApproved, woEntity.StatusInProgress)
	if wo.ActualStart == nil {
		t.Errorf("actual_start not set")
	}
	if _, err := svc.AddLabor(ctx, org, wo.ID, LaborInput{Hours: 2.5, HourlyRate: decimal.RequireFromString("40")}); err != nil {
		t.Fatalf("labor: %v", err)
	}
	mreq := inventory.MaterialRequest{OrganizationID: org, WorkOrderID: wo.ID, PartID: part.ID, StoreroomID: room.ID, Quantity: 3}
	if _, err := inv.IssueMaterial(ctx, mreq); err != nil {
		t.Fatalf("issue: %v", err)
	}
	mreq.Quantity = 1
	if _, err := inv.ReturnMaterial(ctx, mreq); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := inv.Reserve(ctx, inventory.ReserveRequest{OrganizationID: org, WorkOrderID: wo.ID, PartID: part.ID, StoreroomID: room.ID, Quantity: 2}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	_, err = svc.Transition(ctx, org, wo.ID, woEntity.StatusCompleted, TransitionInput{})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("completion without notes: want ValidationError, got %v", err)
	}

	wo, err = svc.Transition(ctx, org, wo.ID, woEntity.StatusCompleted, TransitionInput{
		CompletionNotes: "seal replaced", AssetWasDown: true, DowntimeHours: 3,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	// 2.5h * 40 + (3 - 1) * 20
	if !wo.TotalCost.Equal(decimal.RequireFromString("140")) {
		t.Errorf("total cost = %s, want 140", wo.TotalCost)
	}
	if closed != 1 {
		t.Errorf("close hook calls = %d", closed)
	}

	var claims int64
	db.Model(&pmEntity.OpenClaim{}).Count(&claims)
	if claims != 0 {
		t.Errorf("claim not released")
	}
	sl, _ := inv.StockLevel(ctx, org, part.ID, room.ID)
	if sl.ReservedQuantity != 0 || sl.CurrentBalance != 8 {
		t.Errorf("stock = %+v", sl)
	}
	var downtime []assetEntity.AssetDowntime
	db.Find(&downtime)
	if len(downtime) != 1 || downtime[0].Hours != 3 {
		t.Errorf("downtime = %+v", downtime)
	}
	if len(rec.OfKind(signal.DowntimeRecorded)) != 1 {
		t.Errorf("downtime signal missing")
	}
	if n := len(rec.OfKind(signal.WOStatusChanged)); n != 3 {
		t.Errorf("status signals = %d, want 3", n)
	}

	_, err = svc.AddLabor(ctx, org, wo.ID, LaborInput{Hours: 1})
	var it *apperr.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Errorf("labor on completed work order: want InvalidTransitionError, got %v", err)
	}
}

func TestHookErrorRollsBack(t *testing.T) {
	svc, _, _ := newService(t, Options{})
	ctx := context.Background()
	svc.OnClose(func(*gorm.DB, CloseEvent) error { return errors.New("boom") })

	wo, _ := svc.Create(ctx, org, CreateInput{Title: "Belt"})
	if _, err := svc.Transition(ctx, org, wo.ID, woEntity.StatusCancelled, TransitionInput{}); err == nil {
		t.Fatal("expected hook error")
	}
	got, _ := svc.Get(ctx, org, wo.ID)
	if got.Status != woEntity.StatusDraft {
		t.Errorf("status = %s, want DRAFT", got.Status)
	}
}

func TestLaborAdminOverride(t *testing.T) {
	svc, _, _ := newService(t, Options{})
	ctx := context.Background()
	wo, _ := svc.Create(ctx, org, CreateInput{Title: "Grease bearings"})

	_, err := svc.AddLabor(ctx, org, wo.ID, LaborInput{Hours: 1, HourlyRate: decimal.NewFromInt(30)})
	var it *apperr.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}
	admin := actor.With(ctx, actor.Actor{Admin: true})
	if _, err := svc.AddLabor(admin, org, wo.ID, LaborInput{Hours: 1, HourlyRate: decimal.NewFromInt(30)}); err != nil {
		t.Fatalf("admin labor: %v", err)
	}
	got, _ := svc.Get(ctx, org, wo.ID)
	if got.ActualLaborHours != 1 || !got.ActualLaborCost.Equal(decimal.NewFromInt(30)) {
		t.Errorf("rollup = %v / %s", got.ActualLaborHours, got.ActualLaborCost)
	}
}

func TestAdminCannotChargeCompletedWorkOrder(t *testing.T) {
	svc, _, _ := newService(t, Options{})
	ctx := context.Background()
	admin := actor.With(ctx, actor.Actor{Admin: true})

	wo, _ := svc.Create(ctx, org, CreateInput{Title: "Align coupling"})
	wo = walk(t, svc, wo, woEntity.StatusApproved, woEntity.StatusInProgress)
	if _, err := svc.AddLabor(ctx, org, wo.ID, LaborInput{Hours: 2, HourlyRate: decimal.NewFromInt(50)}); err != nil {
		t.Fatalf("labor: %v", err)
	}
	wo = walk(t, svc, wo, woEntity.StatusCompleted)
	if !wo.TotalCost.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total cost = %s, want 100", wo.TotalCost)
	}

	_, err := svc.AddLabor(admin, org, wo.ID, LaborInput{Hours: 3, HourlyRate: decimal.NewFromInt(50)})
	var it *apperr.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("admin labor on completed work order: want InvalidTransitionError, got %v", err)
	}
	got, _ := svc.Get(ctx, org, wo.ID)
	if !got.ActualLaborCost.Equal(decimal.NewFromInt(100)) || !got.TotalCost.Equal(decimal.NewFromInt(100)) {
		t.Errorf("labor cost = %s, total = %s; want 100, 100", got.ActualLaborCost, got.TotalCost)
	}
}

func TestDeleteIsAdminOnly(t *testing.T) {
	svc, db, _ := newService(t, Options{})
	ctx := context.Background()
	wo, _ := svc.Create(ctx, org, CreateInput{Title: "Scrap me", Tasks: []TaskInput{{Description: "x"}}})
	svc.AddComment(ctx, org, wo.ID, "duplicate")

	var fb *apperr.ForbiddenError
	if err := svc.Delete(ctx, org, wo.ID); !errors.As(err, &fb) {
		t.Fatalf("want ForbiddenError, got %v", err)
	}
	if err := svc.Delete(actor.System(ctx), org, wo.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var nf *apperr.NotFoundError
	if _, err := svc.Get(ctx, org, wo.ID); !errors.As(err, &nf) {
		t.Errorf("want NotFoundError after delete, got %v", err)
	}
	var tasks int64
	db.Model(&woEntity.Task{}).Count(&tasks)
	if tasks != 0 {
		t.Errorf("tasks left behind: %d", tasks)
	}
}

func TestTasks(t *testing.T) {
	svc, _, _ := newService(t, Options{})
	ctx := context.Background()
	wo, _ := svc.Create(ctx, org, CreateInput{Title: "PM checklist", Tasks: []TaskInput{{Description: "Check oil"}}})

	task, err := svc.AddTask(ctx, org, wo.ID, TaskInput{Description: "Check belts"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if task.Sequence != 20 {
		t.Errorf("sequence = %d, want 20", task.Sequence)
	}
	done, err := svc.CompleteTask(ctx, org, wo.ID, task.ID)
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if !done.IsCompleted || done.CompletedAt == nil {
		t.Errorf("task = %+v", done)
	}
}
