package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	"cmms.GO/model/dbtest"
	invEntity "cmms.GO/model/entity/inventory"
	woEntity "cmms.GO/model/entity/workorder"
)

const org = uint(1)

type fixture struct {
	db   *gorm.DB
	svc  *Service
	rec  *signal.Recorder
	part *invEntity.Part
	room *invEntity.Storeroom
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	rec := signal.NewRecorder(0)
	svc := NewService(db, rec, zap.NewNop(), opts)
	svc.SetClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	part := &invEntity.Part{OrganizationID: org, PartNumber: "BRG-6204", Name: "Bearing", UnitCost: decimal.RequireFromString("12.50")}
	if err := svc.CreatePart(ctx, part); err != nil {
		t.Fatalf("create part: %v", err)
	}
	room := &invEntity.Storeroom{OrganizationID: org, Code: "MAIN", IsDefault: true}
	if err := svc.CreateStoreroom(ctx, room); err != nil {
		t.Fatalf("create storeroom: %v", err)
	}
	return &fixture{db: db, svc: svc, rec: rec, part: part, room: room}
}

func (f *fixture) stock(t *testing.T, balance, reorderPoint float64) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.UpsertStockLevel(ctx, org, f.part.ID, f.room.ID, StockSettings{ReorderPoint: reorderPoint}); err != nil {
		t.Fatalf("upsert stock: %v", err)
	}
	if _, err := f.svc.Seed(ctx, org, f.part.ID, f.room.ID, balance); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

var woSeq int

func (f *fixture) workOrder(t *testing.T, status woEntity.Status) *woEntity.WorkOrder {
	t.Helper()
	woSeq++
	wo := &woEntity.WorkOrder{
		OrganizationID: org,
		WONumber:       fmt.Sprintf("WO-T%04d", woSeq),
		Title:          "Replace bearing",
		Status:         status,
		Priority:       woEntity.PriorityMedium,
		WorkType:       woEntity.TypeCorrective,
		Version:        1,
	}
	if err := f.db.Create(wo).Error; err != nil {
		t.Fatalf("create work order: %v", err)
	}
	return wo
}

func (f *fixture) balance(t *testing.T) *invEntity.StockLevel {
	t.Helper()
	sl, err := f.svc.StockLevel(context.Background(), org, f.part.ID, f.room.ID)
	if err != nil {
		t.Fatalf("stock level: %v", err)
	}
	return sl
}

func (f *fixture) issue(wo *woEntity.WorkOrder, q float64) (*woEntity.MaterialTransaction, error) {
	return f.svc.IssueMaterial(context.Background(), MaterialRequest{
		OrganizationID: org, WorkOrderID: wo.ID, PartID: f.part.ID, StoreroomID: f.room.ID, Quantity: q,
	})
}

func TestIssueMaterialLowStockThenInsufficient(t *testing.T) {
	f := newFixture(t, Options{})
	f.stock(t, 10, 5)
	wo := f.workOrder(t, woEntity.StatusInProgress)

	mt, err := f.issue(wo, 6)
	if err != nil {
		t.Fatalf("issue 6: %v", err)
	}
	if !mt.TotalCost.Equal(decimal.RequireFromString("75")) {
		t.Errorf("total cost = %s, want 75", mt.TotalCost)
	}
	if got := f.balance(t).CurrentBalance; got != 4 {
		t.Fatalf("balance = %v, want 4", got)
	}
	if n := len(f.rec.OfKind(signal.LowStock)); n != 1 {
		t.Fatalf("low stock signals = %d, want 1", n)
	}

	_, err = f.issue(wo, 10)
	var ins *apperr.InsufficientStockError
	if !errors.As(err, &ins) {
		t.Fatalf("issue 10: want InsufficientStockError, got %v", err)
	}
	if ins.Available != 4 || ins.Requested != 10 {
		t.Errorf("error = %+v", ins)
	}
	if got := f.balance(t).CurrentBalance; got != 4 {
		t.Errorf("balance after rejected issue = %v, want 4", got)
	}

	var updated woEntity.WorkOrder
	f.db.First(&updated, wo.ID)
	if !updated.ActualMaterialCost.Equal(decimal.RequireFromString("75")) {
		t.Errorf("material cost = %s, want 75", updated.ActualMaterialCost)
	}

	var journal []invEntity.PartTransaction
	f.db.Where("transaction_type = ?", invEntity.TxIssue).Find(&journal)
	if len(journal) != 1 || journal[0].Quantity != -6 || journal[0].BalanceAfter != 4 {
		t.Errorf("issue journal = %+v", journal)
	}
}

func TestIssueRequiresChargeableWorkOrder(t *testing.T) {
	f := newFixture(t, Options{})
	f.stock(t, 10, 0)
	wo := f.workOrder(t, woEntity.StatusApproved)

	_, err := f.issue(wo, 1)
	var it *apperr.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}

	ctx := actor.With(context.Background(), actor.Actor{Admin: true})
	_, err = f.svc.IssueMaterial(ctx, MaterialRequest{
		OrganizationID: org, WorkOrderID: wo.ID, PartID: f.part.ID, StoreroomID: f.room.ID, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("admin override: %v", err)
	}
}

func TestAdminCannotIssueOrReturnOnCompletedWorkOrder(t *testing.T) {
	f := newFixture(t, Options{})
	f.stock(t, 10, 0)
	wo := f.workOrder(t, woEntity.StatusInProgress)
	if _, err := f.issue(wo, 2); err != nil {
		t.Fatalf("issue: %v", err)
	}
	f.db.Model(&woEntity.WorkOrder{}).Where("id = ?", wo.ID).Update("status", woEntity.StatusCompleted)

	admin := actor.With(context.Background(), actor.Actor{Admin: true})
	req := MaterialRequest{OrganizationID: org, WorkOrderID: wo.ID, PartID: f.part.ID, StoreroomID: f.room.ID, Quantity: 1}
	var it *apperr.InvalidTransitionError
	if _, err := f.svc.IssueMaterial(admin, req); !errors.As(err, &it) {
		t.Errorf("admin issue on completed work order: want InvalidTransitionError, got %v", err)
	}
	if _, err := f.svc.ReturnMaterial(admin, req); !errors.As(err, &it) {
		t.Errorf("admin return on completed work order: want InvalidTransitionError, got %v", err)
	}
	if got := f.balance(t).CurrentBalance; got != 8 {
		t.Errorf("balance = %v, want 8", got)
	}
	var updated woEntity.WorkOrder
	f.db.First(&updated, wo.ID)
	if !updated.ActualMaterialCost.Equal(decimal.RequireFromString("25")) {
		t.Errorf("material cost = %s, want 25", updated.ActualMaterialCost)
	}
}

func TestNegativeStockAllowed(t *testing.T) {
	f := newFixture(t, Options{AllowNegativeStock: true})
	f.stock(t, 2, 0)
	wo := f.workOrder(t, woEntity.StatusInProgress)

	if _, err := f.issue(wo, 5); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if got := f.balance(t).CurrentBalance; got != -3 {
		t.Errorf("balance = %v, want -3", got)
	}
}

func TestReturnMaterial(t *testing.T) {
	f := newFixture(t, Options{})
	f.stock(t, 10, 0)
	wo := f.workOrder(t, woEntity.StatusInProgress)
	ctx := context.Background()

	if _, err := f.issue(wo, 4); err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := MaterialRequest{OrganizationID: org, WorkOrderID: wo.ID, PartID: f.part.ID, StoreroomID: f.room.ID, Quantity: 5}
	_, err := f.svc.ReturnMaterial(ctx, req)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("return more than issued: want ValidationError, got %v", err)
	}

	req.Quantity = 3
	mt, err := f.svc.ReturnMaterial(ctx, req)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if !mt.UnitCost.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("return unit cost = %s, want last issue cost", mt.UnitCost)
	}
	if got := f.balance(t).CurrentBalance; got != 9 {
		t.Errorf("balance = %v, want 9", got)
	}
	var updated woEntity.WorkOrder
	f.db.First(&updated, wo.ID)
	if !updated.ActualMaterialCost.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("material cost = %s, want 12.5", updated.ActualMaterialCost)
	}
}

func TestReservationsLimitOthersButNotOwner(t *testing.T) {
	f := newFixture(t, Options{})
	f.stock(t, 10, 0)
	owner := f.workOrder(t, woEntity.StatusInProgress)
	other := f.workOrder(t, woEntity.StatusInProgress)
	ctx := context.Background()

	r, err := f.svc.Reserve(ctx, ReserveRequest{OrganizationID: org, WorkOrderID: owner.ID, PartID: f.part.ID, StoreroomID: f.room.ID, Quantity: 8})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if sl := f.balance(t); sl.AvailableQuantity != 2 || sl.CurrentBalance != 10 {
		t.Fatalf("after reserve: %+v", sl)
	}

	var ins *apperr.InsufficientStockError
	if _, err := f.issue(other, 3); !errors.As(err, &ins) {
		t.Fatalf("other work order: want InsufficientStockError, got %v", err)
	}
	if _, err := f.issue(owner, 8); err != nil {
		t.Fatalf("owner issue: %v", err)
	}
	sl := f.balance(t)
	if sl.CurrentBalance != 2 || sl.ReservedQuantity != 0 {
		t.Errorf("after owner issue: %+v", sl)
	}
	var got invEntity.StockReservation
	f.db.First(&got, r.ID)
	if got.Status != invEntity.ReservationConsumed {
		t.Errorf("reservation status = %s", got.Status)
	}
}

func TestReleaseForWorkOrder(t *testing.T) {
	f := newFixture(t, Options{})
	f.stock(t, 10, 0)
	wo := f.workOrder(t, woEntity.StatusApproved)
	ctx := context.Background()

	if _, err := f.svc.Reserve(ctx, ReserveRequest{OrganizationID: org, WorkOrderID: wo.ID, PartID: f.part.ID, StoreroomID: f.room.ID, Quantity: 4}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := f.db.Transaction(func(tx *gorm.DB) error { return ReleaseForWorkOrderTx(tx, wo.ID) }); err != nil {
		t.Fatalf("release: %v", err)
	}
	if sl := f.balance(t); sl.ReservedQuantity != 0 || sl.AvailableQuantity != 10 {
		t.Errorf("after release: %+v", sl)
	}
}

func TestAdjustToTarget(t *testing.T) {
	f := newFixture(t, Options{})
	f.stock(t, 10, 0)
	target := 7.0
	pt, err := f.svc.Adjust(context.Background(), Adjustment{
		OrganizationID: org, PartID: f.part.ID, StoreroomID: f.room.ID, Target: &target, Notes: "shelf count",
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if pt.Quantity != -3 || pt.BalanceAfter != 7 || pt.TransactionType != invEntity.TxAdjustment {
		t.Errorf("journal = %+v", pt)
	}

	_, err = f.svc.Adjust(context.Background(), Adjustment{OrganizationID: org, PartID: f.part.ID, StoreroomID: f.room.ID, Delta: -8})
	var ins *apperr.InsufficientStockError
	if !errors.As(err, &ins) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
}

func orderedPO(t *testing.T, f *fixture, qty float64) *invEntity.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	po, err := f.svc.CreatePO(ctx, org, POInput{
		Vendor:      "Acme",
		StoreroomID: f.room.ID,
		Lines:       []POLineInput{{PartID: f.part.ID, Quantity: qty, UnitCost: decimal.RequireFromString("11.00")}},
	})
	if err != nil {
		t.Fatalf("create po: %v", err)
	}
	if po.PONumber != "PO-000001" {
		t.Errorf("po number = %s", po.PONumber)
	}
	for _, st := range []invEntity.POStatus{invEntity.POApproved, invEntity.POOrdered} {
		if po, err = f.svc.TransitionPO(ctx, org, po.ID, st); err != nil {
			t.Fatalf("transition to %s: %v", st, err)
		}
	}
	return po
}

func TestReceivePOLinesOverReceipt(t *testing.T) {
	f := newFixture(t, Options{})
	po := orderedPO(t, f, 100)
	line := po.Lines[0].ID
	ctx := context.Background()

	po, err := f.svc.ReceivePOLines(ctx, org, po.ID, []ReceiptLine{{LineID: line, Quantity: 60}})
	if err != nil {
		t.Fatalf("receive 60: %v", err)
	}
	if po.Status != invEntity.POPartiallyReceived {
		t.Fatalf("status = %s, want PARTIALLY_RECEIVED", po.Status)
	}

	_, err = f.svc.ReceivePOLines(ctx, org, po.ID, []ReceiptLine{{LineID: line, Quantity: 50}})
	var or *apperr.OverReceiptError
	if !errors.As(err, &or) {
		t.Fatalf("receive 50: want OverReceiptError, got %v", err)
	}
	if or.Remaining != 40 || or.Requested != 50 {
		t.Errorf("error = %+v", or)
	}
	if got := f.balance(t).CurrentBalance; got != 60 {
		t.Fatalf("balance after rejected receipt = %v, want 60", got)
	}

	po, err = f.svc.ReceivePOLines(ctx, org, po.ID, []ReceiptLine{{LineID: line, Quantity: 40}})
	if err != nil {
		t.Fatalf("receive 40: %v", err)
	}
	if po.Status != invEntity.POReceived {
		t.Errorf("status = %s, want RECEIVED", po.Status)
	}
	if po.Lines[0].QuantityReceived != 100 || !po.Lines[0].IsReceived {
		t.Errorf("line = %+v", po.Lines[0])
	}
	if got := f.balance(t).CurrentBalance; got != 100 {
		t.Errorf("balance = %v, want 100", got)
	}

	_, err = f.svc.ReceivePOLines(ctx, org, po.ID, []ReceiptLine{{LineID: line, Quantity: 1}})
	var it *apperr.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Errorf("receipt on RECEIVED order: want InvalidTransitionError, got %v", err)
	}
}

func TestReceiptLineStoreroomOverride(t *testing.T) {
	f := newFixture(t, Options{})
	po := orderedPO(t, f, 10)
	line := po.Lines[0].ID
	ctx := context.Background()
	annex := &invEntity.Storeroom{OrganizationID: org, Code: "ANNEX"}
	if err := f.svc.CreateStoreroom(ctx, annex); err != nil {
		t.Fatalf("create storeroom: %v", err)
	}

	missing := uint(9999)
	_, err := f.svc.ReceivePOLines(ctx, org, po.ID, []ReceiptLine{{LineID: line, Quantity: 1, StoreroomID: &missing}})
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("unknown storeroom: want NotFoundError, got %v", err)
	}

	_, err = f.svc.ReceivePOLines(ctx, org, po.ID, []ReceiptLine{
		{LineID: line, Quantity: 4, StoreroomID: &annex.ID},
		{LineID: line, Quantity: 6},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	sl, err := f.svc.StockLevel(ctx, org, f.part.ID, annex.ID)
	if err != nil || sl.CurrentBalance != 4 {
		t.Errorf("annex stock = %+v, %v; want 4", sl, err)
	}
	if got := f.balance(t).CurrentBalance; got != 6 {
		t.Errorf("main balance = %v, want 6", got)
	}
}

func TestReceiveBatchIsAtomic(t *testing.T) {
	f := newFixture(t, Options{})
	po := orderedPO(t, f, 10)
	line := po.Lines[0].ID

	// two entries for the same line add up past the ordered quantity
	_, err := f.svc.ReceivePOLines(context.Background(), org, po.ID, []ReceiptLine{
		{LineID: line, Quantity: 6},
		{LineID: line, Quantity: 6},
	})
	var or *apperr.OverReceiptError
	if !errors.As(err, &or) {
		t.Fatalf("want OverReceiptError, got %v", err)
	}
	if or.Requested != 12 {
		t.Errorf("requested = %v, want 12", or.Requested)
	}
	if _, err := f.svc.StockLevel(context.Background(), org, f.part.ID, f.room.ID); err == nil {
		t.Errorf("stock row should not exist after rejected batch")
	}
	got, _ := f.svc.GetPO(context.Background(), org, po.ID)
	if got.Lines[0].QuantityReceived != 0 || got.Status != invEntity.POOrdered {
		t.Errorf("po changed: %+v", got)
	}
}

func TestPOTransitions(t *testing.T) {
	if CanTransitionPO(invEntity.PODraft, invEntity.POReceived) {
		t.Error("DRAFT -> RECEIVED must go through receiving")
	}
	if !CanTransitionPO(invEntity.POOrdered, invEntity.POCancelled) {
		t.Error("ORDERED -> CANCELLED should be allowed")
	}
	if CanTransitionPO(invEntity.POReceived, invEntity.POCancelled) {
		t.Error("RECEIVED is terminal")
	}
}
