package asset

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"cmms.GO/core/apperr"
	"cmms.GO/model/dbtest"
	assetEntity "cmms.GO/model/entity/asset"
)

func TestMeterReadingsAreMonotonic(t *testing.T) {
	svc := NewService(dbtest.Open(t), zap.NewNop())
	ctx := context.Background()
	a := &assetEntity.Asset{OrganizationID: 1, AssetNum: "CMP-7"}
	if err := svc.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != assetEntity.StatusOperating {
		t.Errorf("status = %s", a.Status)
	}

	if _, err := svc.RecordMeterReading(ctx, 1, a.ID, "hours", 120, nil); err != nil {
		t.Fatalf("first reading: %v", err)
	}
	if _, err := svc.RecordMeterReading(ctx, 1, a.ID, "hours", 120, nil); err != nil {
		t.Fatalf("equal reading: %v", err)
	}
	_, err := svc.RecordMeterReading(ctx, 1, a.ID, "hours", 119.5, nil)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("lower reading: want ValidationError, got %v", err)
	}
	meters, _ := svc.Meters(ctx, 1, a.ID)
	if len(meters) != 1 || meters[0].Reading != 120 {
		t.Errorf("meters = %+v", meters)
	}

	var nf *apperr.NotFoundError
	if _, err := svc.RecordMeterReading(ctx, 2, a.ID, "hours", 1, nil); !errors.As(err, &nf) {
		t.Errorf("other organization: want NotFoundError, got %v", err)
	}
}
