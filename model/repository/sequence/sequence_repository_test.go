package sequence

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"cmms.GO/model/dbtest"
)

var errRollback = errors.New("rollback")

func TestNextNumber_PerOrganization(t *testing.T) {
	db := dbtest.Open(t)

	first, err := NextNumber(db, 1, WorkOrder)
	if err != nil {
		t.Fatalf("NextNumber: %v", err)
	}
	second, _ := NextNumber(db, 1, WorkOrder)
	other, _ := NextNumber(db, 2, WorkOrder)

	if first != "WO-000001" || second != "WO-000002" {
		t.Errorf("got %s, %s; want WO-000001, WO-000002", first, second)
	}
	if other != "WO-000001" {
		t.Errorf("org 2 = %s, want WO-000001", other)
	}
}

func TestNext_RolledBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	_ = db.Transaction(func(tx *gorm.DB) error {
		if _, err := Next(tx, 1, PM); err != nil {
			t.Fatalf("Next: %v", err)
		}
		return errRollback
	})
	n, err := Next(db, 1, PM)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if n != 1 {
		t.Errorf("n = %d, want 1 after rollback", n)
	}
}
