package sequence

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	entity "cmms.GO/model/entity"
)

const (
	WorkOrder     = "WO"
	PM            = "PM"
	PurchaseOrder = "PO"
	CycleCount    = "CC"
)

// Next increments and returns the counter. Call inside the transaction that
// inserts the numbered row so a rollback also rolls back the number.
func Next(tx *gorm.DB, orgID uint, name string) (int64, error) {
	seed := entity.Sequence{OrganizationID: orgID, Name: name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, err
	}
	err := tx.Model(&entity.Sequence{}).
		Where("organization_id = ? AND name = ?", orgID, name).
		Update("value", gorm.Expr("value + 1")).Error
	if err != nil {
		return 0, err
	}
	var seq entity.Sequence
	if err := tx.Where("organization_id = ? AND name = ?", orgID, name).First(&seq).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}

// NextNumber returns the formatted next number, e.g. WO-000042.
func NextNumber(tx *gorm.DB, orgID uint, name string) (string, error) {
	n, err := Next(tx, orgID, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", name, n), nil
}
