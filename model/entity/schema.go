package entity

import (
	"cmms.GO/model/entity/asset"
	"cmms.GO/model/entity/cyclecount"
	"cmms.GO/model/entity/inventory"
	"cmms.GO/model/entity/pm"
	"cmms.GO/model/entity/workorder"
)

// All returns every table model, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&ApiToken{},
		&SchedulerControl{},
		&Sequence{},
		&asset.Asset{},
		&asset.AssetMeter{},
		&asset.AssetDowntime{},
		&inventory.Part{},
		&inventory.Storeroom{},
		&inventory.StockLevel{},
		&inventory.StockReservation{},
		&inventory.PartTransaction{},
		&inventory.PurchaseOrder{},
		&inventory.POLine{},
		&pm.JobPlan{},
		&pm.JobPlanTask{},
		&pm.Definition{},
		&pm.OpenClaim{},
		&workorder.WorkOrder{},
		&workorder.WorkOrderAsset{},
		&workorder.Task{},
		&workorder.Comment{},
		&workorder.StatusHistory{},
		&workorder.LaborTransaction{},
		&workorder.MaterialTransaction{},
		&cyclecount.Plan{},
		&cyclecount.Session{},
		&cyclecount.Line{},
	}
}
