package scheduler

import (
	"testing"

	"cmms.GO/model/dbtest"
)

func TestControlRepository_SetPaused(t *testing.T) {
	repo := NewControlRepository(dbtest.Open(t))

	if err := repo.SetPaused(7, KindPM, true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	paused, err := repo.PausedOrganizations(KindPM)
	if err != nil {
		t.Fatalf("PausedOrganizations: %v", err)
	}
	if !paused[7] {
		t.Error("org 7 should be paused for PM")
	}
	cc, _ := repo.PausedOrganizations(KindCycleCount)
	if cc[7] {
		t.Error("cycle counts must stay running")
	}

	_ = repo.SetPaused(7, KindPM, false)
	ctl, _ := repo.Get(7)
	if ctl.PausePM {
		t.Error("PausePM still set after resume")
	}
}
