package scheduler

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	schedRepo "cmms.GO/model/repository/scheduler"
)

// Control toggles pause flags at two levels: the process-wide loop flag and
// the per-organization flag stored in the database. Either one stops
// generation; neither stops the timer.
type Control struct {
	db    *gorm.DB
	loops *Registry
	log   *zap.Logger
}

func NewControl(db *gorm.DB, loops *Registry, log *zap.Logger) *Control {
	return &Control{db: db, loops: loops, log: log.Named("scheduler")}
}

// OrgStatus is a loop's status as seen by one organization.
type OrgStatus struct {
	Status
	OrganizationPaused bool `json:"organization_paused"`
	// Effective is what generation sees: paused globally or for the organization.
	Effective bool `json:"effective_paused"`
}

func (c *Control) loop(name string) (*Loop, error) {
	l, ok := c.loops.Get(name)
	if !ok {
		return nil, apperr.Validation("name", "unknown scheduler %q", name)
	}
	return l, nil
}

// SetPaused pauses or resumes a scheduler. orgID 0 targets the loop itself.
func (c *Control) SetPaused(ctx context.Context, name string, orgID uint, paused bool) error {
	l, err := c.loop(name)
	if err != nil {
		return err
	}
	if orgID == 0 {
		if paused {
			l.Pause()
		} else {
			l.Resume()
		}
		return nil
	}
	if err := schedRepo.NewControlRepository(c.db.WithContext(ctx)).SetPaused(orgID, schedRepo.Kind(name), paused); err != nil {
		return err
	}
	c.log.Info("organization pause changed",
		zap.String("scheduler", name), zap.Uint("organization_id", orgID), zap.Bool("paused", paused))
	return nil
}

// Paused reports the flag SetPaused controls: the loop flag for orgID 0,
// otherwise the organization's own flag.
func (c *Control) Paused(ctx context.Context, name string, orgID uint) (bool, error) {
	l, err := c.loop(name)
	if err != nil {
		return false, err
	}
	if orgID == 0 {
		return l.Paused(), nil
	}
	ctl, err := schedRepo.NewControlRepository(c.db.WithContext(ctx)).Get(orgID)
	if err != nil {
		return false, err
	}
	if name == NameCycleCount {
		return ctl.PauseCycleCounts, nil
	}
	return ctl.PausePM, nil
}

// Status lists every loop with the organization's flags folded in.
func (c *Control) Status(ctx context.Context, orgID uint) ([]OrgStatus, error) {
	ctl, err := schedRepo.NewControlRepository(c.db.WithContext(ctx)).Get(orgID)
	if err != nil {
		return nil, err
	}
	var out []OrgStatus
	for _, l := range c.loops.All() {
		st := OrgStatus{Status: l.Status()}
		switch l.Name() {
		case NamePM:
			st.OrganizationPaused = ctl.PausePM
		case NameCycleCount:
			st.OrganizationPaused = ctl.PauseCycleCounts
		}
		st.Effective = st.Paused || st.OrganizationPaused
		out = append(out, st)
	}
	return out, nil
}
