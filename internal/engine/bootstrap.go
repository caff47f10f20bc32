package engine

import (
	"fmt"
	"log"

	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/schedule"
	"github.com/sadopc/sleepclock/internal/store"
)

// Bootstrap loads the profile's settings and today's routine, saving
// defaults for whatever is missing, and returns a ready engine.
func Bootstrap(p Persistence, profileID string, clock *schedule.Clock) (*Engine, error) {
	if clock == nil {
		clock = schedule.SystemClock("")
	}

	settings, err := p.LoadSettings(profileID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap settings: %w", err)
	}
	if settings == nil {
		settings = store.DefaultSettings(profileID)
		if err := p.SaveSettings(settings); err != nil {
			log.Printf("save default settings: %v", err)
		}
	}

	today := clock.Today()
	daily, err := p.LoadDailyState(profileID, today)
	if err != nil {
		return nil, fmt.Errorf("bootstrap daily state: %w", err)
	}
	if daily == nil {
		fresh := routine.New(profileID, today)
		if err := p.SaveDailyState(fresh); err != nil {
			log.Printf("save daily state: %v", err)
		}
		daily = &fresh
	}

	return New(settings, *daily, clock), nil
}
