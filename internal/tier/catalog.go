// Package tier defines the static service-tier catalog. Limits are fixed at
// process start; every tier referenced by a user must exist here, and an
// unknown tier is an error, never a silent fallback.
package tier

import (
	"errors"
	"time"
)

// ErrTierNotFound is returned when a tier name is not in the catalog.
var ErrTierNotFound = errors.New("tier: not found")

// Limits holds the usage limits and feature set of one service tier.
// A nil SessionDuration or DailyLimitMinutes means unlimited.
type Limits struct {
	Name               string
	SessionDuration    *time.Duration
	ConcurrentSessions int
	DailyLimitMinutes  *int
	Features           []string
}

// Catalog is an immutable mapping from tier name to limits.
type Catalog struct {
	tiers map[string]Limits
}

// NewCatalog builds the default tier catalog.
func NewCatalog() *Catalog {
	guestSession := 2 * time.Minute
	guestDaily := 2
	freeDaily := 120

	return &Catalog{
		tiers: map[string]Limits{
			"guest": {
				Name:               "Guest",
				SessionDuration:    &guestSession,
				ConcurrentSessions: 1,
				DailyLimitMinutes:  &guestDaily,
				Features:           []string{"basic_voice_chat"},
			},
			"free": {
				Name:               "Free",
				SessionDuration:    nil, // Unlimited per session
				ConcurrentSessions: 2,
				DailyLimitMinutes:  &freeDaily,
				Features:           []string{"voice_chat", "long_sessions"},
			},
		},
	}
}

// Lookup returns the limits for a tier name.
func (c *Catalog) Lookup(name string) (Limits, error) {
	limits, ok := c.tiers[name]
	if !ok {
		return Limits{}, ErrTierNotFound
	}
	return limits, nil
}

// Names returns the tier names in the catalog.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.tiers))
	for name := range c.tiers {
		names = append(names, name)
	}
	return names
}
