// Package seed creates demo data for a warrior: a profile, active
// medications, a day of hydration logs, and the local weather.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/cella-health/cella/pkg/types"
)

// Store is what seeding needs from a backend.
type Store interface {
	types.Reader
	types.Writer
}

// demoMedication describes a medication seeded for the demo warrior.
type demoMedication struct {
	name      string
	dosage    string
	frequency string
	times     []string
}

// demoMedications are the medications seeded on first run.
var demoMedications = []demoMedication{
	{"Hydroxyurea", "500mg", "daily", []string{"08:00"}},
	{"Folic acid", "1mg", "daily", []string{"08:00"}},
}

// demoHydration are the hydration amounts (ml) logged on the seed day.
var demoHydration = []int{250, 500, 330}

// Warrior seeds demo data for userID. Seeding is idempotent: it does nothing
// when a profile for userID already exists. Returns whether data was written.
func Warrior(ctx context.Context, s Store, userID, name string, now time.Time) (bool, error) {
	if userID == "" {
		return false, types.ErrInvalidID
	}

	existing, err := s.Select(ctx, types.TableProfiles, types.OwnerFilter(userID))
	if err != nil {
		return false, fmt.Errorf("checking profile: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	now = now.UTC()
	if _, err := s.Insert(ctx, types.TableProfiles, types.Row{
		"id":                userID,
		"full_name":         name,
		"role":              "warrior",
		"genotype":          "HbSS",
		"hydration_goal_ml": 2500,
	}); err != nil {
		return false, fmt.Errorf("seeding profile: %w", err)
	}

	for _, m := range demoMedications {
		times := make([]any, len(m.times))
		for i, t := range m.times {
			times[i] = t
		}
		if _, err := s.Insert(ctx, types.TableMedications, types.Row{
			"user_id":   userID,
			"name":      m.name,
			"dosage":    m.dosage,
			"frequency": m.frequency,
			"times":     times,
			"active":    true,
		}); err != nil {
			return false, fmt.Errorf("seeding medication %s: %w", m.name, err)
		}
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, time.UTC)
	for i, ml := range demoHydration {
		if _, err := s.Insert(ctx, types.TableHydrationLogs, types.Row{
			"user_id":   userID,
			"amount_ml": ml,
			"logged_at": start.Add(time.Duration(i) * 3 * time.Hour),
		}); err != nil {
			return false, fmt.Errorf("seeding hydration log: %w", err)
		}
	}

	if _, err := s.Insert(ctx, types.TableWeatherLogs, types.Row{
		"location":      "local",
		"temperature_c": 21.5,
		"humidity":      0.55,
		"conditions":    "clear",
		"recorded_at":   now,
	}); err != nil {
		return false, fmt.Errorf("seeding weather: %w", err)
	}

	return true, nil
}
