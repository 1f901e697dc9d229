package aggregate

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cella-health/cella/pkg/types"
)

// ErrUnknownView is returned by View for names not in Views.
var ErrUnknownView = errors.New("unknown view")

// Views are the table sets the screens request together.
var Views = map[string][]types.TableName{
	"warrior": {
		types.TableHydrationLogs,
		types.TableMeals,
		types.TableMedicationLogs,
		types.TableMedications,
		types.TableProfiles,
	},
	"crisis": {
		types.TableCrisisLogs,
		types.TableMoodLogs,
		types.TableWeatherLogs,
	},
	"circle": {
		types.TableCircles,
		types.TableCircleMembers,
		types.TableCircleInvites,
	},
	"schedule": {
		types.TableAppointments,
		types.TableMedications,
	},
}

// View returns a copy of the tables of the named view.
func View(name string) ([]types.TableName, error) {
	tables, ok := Views[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return slices.Clone(tables), nil
}

// ViewNames returns the view names in sorted order.
func ViewNames() []string {
	names := make([]string, 0, len(Views))
	for n := range Views {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
