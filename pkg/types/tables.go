package types

import (
	"fmt"
	"slices"
	"strings"
)

// TableName identifies one of the backend tables the data layer can read.
// The set is closed; ParseTableName rejects anything else.
type TableName string

// Standard table names.
const (
	TableHydrationLogs  TableName = "hydration_logs"
	TableMeals          TableName = "meals"
	TableMedicationLogs TableName = "medication_logs"
	TableMedications    TableName = "medications"
	TableProfiles       TableName = "profiles"
	TableAppointments   TableName = "appointments"
	TableCrisisLogs     TableName = "crisis_logs"
	TableMoodLogs       TableName = "mood_logs"
	TableChatLogs       TableName = "chat_logs"
	TableCircles        TableName = "circles"
	TableCircleMembers  TableName = "circle_members"
	TableCircleInvites  TableName = "circle_invites"
	TableWeatherLogs    TableName = "weather_logs"
)

// StandardTableNames lists all table names in registry order.
var StandardTableNames = []TableName{
	TableHydrationLogs,
	TableMeals,
	TableMedicationLogs,
	TableMedications,
	TableProfiles,
	TableAppointments,
	TableCrisisLogs,
	TableMoodLogs,
	TableChatLogs,
	TableCircles,
	TableCircleMembers,
	TableCircleInvites,
	TableWeatherLogs,
}

// Well-known column names shared by several tables.
const (
	ColumnID        = "id"
	ColumnUserID    = "user_id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// ColumnKind is the storage kind of a column. Backends map kinds to their
// own SQL types and decode stored values back to Go values by kind.
type ColumnKind int

// Column kinds.
const (
	KindText ColumnKind = iota
	KindInteger
	KindReal
	KindBool
	KindTime
	KindJSON
)

func (k ColumnKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindJSON:
		return "json"
	default:
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
}

// Column describes one column of a table.
type Column struct {
	Name string
	Kind ColumnKind
}

// Schema is the static registry entry for a table. OwnerColumn is empty for
// global tables; DayColumn is empty for tables with no per-day view.
type Schema struct {
	Name        TableName
	OwnerColumn string
	DayColumn   string
	Columns     []Column
}

// HasOwner reports whether reads of the table can be scoped to one user.
func (s Schema) HasOwner() bool {
	return s.OwnerColumn != ""
}

// HasDay reports whether the table supports day-filtered reads.
func (s Schema) HasDay() bool {
	return s.DayColumn != ""
}

// Column returns the column with the given name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declaration order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

func text(name string) Column { return Column{Name: name, Kind: KindText} }
func integer(name string) Column { return Column{Name: name, Kind: KindInteger} }
func decimal(name string) Column { return Column{Name: name, Kind: KindReal} }
func boolean(name string) Column { return Column{Name: name, Kind: KindBool} }
func timestamp(name string) Column { return Column{Name: name, Kind: KindTime} }
func jsonb(name string) Column { return Column{Name: name, Kind: KindJSON} }

// registry maps every TableName to its schema. Each TableName names exactly
// one physical table.
var registry = map[TableName]Schema{
	TableProfiles: {
		Name:        TableProfiles,
		OwnerColumn: ColumnID,
		Columns: []Column{
			text(ColumnID),
			text("full_name"),
			text("email"),
			text("role"),
			text("date_of_birth"),
			text("genotype"),
			integer("hydration_goal_ml"),
			text("avatar_url"),
			text("caregiver_id"),
			timestamp(ColumnCreatedAt),
			timestamp(ColumnUpdatedAt),
		},
	},
	TableHydrationLogs: {
		Name:        TableHydrationLogs,
		OwnerColumn: ColumnUserID,
		DayColumn:   "logged_at",
		Columns: []Column{
			text(ColumnID),
			text(ColumnUserID),
			integer("amount_ml"),
			timestamp("logged_at"),
			timestamp(ColumnCreatedAt),
		},
	},
	TableMeals: {
		Name:        TableMeals,
		OwnerColumn: ColumnUserID,
		DayColumn:   "logged_at",
		Columns: []Column{
			text(ColumnID),
			text(ColumnUserID),
			text("name"),
			text("meal_type"),
			integer("calories"),
			text("notes"),
			timestamp("logged_at"),
			timestamp(ColumnCreatedAt),
		},
	},
	TableMedications: {
		Name:        TableMedications,
		OwnerColumn: ColumnUserID,
		Columns: []Column{
			text(ColumnID),
			text(ColumnUserID),
			text("name"),
			text("dosage"),
			text("frequency"),
			jsonb("times"),
			boolean("active"),
			timestamp(ColumnCreatedAt),
			timestamp(ColumnUpdatedAt),
		},
	},
	TableMedicationLogs: {
		Name:        TableMedicationLogs,
		OwnerColumn: ColumnUserID,
		DayColumn:   "taken_at",
		Columns: []Column{
			text(ColumnID),
			text(ColumnUserID),
			text("medication_id"),
			text("status"),
			timestamp("taken_at"),
			timestamp(ColumnCreatedAt),
		},
	},
	TableAppointments: {
		Name:        TableAppointments,
		OwnerColumn: ColumnUserID,
		DayColumn:   "scheduled_at",
		Columns: []Column{
			text(ColumnID),
			text(ColumnUserID),
			text("title"),
			text("provider"),
			text("location"),
			text("notes"),
			timestamp("scheduled_at"),
			timestamp(ColumnCreatedAt),
		},
	},
	TableCrisisLogs: {
		Name:        TableCrisisLogs,
		OwnerColumn: ColumnUserID,
		DayColumn:   "started_at",
		Columns: []Column{
			text(ColumnID),
			text(ColumnUserID),
			integer("pain_level"),
			jsonb("pain_locations"),
			jsonb("triggers"),
			text("notes"),
			boolean("hospital_visit"),
			timestamp("started_at"),
			timestamp("ended_at"),
			timestamp(ColumnCreatedAt),
		},
	},
	TableMoodLogs: {
		Name:        TableMoodLogs,
		OwnerColumn: ColumnUserID,
		DayColumn:   "logged_at",
		Columns: []Column{
			text(ColumnID),
			text(ColumnUserID),
			text("mood"),
			integer("energy_level"),
			text("notes"),
			timestamp("logged_at"),
			timestamp(ColumnCreatedAt),
		},
	},
	TableChatLogs: {
		Name:        TableChatLogs,
		OwnerColumn: ColumnUserID,
		DayColumn:   ColumnCreatedAt,
		Columns: []Column{
			text(ColumnID),
			text(ColumnUserID),
			text("message_type"),
			text("question"),
			text("response"),
			timestamp(ColumnCreatedAt),
		},
	},
	TableCircles: {
		Name: TableCircles,
		Columns: []Column{
			text(ColumnID),
			text("name"),
			text("description"),
			text("invite_code"),
			text("created_by"),
			timestamp(ColumnCreatedAt),
		},
	},
	TableCircleMembers: {
		Name:        TableCircleMembers,
		OwnerColumn: ColumnUserID,
		Columns: []Column{
			text(ColumnID),
			text("circle_id"),
			text(ColumnUserID),
			text("role"),
			text("status"),
			integer("points"),
			timestamp("joined_at"),
			timestamp(ColumnCreatedAt),
		},
	},
	TableCircleInvites: {
		Name:        TableCircleInvites,
		OwnerColumn: ColumnUserID,
		Columns: []Column{
			text(ColumnID),
			text("circle_id"),
			text(ColumnUserID),
			text("email"),
			text("invited_by"),
			text("status"),
			timestamp(ColumnCreatedAt),
		},
	},
	TableWeatherLogs: {
		Name:      TableWeatherLogs,
		DayColumn: "recorded_at",
		Columns: []Column{
			text(ColumnID),
			text("location"),
			decimal("temperature_c"),
			decimal("humidity"),
			text("conditions"),
			timestamp("recorded_at"),
			timestamp(ColumnCreatedAt),
		},
	},
}

// Lookup returns the schema registered for name.
// Returns ErrTableNotFound if name is not a standard table.
func Lookup(name TableName) (Schema, error) {
	s, ok := registry[name]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrTableNotFound, string(name))
	}
	return s, nil
}

// Schemas returns the schema of every standard table in registry order.
func Schemas() []Schema {
	out := make([]Schema, 0, len(StandardTableNames))
	for _, name := range StandardTableNames {
		out = append(out, registry[name])
	}
	return out
}

// ParseTableName converts s into a TableName.
// Returns ErrTableNotFound if s is not a standard table.
func ParseTableName(s string) (TableName, error) {
	name := TableName(strings.TrimSpace(s))
	if !slices.Contains(StandardTableNames, name) {
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrTableNotFound, s, TableNamesString())
	}
	return name, nil
}

// ParseTableList parses a comma-separated list of table names.
func ParseTableList(s string) ([]TableName, error) {
	var out []TableName
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		name, err := ParseTableName(part)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// TableNamesString is a comma-separated list of valid table names for
// error output.
func TableNamesString() string {
	names := make([]string, len(StandardTableNames))
	for i, n := range StandardTableNames {
		names[i] = string(n)
	}
	return strings.Join(names, ", ")
}
