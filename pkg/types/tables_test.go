package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_EveryTableRegistered(t *testing.T) {
	require.Len(t, Schemas(), len(StandardTableNames))

	seen := make(map[TableName]bool)
	for _, s := range Schemas() {
		assert.False(t, seen[s.Name], "table %s registered twice", s.Name)
		seen[s.Name] = true

		_, ok := s.Column(ColumnID)
		assert.True(t, ok, "table %s has no id column", s.Name)

		if s.HasOwner() {
			c, ok := s.Column(s.OwnerColumn)
			assert.True(t, ok, "table %s owner column %q not declared", s.Name, s.OwnerColumn)
			assert.Equal(t, KindText, c.Kind)
		}
		if s.HasDay() {
			c, ok := s.Column(s.DayColumn)
			assert.True(t, ok, "table %s day column %q not declared", s.Name, s.DayColumn)
			assert.Equal(t, KindTime, c.Kind)
		}
	}
}

func TestRegistry_OwnerColumns(t *testing.T) {
	tests := []struct {
		table TableName
		owner string
	}{
		{TableHydrationLogs, ColumnUserID},
		{TableMedications, ColumnUserID},
		{TableMedicationLogs, ColumnUserID},
		{TableProfiles, ColumnID},
		{TableCircleMembers, ColumnUserID},
		{TableCircles, ""},
		{TableWeatherLogs, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.table), func(t *testing.T) {
			s, err := Lookup(tt.table)
			require.NoError(t, err)
			assert.Equal(t, tt.owner, s.OwnerColumn)
		})
	}
}

func TestLookup_UnknownTable(t *testing.T) {
	_, err := Lookup("patients")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestParseTableName(t *testing.T) {
	name, err := ParseTableName(" meals ")
	require.NoError(t, err)
	assert.Equal(t, TableMeals, name)

	_, err = ParseTableName("auth.users")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestParseTableList(t *testing.T) {
	got, err := ParseTableList("medications,medication_logs,,profiles")
	require.NoError(t, err)
	assert.Equal(t, []TableName{TableMedications, TableMedicationLogs, TableProfiles}, got)

	_, err = ParseTableList("medications,pills")
	assert.ErrorIs(t, err, ErrTableNotFound)
}
