package service

import (
	"testing"

	"github.com/aspire-solutions/councilkb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCollectionDays(t *testing.T) {
	body := `Find your suburb below to see your typical collection day.

Division 1 – Northern Beaches:
Redcliffe, Scarborough, Margate
Typical day: Monday

Division 2 – Hinterland:
Dayboro, Mount Mee
Typical day: thursday
`

	t.Run("emits one record per suburb with division context", func(t *testing.T) {
		records := ParseCollectionDays(body)
		require.Len(t, records, 5)

		assert.Equal(t, domain.CollectionDay{
			Suburb:     "Redcliffe",
			TypicalDay: "Monday",
			Division:   "Division 1 - Northern Beaches",
		}, records[0])

		assert.Equal(t, "Scarborough", records[1].Suburb)
		assert.Equal(t, "Margate", records[2].Suburb)
	})

	t.Run("weekday is canonicalized", func(t *testing.T) {
		records := ParseCollectionDays(body)
		assert.Equal(t, "Thursday", records[3].TypicalDay)
		assert.Equal(t, "Division 2 - Hinterland", records[3].Division)
	})

	t.Run("instructional header lines are ignored", func(t *testing.T) {
		records := ParseCollectionDays("Look up your suburb here.\n\nDivision 1 - A:\nX, Y\nTypical day: Friday")
		require.Len(t, records, 2)
	})

	t.Run("division line clears pending suburbs", func(t *testing.T) {
		records := ParseCollectionDays("A, B\nDivision 1 - North:\nC, D\nTypical day: Monday")
		require.Len(t, records, 2)
		assert.Equal(t, "C", records[0].Suburb)
		assert.Equal(t, "D", records[1].Suburb)
	})

	t.Run("typical day without suburbs emits nothing", func(t *testing.T) {
		records := ParseCollectionDays("Division 1 - North:\nTypical day: Monday")
		assert.Empty(t, records)
	})

	t.Run("single suburb line without comma is skipped", func(t *testing.T) {
		// A lone suburb line has no comma, so it never accumulates
		records := ParseCollectionDays("Division 1 - North:\nRedcliffe\nTypical day: Monday")
		assert.Empty(t, records)
	})

	t.Run("hyphen variants in division line", func(t *testing.T) {
		for _, sep := range []string{"-", "–", "—"} {
			records := ParseCollectionDays("Division 3 " + sep + " Coastal:\nA, B\nTypical day: Tuesday")
			require.Len(t, records, 2, "separator %q", sep)
			assert.Equal(t, "Division 3 - Coastal", records[0].Division)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		assert.Empty(t, ParseCollectionDays(""))
	})
}
