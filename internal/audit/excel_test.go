package audit

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Bookings", sheetName("Bookings"))
	assert.Equal(t, "table_a_b_c", sheetName("table_a/b:c"))
	assert.Equal(t, strings.Repeat("x", maxSheetName), sheetName(strings.Repeat("x", 40)))
}

func TestWorkbook_RawTableTimesAndWidths(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	wb := newXLSXWorkbook(loc)
	defer wb.Close()

	require.Error(t, wb.WriteRow([]any{"orphan"}), "rows need a sheet")

	require.NoError(t, wb.AddSheet("table_bookings"))
	require.NoError(t, wb.WriteHeader([]string{"id", "start_time", "user_name"}))
	require.NoError(t, wb.WriteRow([]any{
		int64(7),
		time.Date(2024, 1, 15, 22, 30, 0, 0, time.UTC),
		strings.Repeat("n", 100),
	}))

	var buf bytes.Buffer
	require.NoError(t, wb.Save(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"table_bookings"}, f.GetSheetList())

	rows, err := f.GetRows("table_bookings")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-16 01:30", rows[1][1])

	idWidth, err := f.GetColWidth("table_bookings", "A")
	require.NoError(t, err)
	assert.Equal(t, float64(minColWidth), idWidth)

	timeWidth, err := f.GetColWidth("table_bookings", "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("2024-01-16 01:30")+2), timeWidth)

	nameWidth, err := f.GetColWidth("table_bookings", "C")
	require.NoError(t, err)
	assert.Equal(t, float64(maxColWidth), nameWidth)
}
