package workbook

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var header = []any{"Course Listing", "Section", "Instructional Format", "Meeting Patterns", "Instructor"}

// newWorkbook lays rows out starting at startRow on the first sheet. A nil
// row leaves that spreadsheet row empty.
func newWorkbook(t *testing.T, startRow int, rows ...[]any) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"View My Courses"}))
	for i, r := range rows {
		if r == nil {
			continue
		}
		r := r
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", startRow+i), &r))
	}
	return f
}

func saveWorkbook(t *testing.T, f *excelize.File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestRead_DefaultLayout(t *testing.T) {
	t.Parallel()

	f := newWorkbook(t, 3,
		header,
		[]any{"CS 101 - Intro", "001", "Lecture", "2024/09/03-2024/12/06|Mon Wed|09:00-10:00|Room A", "Dr. Smith"},
		nil,
		[]any{"CHEM 110", "L02", "Laboratory", "2024/09/03-2024/12/06|Thu|13:00-16:00|Lab 2\n\n2025/01/06-2025/04/06|Thu|13:00-16:00|Lab 2"},
		[]any{"SEMINAR 1", "", "Seminar", ""},
	)
	path := saveWorkbook(t, f)

	rows, err := Read(path, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "CS 101 - Intro", rows[0].Course)
	assert.Equal(t, "001", rows[0].Section)
	assert.Equal(t, "Lecture", rows[0].Format)
	assert.Equal(t, "Dr. Smith", rows[0].Instructor)
	assert.True(t, rows[0].HasPattern)

	assert.True(t, rows[1].IsLab())
	assert.Contains(t, rows[1].Pattern, "\n\n")
	assert.Empty(t, rows[1].Instructor)

	assert.False(t, rows[2].HasPattern)
}

func TestReadFrom_HeaderRowAndSheet(t *testing.T) {
	t.Parallel()

	f := newWorkbook(t, 1, []any{"ignored"})
	_, err := f.NewSheet("Courses")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Courses", "A1", &[]any{"Meeting Patterns", "Course Listing"}))
	require.NoError(t, f.SetSheetRow("Courses", "A2", &[]any{"2024/09/03-2024/12/06|Fri|11:00-12:00", "MATH 200"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := ReadFrom(bytes.NewReader(buf.Bytes()), ReadOptions{Sheet: "Courses", HeaderRow: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "MATH 200", rows[0].Course)
	assert.Equal(t, "2024/09/03-2024/12/06|Fri|11:00-12:00", rows[0].Pattern)
	assert.Empty(t, rows[0].Format)
}

func TestRead_CustomColumns(t *testing.T) {
	t.Parallel()

	f := newWorkbook(t, 3,
		[]any{"  course  ", "pattern"},
		[]any{"CS 101", "2024/09/03-2024/12/06|Mon|09:00-10:00"},
	)
	rows, err := Read(saveWorkbook(t, f), ReadOptions{Columns: Columns{Course: "Course", Pattern: "Pattern"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CS 101", rows[0].Course)
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	f := newWorkbook(t, 3,
		[]any{"Course Listing", "Section"},
		[]any{"CS 101", "001"},
	)
	path := saveWorkbook(t, f)

	_, err := Read(path, ReadOptions{})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Read(path, ReadOptions{Sheet: "Nope"})
	assert.ErrorIs(t, err, ErrNoSheet)

	_, err = Read(path, ReadOptions{HeaderRow: 40})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Read(filepath.Join(t.TempDir(), "missing.xlsx"), ReadOptions{})
	assert.Error(t, err)
}
