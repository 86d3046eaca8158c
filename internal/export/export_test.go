package export

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecal/internal/grid"
	"coursecal/internal/ics"
	"coursecal/internal/model"
	"coursecal/internal/schedule"
)

func sampleRows() []model.CourseRow {
	return []model.CourseRow{
		{
			Course:     "CS 101",
			Pattern:    "2024/09/03-2024/12/06|Mon Wed|09:00-10:00|Room A\n\n2025/01/06-2025/04/06|Tue|09:00-10:00|Room C",
			Format:     "Lecture",
			HasPattern: true,
		},
		{
			Course:     "CHEM 110",
			Pattern:    "2024/09/03-2024/12/06|Thu|13:00-16:00|Lab 2",
			Format:     "Laboratory",
			HasPattern: true,
		},
		{Course: "NO PATTERN"},
	}
}

func testOptions() Options {
	return Options{
		Grid:     grid.Options{Palette: grid.NewPalette(rand.NewSource(7))},
		Calendar: ics.Options{Now: func() time.Time { return time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC) }},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	res, err := Build(sampleRows(), "Term1", testOptions())
	require.NoError(t, err)

	assert.Equal(t, "term1", res.Window.Term)
	assert.Contains(t, res.HTML, "<strong>CS 101</strong>")
	assert.Contains(t, res.HTML, "course laboratory")
	assert.NotContains(t, res.HTML, "Room C")

	body := string(res.ICS)
	assert.Equal(t, 3, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:CHEM 110 (Lab)")
	assert.NotContains(t, body, "Room C")
}

func TestBuild_Term2(t *testing.T) {
	t.Parallel()

	res, err := Build(sampleRows(), "term2", testOptions())
	require.NoError(t, err)
	assert.Contains(t, res.HTML, "Room C")
	assert.Equal(t, 1, strings.Count(string(res.ICS), "BEGIN:VEVENT"))
}

func TestBuild_UnknownTerm(t *testing.T) {
	t.Parallel()

	_, err := Build(sampleRows(), "summer", testOptions())
	assert.ErrorIs(t, err, schedule.ErrUnknownTerm)
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	res, err := Build(sampleRows(), "term1", testOptions())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteFiles(dir, Names{}, res)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, DefaultHTMLName), paths[0])
	assert.Equal(t, filepath.Join(dir, DefaultICSName), paths[1])

	html, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, res.HTML, string(html))

	cal, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, res.ICS, cal)
}

func TestWriteFiles_CustomNamesAndPNG(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res := Result{HTML: "<html></html>", ICS: []byte("BEGIN:VCALENDAR"), PNG: []byte{0x89, 'P', 'N', 'G'}}
	paths, err := WriteFiles(dir, Names{HTML: "a.html", ICS: "a.ics", PNG: "a.png"}, res)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.html"),
		filepath.Join(dir, "a.ics"),
		filepath.Join(dir, "a.png"),
	}, paths)

	_, err = WriteFiles(dir, Names{}, Result{})
	assert.Error(t, err)
}
