package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecal/internal/model"
)

func TestParsePattern_OneMeetingPerDay(t *testing.T) {
	t.Parallel()

	got := ParsePattern("2024/09/03 - 2024/12/06 | Mon Wed Fri | 09:00 - 10:00 | Room A")

	require.Len(t, got, 3)
	for i, day := range []string{"Mon", "Wed", "Fri"} {
		assert.Equal(t, model.Meeting{
			StartDate: "2024/09/03",
			EndDate:   "2024/12/06",
			Day:       day,
			StartTime: "09:00",
			EndTime:   "10:00",
			Location:  "Room A",
		}, got[i])
	}
}

func TestParsePattern_DayTokensVerbatim(t *testing.T) {
	t.Parallel()

	got := ParsePattern("2024/09/03-2024/12/06|mon MON Sat|09:00-10:00|Room A")

	require.Len(t, got, 3)
	assert.Equal(t, "mon", got[0].Day)
	assert.Equal(t, "MON", got[1].Day)
	assert.Equal(t, "Sat", got[2].Day)
}

func TestParsePattern_Blocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "whitespace only", text: " \n\n \n", want: 0},
		{name: "too few fields", text: "2024/09/03-2024/12/06|Mon", want: 0},
		{name: "empty fields do not count", text: "2024/09/03-2024/12/06| |Mon||", want: 0},
		{name: "bad date range", text: "2024/09/03|Mon|09:00-10:00", want: 0},
		{name: "bad time range", text: "2024/09/03-2024/12/06|Mon|09:00", want: 0},
		{name: "three dashes in dates", text: "2024-09-03-2024-12-06|Mon|09:00-10:00", want: 0},
		{name: "no location", text: "2024/09/03-2024/12/06|Tue Thu|13:00-14:30", want: 2},
		{
			name: "two blocks",
			text: "2024/09/03-2024/12/06|Mon|09:00-10:00|A\n\n2024/09/03-2024/12/06|Tue Thu|11:00-12:00|B",
			want: 3,
		},
		{
			name: "one bad block does not sink the cell",
			text: "garbage\n\n2024/09/03-2024/12/06|Mon|09:00-10:00|A",
			want: 1,
		},
		{
			name: "crlf separators",
			text: "2024/09/03-2024/12/06|Mon|09:00-10:00|A\r\n\r\n2024/09/03-2024/12/06|Fri|09:00-10:00|A",
			want: 2,
		},
		{name: "unknown day tokens are kept", text: "2024/09/03-2024/12/06|Sat Xyz|09:00-10:00", want: 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Len(t, ParsePattern(tt.text), tt.want)
		})
	}
}

func TestParsePattern_LocationDefaultsEmpty(t *testing.T) {
	t.Parallel()

	got := ParsePattern("2024/09/03-2024/12/06|Mon|09:00-10:00")
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Location)
}

func TestParsePatternDetailed_Reasons(t *testing.T) {
	t.Parallel()

	text := "a|b\n\n2024/09/03|Mon|09:00-10:00\n\n2024/09/03-2024/12/06|Mon|0900\n\n2024/09/03-2024/12/06|Mon|09:00-10:00"
	meetings, rejected := ParsePatternDetailed(text)

	assert.Len(t, meetings, 1)
	require.Len(t, rejected, 3)
	assert.Equal(t, reasonTooFewFields, rejected[0].Reason)
	assert.Equal(t, reasonDateRange, rejected[1].Reason)
	assert.Equal(t, reasonTimeRange, rejected[2].Reason)
	assert.Equal(t, "a|b", rejected[0].Block)
}
