package thaidate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFirst(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantOK   bool
		wantYear int
		wantMon  time.Month
		wantDay  int
	}{
		{
			name:     "single date",
			input:    "4 ตุลาคม 2568",
			wantOK:   true,
			wantYear: 2025,
			wantMon:  time.October,
			wantDay:  4,
		},
		{
			name:     "range returns first token",
			input:    "18 กันยายน 2568 - 30 ตุลาคม 2568",
			wantOK:   true,
			wantYear: 2025,
			wantMon:  time.September,
			wantDay:  18,
		},
		{
			name:     "token embedded in prose",
			input:    "ทุกวันเสาร์ เริ่ม 1 ธันวาคม 2567 เป็นต้นไป",
			wantOK:   true,
			wantYear: 2024,
			wantMon:  time.December,
			wantDay:  1,
		},
		{
			name:     "no whitespace between parts",
			input:    "7มกราคม2569",
			wantOK:   true,
			wantYear: 2026,
			wantMon:  time.January,
			wantDay:  7,
		},
		{
			name:   "unparseable text",
			input:  "TBA",
			wantOK: false,
		},
		{
			name:   "empty string",
			input:  "",
			wantOK: false,
		},
		{
			name:   "gregorian-only text",
			input:  "18 September 2025",
			wantOK: false,
		},
		{
			name:   "month name without day or year",
			input:  "ตุลาคม",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseFirst(tt.input)
			if !tt.wantOK {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantYear, got.Year())
			assert.Equal(t, tt.wantMon, got.Month())
			assert.Equal(t, tt.wantDay, got.Day())
		})
	}
}

// The conversion law: Gregorian year = Buddhist year - 543, exactly.
func TestBuddhistEraConversion(t *testing.T) {
	t.Parallel()

	for _, be := range []int{2400, 2543, 2567, 2568, 2600} {
		input := "1 มกราคม " + itoa(be)
		got, ok := ParseFirst(input)
		require.True(t, ok, "input %q", input)
		assert.Equal(t, be-BuddhistEraOffset, got.Year())
	}
}

func itoa(n int) string {
	return time.Date(n, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
}

func TestExtractMonths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []Month
	}{
		{
			name:  "single month event",
			input: "4 ตุลาคม 2568",
			want:  []Month{"2025-10"},
		},
		{
			name:  "short range within one month dedupes",
			input: "3 ตุลาคม 2568 - 31 ตุลาคม 2568",
			want:  []Month{"2025-10"},
		},
		{
			name:  "cross month range",
			input: "18 กันยายน 2568 - 30 ตุลาคม 2568",
			want:  []Month{"2025-09", "2025-10"},
		},
		{
			name:  "en-dash separator",
			input: "18 กันยายน 2568 – 30 ตุลาคม 2568",
			want:  []Month{"2025-09", "2025-10"},
		},
		{
			name:  "year rollover sorts chronologically",
			input: "15 ธันวาคม 2568 - 5 มกราคม 2569",
			want:  []Month{"2025-12", "2026-01"},
		},
		{
			name:  "unparseable text",
			input: "TBA",
			want:  nil,
		},
		{
			name:  "three tokens in prose",
			input: "รอบแรก 1 มีนาคม 2568 รอบสอง 1 เมษายน 2568 รอบสุดท้าย 1 พฤษภาคม 2568",
			want:  []Month{"2025-03", "2025-04", "2025-05"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractMonths(tt.input))
		})
	}
}

// Round trip: a string with exactly one token extracts to exactly the bucket
// ParseFirst converts it to.
func TestExtractMonthsMatchesParseFirst(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"4 ตุลาคม 2568",
		"31 ธันวาคม 2567",
		"1 กุมภาพันธ์ 2569",
		"9 มิถุนายน 2568",
	}
	for _, input := range inputs {
		first, ok := ParseFirst(input)
		require.True(t, ok)
		assert.Equal(t, []Month{MonthOf(first)}, ExtractMonths(input))
	}
}

func TestFillRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []Month
		want  []Month
	}{
		{
			name:  "empty unchanged",
			input: nil,
			want:  nil,
		},
		{
			name:  "single month unchanged",
			input: []Month{"2025-10"},
			want:  []Month{"2025-10"},
		},
		{
			name:  "adjacent months unchanged",
			input: []Month{"2025-09", "2025-10"},
			want:  []Month{"2025-09", "2025-10"},
		},
		{
			name:  "gap filled",
			input: []Month{"2025-09", "2025-11"},
			want:  []Month{"2025-09", "2025-10", "2025-11"},
		},
		{
			name:  "year rollover",
			input: []Month{"2025-11", "2026-02"},
			want:  []Month{"2025-11", "2025-12", "2026-01", "2026-02"},
		},
		{
			// A string describing two disjoint events bridges the gap: the
			// source's hyphen convention is assumed to always mean one
			// continuous range.
			name:  "disjoint endpoints are bridged",
			input: []Month{"2025-01", "2025-06"},
			want:  []Month{"2025-01", "2025-02", "2025-03", "2025-04", "2025-05", "2025-06"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FillRange(tt.input))
		})
	}
}

// Completeness: for endpoints m1 <= m2 the result is contiguous, has length
// month-difference + 1, and contains both endpoints.
func TestFillRangeCompleteness(t *testing.T) {
	t.Parallel()

	pairs := [][2]Month{
		{"2025-01", "2025-01"},
		{"2025-01", "2025-12"},
		{"2024-11", "2025-03"},
		{"2025-06", "2027-06"},
	}
	for _, p := range pairs {
		got := FillRange([]Month{p[0], p[1]})
		require.NotEmpty(t, got)
		assert.Equal(t, p[0], got[0])
		assert.Equal(t, p[1], got[len(got)-1])

		start, err := p[0].Time()
		require.NoError(t, err)
		end, err := p[1].Time()
		require.NoError(t, err)
		wantLen := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
		assert.Len(t, got, wantLen)

		for i := 1; i < len(got); i++ {
			assert.Equal(t, got[i], got[i-1].Next(), "gap at index %d", i)
		}
	}
}

func TestMonth(t *testing.T) {
	t.Parallel()

	t.Run("ordering is lexicographic and chronological", func(t *testing.T) {
		t.Parallel()
		assert.True(t, Month("2025-09") < Month("2025-10"))
		assert.True(t, Month("2025-12") < Month("2026-01"))
	})

	t.Run("next rolls over december", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, Month("2026-01"), Month("2025-12").Next())
	})

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		assert.True(t, Month("2025-01").Valid())
		assert.False(t, Month("2025-1").Valid())
		assert.False(t, Month("not-a-month").Valid())
	})

	t.Run("month of", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, Month("2025-10"), MonthOf(time.Date(2025, 10, 4, 0, 0, 0, 0, Bangkok)))
	})

	t.Run("end is first instant of following month", func(t *testing.T) {
		t.Parallel()
		end, err := Month("2025-10").End()
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, Bangkok), end)
	})
}
