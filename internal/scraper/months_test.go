package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lannaguide/server/internal/domain/listings"
	"github.com/lannaguide/server/internal/thaidate"
)

func TestAssignMonths(t *testing.T) {
	target := thaidate.Month("2025-10")

	tests := []struct {
		name     string
		dateText string
		want     []thaidate.Month
	}{
		{
			name:     "single thai date",
			dateText: "4 ตุลาคม 2568",
			want:     []thaidate.Month{"2025-10"},
		},
		{
			name:     "thai range fills interior months",
			dateText: "20 กันยายน 2568 - 30 พฤศจิกายน 2568",
			want:     []thaidate.Month{"2025-09", "2025-10", "2025-11"},
		},
		{
			name:     "range crossing year boundary",
			dateText: "15 ธันวาคม 2568 - 15 มกราคม 2569",
			want:     []thaidate.Month{"2025-12", "2026-01"},
		},
		{
			name:     "english date falls through to generic parser",
			dateText: "14 February 2026",
			want:     []thaidate.Month{"2026-02"},
		},
		{
			name:     "unparseable text falls back to target month",
			dateText: "เร็วๆ นี้",
			want:     []thaidate.Month{target},
		},
		{
			name:     "empty text falls back to target month",
			dateText: "",
			want:     []thaidate.Month{target},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssignMonths(tt.dateText, target)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got)
		})
	}
}

func TestAttachMonths(t *testing.T) {
	target := thaidate.Month("2025-10")
	records := []listings.Listing{
		{Title: "Loy Krathong", DateText: "5 พฤศจิกายน 2568 - 6 พฤศจิกายน 2568"},
		{Title: "Night Market", DateText: "สอบถามผู้จัดงาน"},
	}

	got := AttachMonths(records, target)
	require.Len(t, got, 2)
	assert.Equal(t, []thaidate.Month{"2025-11"}, got[0].Months)
	assert.Equal(t, []thaidate.Month{target}, got[1].Months)
}
