package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationParams_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		in        PaginationParams
		wantPage  int
		wantLimit int
	}{
		{"defaults", PaginationParams{}, 1, 20},
		{"negative page", PaginationParams{Page: -3, Limit: 10}, 1, 10},
		{"limit capped", PaginationParams{Page: 2, Limit: 500}, 2, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize()
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
		})
	}
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(PaginationParams{Page: 3, Limit: 20}, 41)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 3, meta.CurrentPage)
	assert.Equal(t, int64(41), meta.Total)

	assert.Equal(t, 0, NewPaginationMeta(PaginationParams{Page: 1, Limit: 20}, 0).TotalPages)
}
