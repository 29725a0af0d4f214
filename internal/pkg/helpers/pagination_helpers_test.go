package helpers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCalculateOffsetLimit(t *testing.T) {
	tests := []struct {
		page, size int
		offset     uint64
		limit      int
	}{
		{1, 10, 0, 10},
		{3, 10, 20, 10},
		{0, 10, 0, 10},
		{2, 0, 20, DefaultPageSize},
		{2, 1000, 20, DefaultPageSize},
	}
	for _, tt := range tests {
		offset, limit := CalculateOffsetLimit(tt.page, tt.size)
		assert.Equal(t, tt.offset, offset)
		assert.Equal(t, tt.limit, limit)
	}
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(45, Page{Number: 2, Size: 20})
	assert.Equal(t, 3, info.TotalPages)
	assert.Equal(t, 2, info.CurrentPage)
	assert.Equal(t, int64(45), info.TotalItems)

	empty := NewPaginationInfo(0, Page{Number: 1, Size: 20})
	assert.Equal(t, 1, empty.TotalPages)
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name  string
		query string
		want  Page
	}{
		{"explicit", "?page=3&size=5", Page{Number: 3, Size: 5}},
		{"defaults", "", Page{Number: DefaultPage, Size: DefaultPageSize}},
		{"invalid input", "?page=-1&size=abc", Page{Number: DefaultPage, Size: DefaultPageSize}},
		{"size above max", "?page=2&size=500", Page{Number: 2, Size: DefaultPageSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Query values are cached per context, so each case needs its own
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/"+tt.query, nil)
			assert.Equal(t, tt.want, ParsePaginationParams(c))
		})
	}
}

func TestPage_OffsetLimit(t *testing.T) {
	p := Page{Number: 1, Size: DefaultPageSize}
	assert.Equal(t, uint64(0), p.Offset())
	assert.Equal(t, uint64(DefaultPageSize), p.Limit())

	p = Page{Number: 3, Size: 5}
	assert.Equal(t, uint64(10), p.Offset())
	assert.Equal(t, uint64(5), p.Limit())
}
