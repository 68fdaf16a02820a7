package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeClamps(t *testing.T) {
	p := Pagination{Page: 0, PageSize: 500}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPageSize, p.PageSize)

	p = Pagination{Page: 3, PageSize: 0}.Normalize()
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 40, p.Offset())
}

func TestBuildPageInfo(t *testing.T) {
	info := BuildPageInfo(Pagination{Page: 1, PageSize: 10}, 25)
	assert.True(t, info.HasMore)
	assert.Equal(t, int64(25), info.Total)

	info = BuildPageInfo(Pagination{Page: 3, PageSize: 10}, 25)
	assert.False(t, info.HasMore)
}
