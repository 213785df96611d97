package paginate_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"farmlink/pkg/paginate"
)

func TestFromRequestDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/products", nil)
	p := paginate.FromRequest(r, 12)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 12, p.Limit)
	assert.EqualValues(t, 0, p.Skip())
}

func TestFromRequestClamping(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/products?page=-3&limit=5000", nil)
	p := paginate.FromRequest(r, 12)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.Limit)
}

func TestSkip(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/orders?page=3&limit=10", nil)
	p := paginate.FromRequest(r, 10)

	assert.EqualValues(t, 20, p.Skip())
}

func TestNewMeta(t *testing.T) {
	p := paginate.Params{Page: 2, Limit: 10}
	meta := paginate.NewMeta(p, 10, 25)

	assert.Equal(t, 2, meta.CurrentPage)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrev)
}

func TestNewMetaLastPage(t *testing.T) {
	p := paginate.Params{Page: 3, Limit: 10}
	meta := paginate.NewMeta(p, 5, 25)

	assert.False(t, meta.HasNext)
	assert.True(t, meta.HasPrev)
	assert.Equal(t, 3, meta.TotalPages)
}
