package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestSellerNTNIndexIsKeyable(t *testing.T) {
	s, err := schema.Parse(&Tenant{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	f := s.LookUpField("SellerNTN")
	require.NotNil(t, f)
	assert.Equal(t, "seller_ntn", f.DBName)
	assert.Equal(t, "varchar(32)", string(f.DataType))
}
