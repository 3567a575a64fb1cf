package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCleaner(t *testing.T) *Cleaner {
	t.Helper()
	kw, err := LoadKeywords("")
	require.NoError(t, err)
	table, err := NewRuleTable(kw)
	require.NoError(t, err)
	return NewCleaner(table)
}

func TestCleanStripsPricePhrases(t *testing.T) {
	c := newTestCleaner(t)

	tests := []struct {
		query string
		want  string
	}{
		{"goedkope jas geel", "jas geel"},
		{"cheap shoes red", "shoes red"},
		{"budget friendly items", "friendly items"},
		{"voordelige kleding", "kleding"},
		{"dure kleding", "kleding"},
		{"expensive shoes", "shoes"},
		{"luxe accessoires", "accessoires"},
		{"premium quality", "quality"},
		{"schoenen onder 50 euro", "schoenen"},
		{"shoes between 75 and 125", "shoes"},
		{"red jacket between 100 and 300 euro", "red jacket"},
		{"kleding rond 100 euro", "kleding"},
		{"jas tussen 50 en 100 euro", "jas"},
		{"goedkoop 50 euro shirt", "shirt"},
		{"red 100 goedkoop euro shirt", "red shirt"},
		{"rode schoenen", "rode schoenen"},
		{"katoenen shirt", "katoenen shirt"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Clean(tt.query))
		})
	}
}

func TestCleanPreservesCasing(t *testing.T) {
	c := newTestCleaner(t)

	assert.Equal(t, "Jas Geel", c.Clean("Goedkope Jas Geel"))
}

func TestCleanNeverReturnsEmpty(t *testing.T) {
	c := newTestCleaner(t)

	for _, query := range []string{"goedkoop", "duur", "onder 50 euro", "", "   "} {
		t.Run("query "+query, func(t *testing.T) {
			assert.Equal(t, query, c.Clean(query))
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	c := newTestCleaner(t)

	// The last two interleave a keyword with an amount; stripping the
	// keyword exposes "<amount> euro", which must fall in the same pass.
	queries := []string{
		"goedkope jas geel",
		"schoenen onder 50 euro",
		"rode schoenen",
		"goedkoop 50 euro shirt",
		"red 100 goedkoop euro shirt",
	}
	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			once := c.Clean(query)
			assert.Equal(t, once, c.Clean(once))
		})
	}
}
