package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func snap(name, price string) ProductSnapshot {
	return ProductSnapshot{
		ProductID: uuid.New(),
		Name:      name,
		SKU:       "PC-" + name,
		Price:     decimal.RequireFromString(price),
	}
}

func TestAddMergesSameProductAndColor(t *testing.T) {
	c := &Cart{}
	s := snap("hdpe-pellets", "120.50")

	require.NoError(t, c.Add(s, "green", 2))
	require.NoError(t, c.Add(s, "green", 3))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 5, c.Count())
}

func TestAddKeepsColorsSeparate(t *testing.T) {
	c := &Cart{}
	s := snap("hdpe-pellets", "120.50")

	require.NoError(t, c.Add(s, "green", 1))
	require.NoError(t, c.Add(s, "black", 1))

	assert.Len(t, c.Items(), 2)
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	c := &Cart{}
	s := snap("pet-flakes", "89.99")

	assert.ErrorIs(t, c.Add(s, "clear", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, c.Add(s, "clear", -2), ErrInvalidQuantity)
	assert.Empty(t, c.Items())
}

func TestUpdateQuantityReplacesNotIncrements(t *testing.T) {
	c := &Cart{}
	s := snap("pp-regrind", "64.00")

	require.NoError(t, c.Add(s, "grey", 4))
	require.NoError(t, c.UpdateQuantity(s.ProductID, "grey", 2))

	assert.Equal(t, 2, c.Count())
	assert.ErrorIs(t, c.UpdateQuantity(s.ProductID, "grey", 0), ErrInvalidQuantity)
	assert.Equal(t, 2, c.Count(), "rejected update must not change the line")
}

func TestUpdateQuantityMissingKeyIsNoop(t *testing.T) {
	c := &Cart{}
	require.NoError(t, c.UpdateQuantity(uuid.New(), "green", 3))
	assert.Empty(t, c.Items())
}

func TestRemoveOnlyTargetsExactKey(t *testing.T) {
	c := &Cart{}
	s := snap("ldpe-film", "45.25")

	require.NoError(t, c.Add(s, "clear", 1))
	require.NoError(t, c.Add(s, "blue", 1))

	c.Remove(s.ProductID, "clear")

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "blue", items[0].SelectedColor)

	c.Remove(uuid.New(), "blue") // missing key, no-op
	assert.Len(t, c.Items(), 1)
}

func TestTotalIsExactDecimal(t *testing.T) {
	c := &Cart{}
	require.NoError(t, c.Add(snap("a", "0.10"), "", 3))
	require.NoError(t, c.Add(snap("b", "0.20"), "", 1))

	// 3*0.10 + 0.20 would drift under float64 arithmetic.
	assert.True(t, c.Total().Equal(decimal.RequireFromString("0.50")), "got %s", c.Total())
}

func TestClear(t *testing.T) {
	c := &Cart{}
	require.NoError(t, c.Add(snap("a", "1.00"), "", 2))

	c.Clear()

	assert.Empty(t, c.Items())
	assert.Equal(t, 0, c.Count())
	assert.True(t, c.Total().IsZero())
}

func TestStoreGetIsStablePerSession(t *testing.T) {
	st := NewStore()

	a := st.Get("session-a")
	require.NoError(t, a.Add(snap("a", "1.00"), "", 1))

	assert.Same(t, a, st.Get("session-a"))
	assert.Equal(t, 0, st.Get("session-b").Count())

	st.Drop("session-a")
	assert.Equal(t, 0, st.Get("session-a").Count())
}

// Derived values must stay consistent with the line items under any sequence
// of operations.
func TestCartInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := &Cart{}
		snaps := make([]ProductSnapshot, 4)
		for i := range snaps {
			snaps[i] = snap(rapid.StringMatching(`[a-z]{3,8}`).Draw(t, "name"),
				rapid.SampledFrom([]string{"10.00", "0.35", "120.50", "7.77"}).Draw(t, "price"))
		}
		colors := []string{"", "green", "black"}

		ops := rapid.IntRange(1, 40).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			s := rapid.SampledFrom(snaps).Draw(t, "snap")
			color := rapid.SampledFrom(colors).Draw(t, "color")
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				c.Add(s, color, rapid.IntRange(1, 5).Draw(t, "qty"))
			case 1:
				c.UpdateQuantity(s.ProductID, color, rapid.IntRange(1, 5).Draw(t, "qty"))
			case 2:
				c.Remove(s.ProductID, color)
			case 3:
				c.Clear()
			}
		}

		items := c.Items()

		seen := make(map[string]bool)
		wantCount := 0
		wantTotal := decimal.Zero
		for _, it := range items {
			key := it.ProductID.String() + "|" + it.SelectedColor
			if seen[key] {
				t.Fatalf("duplicate cart key %s", key)
			}
			seen[key] = true
			if it.Quantity < 1 {
				t.Fatalf("non-positive quantity %d for %s", it.Quantity, key)
			}
			wantCount += it.Quantity
			wantTotal = wantTotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}

		if c.Count() != wantCount {
			t.Fatalf("count %d does not match item sum %d", c.Count(), wantCount)
		}
		if !c.Total().Equal(wantTotal) {
			t.Fatalf("total %s does not match item sum %s", c.Total(), wantTotal)
		}
	})
}
