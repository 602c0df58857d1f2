package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, name string, qty int, variant string) LineItem {
	return LineItem{ID: id, Name: name, Quantity: qty, UnfulfilledQuantity: qty, VariantID: variant}
}

func TestNormalizeAddress(t *testing.T) {
	cust := &Customer{FirstName: "Ada", LastName: "Lovelace"}

	t.Run("nil address", func(t *testing.T) {
		assert.Nil(t, NormalizeAddress(nil, cust))
	})

	t.Run("lower-cases and trims, keeps customer name", func(t *testing.T) {
		n := NormalizeAddress(&Address{
			Address1: "  12 Main St ",
			City:     "Denver",
			Country:  "United States",
			Province: "CO",
			Zip:      " 80202",
		}, cust)
		require.NotNil(t, n)
		assert.Equal(t, "Ada", n.FirstName)
		assert.Equal(t, "Lovelace", n.LastName)
		assert.Equal(t, "12 main st", n.Address1)
		assert.Equal(t, "", n.Address2)
		assert.Equal(t, "denver", n.City)
		assert.Equal(t, "co", n.Province)
		assert.Equal(t, "80202", n.Zip)
	})

	t.Run("nil customer gives empty names", func(t *testing.T) {
		n := NormalizeAddress(&Address{City: "X"}, nil)
		require.NotNil(t, n)
		assert.Empty(t, n.FirstName)
		assert.Empty(t, n.LastName)
	})
}

func TestAddressesMatch(t *testing.T) {
	a := NormalizeAddress(&Address{Address1: "1 Elm", City: "Boise", Zip: "83702"}, nil)
	b := NormalizeAddress(&Address{Address1: "1 ELM ", City: " boise", Zip: "83702"}, nil)
	c := NormalizeAddress(&Address{Address1: "2 Elm", City: "Boise", Zip: "83702"}, nil)

	assert.True(t, AddressesMatch(a, b))
	assert.False(t, AddressesMatch(a, c))
	assert.False(t, AddressesMatch(a, nil))
	assert.False(t, AddressesMatch(nil, nil))
}

func TestCheckAddresses(t *testing.T) {
	orig := NormalizeAddress(&Address{Address1: "1 Elm"}, nil)
	same := NormalizeAddress(&Address{Address1: "1 elm"}, nil)
	other := NormalizeAddress(&Address{Address1: "9 Oak"}, nil)

	err := CheckAddresses(orig, []CustomerOrder{
		{OrderNumber: "#1001", ShippingAddress: same},
		{OrderNumber: "#1002", ShippingAddress: other},
		{OrderNumber: "#1003", ShippingAddress: nil},
	})
	var mismatch *AddressMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "#1002", mismatch.OrderName)
	assert.Contains(t, err.Error(), "The shipping address for order #1002 does not match")

	assert.NoError(t, CheckAddresses(orig, []CustomerOrder{{OrderNumber: "#1", ShippingAddress: same}}))
	assert.Error(t, CheckAddresses(nil, []CustomerOrder{{OrderNumber: "#1", ShippingAddress: same}}))
}

func TestPlanCombine_SeparatesPreorders(t *testing.T) {
	orders := []CustomerOrder{
		{OrderNumber: "#1001", LineItems: []LineItem{
			item("l1", "Blue Shirt", 1, "v1"),
			item("l2", "Free and Easy Returns or Exchanges", 1, "fe"),
		}},
		{OrderNumber: "#1002", LineItems: []LineItem{
			item("l3", "Blue Shirt", 2, "v1"),
			item("l4", "Jacket - PREORDER", 1, "p1"),
			item("l5", "Free and Easy Returns or Exchanges", 1, "fe"),
			item("l6", "Gift card", 1, ""),
		}},
	}

	plan, err := PlanCombine(orders, true)
	require.NoError(t, err)

	require.NotNil(t, plan.Regular)
	assert.Equal(t, "#1001-C", plan.Regular.Name)
	assert.Equal(t, []LineQuantity{{"v1", 3}, {"fe", 1}}, plan.Regular.Lines)

	require.NotNil(t, plan.Preorder)
	assert.Equal(t, "#1002-C", plan.Preorder.Name)
	assert.Equal(t, []LineQuantity{{"p1", 1}}, plan.Preorder.Lines)
	assert.Len(t, plan.Groups(), 2)
}

func TestPlanCombine_FreeAndEasyAloneDoesNotMakeAGroup(t *testing.T) {
	orders := []CustomerOrder{
		{OrderNumber: "#2001", LineItems: []LineItem{
			item("l1", "Free and Easy Returns or Exchanges - PREORDER", 1, "fe-pre"),
			item("l2", "Boots", 1, "v9"),
		}},
	}

	plan, err := PlanCombine(orders, true)
	require.NoError(t, err)
	assert.Nil(t, plan.Preorder)
	require.NotNil(t, plan.Regular)
	assert.Equal(t, []LineQuantity{{"v9", 1}}, plan.Regular.Lines)
}

func TestPlanCombine_IgnorePreorderSeparation(t *testing.T) {
	orders := []CustomerOrder{
		{OrderNumber: "#3001", LineItems: []LineItem{
			item("l1", "Free and Easy Returns or Exchanges", 1, "fe"),
		}},
		{OrderNumber: "#3002", LineItems: []LineItem{
			item("l2", "Hat - PREORDER", 2, "p1"),
			item("l3", "Hat - PREORDER", 1, "p1"),
		}},
	}

	plan, err := PlanCombine(orders, false)
	require.NoError(t, err)
	assert.Nil(t, plan.Preorder)
	require.NotNil(t, plan.Regular)
	assert.Equal(t, "#3001-C", plan.Regular.Name)
	assert.Equal(t, []LineQuantity{{"p1", 3}, {"fe", 1}}, plan.Regular.Lines)
}

func TestPlanCombine_OnlyFreeAndEasyWhenIgnoringPreorders(t *testing.T) {
	plan, err := PlanCombine([]CustomerOrder{{OrderNumber: "#1", LineItems: []LineItem{
		item("l1", "Free and Easy Returns or Exchanges", 1, "fe"),
	}}}, false)
	require.NoError(t, err)
	assert.Equal(t, []LineQuantity{{"fe", 1}}, plan.Regular.Lines)
}

func TestPlanCombine_Nothing(t *testing.T) {
	_, err := PlanCombine([]CustomerOrder{{OrderNumber: "#1", LineItems: []LineItem{
		item("l1", "Custom item", 1, ""),
	}}}, true)
	assert.ErrorIs(t, err, ErrNothingToCombine)

	_, err = PlanCombine(nil, false)
	assert.ErrorIs(t, err, ErrNothingToCombine)
}

func TestPlanSplitByQuantity(t *testing.T) {
	o := Order{Name: "#5001", LineItems: []LineItem{
		item("l1", "Socks", 3, "v1"),
		item("l2", "Cap", 1, "v2"),
	}}

	tests := []struct {
		name    string
		qty     map[string]int
		want    SplitPlan
		wantErr error
	}{
		{
			name: "partial quantity",
			qty:  map[string]int{"v1": 2},
			want: SplitPlan{
				First:  []LineQuantity{{"v1", 2}},
				Second: []LineQuantity{{"v1", 1}, {"v2", 1}},
			},
		},
		{
			name: "whole line moves",
			qty:  map[string]int{"v2": 1},
			want: SplitPlan{
				First:  []LineQuantity{{"v2", 1}},
				Second: []LineQuantity{{"v1", 3}},
			},
		},
		{
			name: "oversized quantity is clamped",
			qty:  map[string]int{"v1": 10},
			want: SplitPlan{
				First:  []LineQuantity{{"v1", 3}},
				Second: []LineQuantity{{"v2", 1}},
			},
		},
		{
			name: "nothing selected keeps everything on the second order",
			qty:  map[string]int{},
			want: SplitPlan{Second: []LineQuantity{{"v1", 3}, {"v2", 1}}},
		},
		{
			name:    "everything moved",
			qty:     map[string]int{"v1": 3, "v2": 1},
			wantErr: ErrNothingRemaining,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanSplitByQuantity(o, tt.qty)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := PlanSplitByQuantity(o, map[string]int{"v1": -1})
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	_, err = PlanSplitByQuantity(Order{LineItems: []LineItem{item("l1", "Tip", 1, "")}}, nil)
	assert.ErrorIs(t, err, ErrNoVariant)
	assert.EqualError(t, err, "Line item has no variant and cannot be split: Tip")
}

func TestPlanSplitByItems(t *testing.T) {
	o := Order{Name: "#6001", LineItems: []LineItem{
		item("l1", "Socks", 3, "v1"),
		item("l2", "Cap", 1, "v2"),
	}}

	plan, err := PlanSplitByItems(o, []string{"l2"})
	require.NoError(t, err)
	assert.Equal(t, []LineQuantity{{"v2", 1}}, plan.First)
	assert.Equal(t, []LineQuantity{{"v1", 3}}, plan.Second)

	_, err = PlanSplitByItems(o, nil)
	assert.ErrorIs(t, err, ErrNoItemsSelected)

	_, err = PlanSplitByItems(o, []string{"missing"})
	assert.ErrorIs(t, err, ErrNoItemsSelected)

	_, err = PlanSplitByItems(o, []string{"l1", "l2"})
	assert.ErrorIs(t, err, ErrNothingRemaining)
}

func TestScanSession(t *testing.T) {
	o := Order{ID: "gid://shopify/Order/77", Name: "#7001", LineItems: []LineItem{
		{ID: "l1", Name: "Socks", Quantity: 2, SKU: "SOCK-1"},
		{ID: "l2", Name: "Cap", Quantity: 1, SKU: "CAP-1"},
	}}
	s := NewScanSession(o)
	assert.Equal(t, 3, s.Remaining())
	assert.False(t, s.Complete())

	line, err := s.Record(" SOCK-1 ")
	require.NoError(t, err)
	assert.Equal(t, 1, line.Scanned)

	_, err = s.Record("SOCK-1")
	require.NoError(t, err)

	_, err = s.Record("SOCK-1")
	assert.ErrorIs(t, err, ErrUnexpectedSKU)

	_, err = s.Record("NOPE")
	assert.ErrorIs(t, err, ErrUnexpectedSKU)

	_, err = s.Record("")
	assert.ErrorIs(t, err, ErrUnexpectedSKU)

	_, err = s.Record("CAP-1")
	require.NoError(t, err)
	assert.True(t, s.Complete())
	assert.Zero(t, s.Remaining())
}

func TestScanSession_SharedSKUFillsLinesInOrder(t *testing.T) {
	s := NewScanSession(Order{LineItems: []LineItem{
		{ID: "a", SKU: "X", Quantity: 1},
		{ID: "b", SKU: "X", Quantity: 1},
	}})
	l, err := s.Record("X")
	require.NoError(t, err)
	assert.Equal(t, "a", l.LineItemID)
	l, err = s.Record("X")
	require.NoError(t, err)
	assert.Equal(t, "b", l.LineItemID)
	assert.True(t, s.Complete())
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "123", NumericID("gid://shopify/Order/123"))
	assert.Equal(t, "abc", NumericID("abc"))
	assert.True(t, IsCombinedName("#1001-C"))
	assert.False(t, IsCombinedName("#1001"))

	o := Order{LineItems: []LineItem{
		{ID: "a", Quantity: 2, UnfulfilledQuantity: 2},
		{ID: "b", Quantity: 2, UnfulfilledQuantity: 1},
		{ID: "c", Quantity: 1, UnfulfilledQuantity: 0},
	}}
	got := UnfulfilledItems(o)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}
