package orders

import (
	"errors"
	"fmt"
)

var (
	ErrNothingRemaining = errors.New("There are no items left to create the second order.")
	ErrNoItemsSelected  = errors.New("At least one item must be selected to split the order.")
	ErrNegativeQuantity = errors.New("Split quantity must not be negative")
	ErrNoVariant        = errors.New("Line item has no variant and cannot be split")
)

// SplitPlan holds the line items of the two orders replacing the original.
// First may be empty when nothing was moved.
type SplitPlan struct {
	First  []LineQuantity `json:"first"`
	Second []LineQuantity `json:"second"`
}

// PlanSplitByQuantity moves quantities[variantID] units of each line item to
// the first order and leaves the rest on the second.
func PlanSplitByQuantity(o Order, quantities map[string]int) (SplitPlan, error) {
	var plan SplitPlan
	for _, item := range o.LineItems {
		if item.VariantID == "" {
			return SplitPlan{}, fmt.Errorf("%w: %s", ErrNoVariant, item.Name)
		}
		move := quantities[item.VariantID]
		if move < 0 {
			return SplitPlan{}, fmt.Errorf("%w: %s", ErrNegativeQuantity, item.Name)
		}
		if move > item.Quantity {
			move = item.Quantity
		}
		if move > 0 {
			plan.First = append(plan.First, LineQuantity{VariantID: item.VariantID, Quantity: move})
		}
		if rest := item.Quantity - move; rest > 0 {
			plan.Second = append(plan.Second, LineQuantity{VariantID: item.VariantID, Quantity: rest})
		}
	}
	if len(plan.Second) == 0 {
		return SplitPlan{}, ErrNothingRemaining
	}
	return plan, nil
}

// PlanSplitByItems moves the selected line items, whole, to the first order.
func PlanSplitByItems(o Order, selected []string) (SplitPlan, error) {
	if len(selected) == 0 {
		return SplitPlan{}, ErrNoItemsSelected
	}
	pick := make(map[string]bool, len(selected))
	for _, id := range selected {
		pick[id] = true
	}

	var plan SplitPlan
	for _, item := range o.LineItems {
		if item.VariantID == "" {
			return SplitPlan{}, fmt.Errorf("%w: %s", ErrNoVariant, item.Name)
		}
		lq := LineQuantity{VariantID: item.VariantID, Quantity: item.Quantity}
		if pick[item.ID] {
			plan.First = append(plan.First, lq)
		} else {
			plan.Second = append(plan.Second, lq)
		}
	}
	if len(plan.First) == 0 {
		return SplitPlan{}, ErrNoItemsSelected
	}
	if len(plan.Second) == 0 {
		return SplitPlan{}, ErrNothingRemaining
	}
	return plan, nil
}
