package orders

import (
	"errors"
	"strings"
)

const (
	PreorderMarker      = "PREORDER"
	FreeAndEasyPrefix   = "Free and Easy Returns or Exchanges"
	freeAndEasyQuantity = 1
)

var ErrNothingToCombine = errors.New("No items to combine")

func IsPreorder(item LineItem) bool {
	return strings.Contains(item.Name, PreorderMarker)
}

func IsFreeAndEasy(item LineItem) bool {
	return strings.HasPrefix(item.Name, FreeAndEasyPrefix)
}

// CombineGroup is one order to be created by a combine.
type CombineGroup struct {
	Name  string         `json:"name"`
	Lines []LineQuantity `json:"lines"`
}

// CombinePlan holds at most two groups. Preorder is always nil when
// preorders are not separated.
type CombinePlan struct {
	Regular  *CombineGroup `json:"regular,omitempty"`
	Preorder *CombineGroup `json:"preorder,omitempty"`
}

func (p CombinePlan) Groups() []*CombineGroup {
	out := make([]*CombineGroup, 0, 2)
	if p.Regular != nil {
		out = append(out, p.Regular)
	}
	if p.Preorder != nil {
		out = append(out, p.Preorder)
	}
	return out
}

// accumulator sums quantities per variant in first-seen order and keeps the
// Free and Easy variants as a set.
type accumulator struct {
	name        string
	order       []string
	qty         map[string]int
	freeOrder   []string
	freeVariant map[string]bool
}

func newAccumulator() *accumulator {
	return &accumulator{qty: map[string]int{}, freeVariant: map[string]bool{}}
}

func (a *accumulator) claimName(orderName string) {
	if a.name == "" {
		a.name = orderName + CombinedSuffix
	}
}

func (a *accumulator) add(variantID string, quantity int) {
	if _, ok := a.qty[variantID]; !ok {
		a.order = append(a.order, variantID)
	}
	a.qty[variantID] += quantity
}

func (a *accumulator) addFree(variantID string) {
	if a.freeVariant[variantID] {
		return
	}
	a.freeVariant[variantID] = true
	a.freeOrder = append(a.freeOrder, variantID)
}

// group builds the output; the Free and Easy items only ride along when
// freeNeedsRegular is false or the group already has quantity lines.
func (a *accumulator) group(freeNeedsRegular bool) *CombineGroup {
	lines := make([]LineQuantity, 0, len(a.order)+len(a.freeOrder))
	for _, v := range a.order {
		lines = append(lines, LineQuantity{VariantID: v, Quantity: a.qty[v]})
	}
	if !freeNeedsRegular || len(lines) > 0 {
		for _, v := range a.freeOrder {
			lines = append(lines, LineQuantity{VariantID: v, Quantity: freeAndEasyQuantity})
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return &CombineGroup{Name: a.name, Lines: lines}
}

// PlanCombine aggregates the line items of orders into the orders a combine
// will create. With separatePreorders, PREORDER items go to their own group.
func PlanCombine(orders []CustomerOrder, separatePreorders bool) (CombinePlan, error) {
	regular := newAccumulator()
	preorder := newAccumulator()

	for _, o := range orders {
		for _, item := range o.LineItems {
			if item.VariantID == "" {
				continue
			}
			acc := regular
			if separatePreorders && IsPreorder(item) {
				acc = preorder
			}
			if IsFreeAndEasy(item) {
				acc.addFree(item.VariantID)
			} else {
				acc.add(item.VariantID, item.Quantity)
			}
			acc.claimName(o.OrderNumber)
		}
	}

	var plan CombinePlan
	if separatePreorders {
		plan.Regular = regular.group(true)
		plan.Preorder = preorder.group(true)
	} else {
		plan.Regular = regular.group(false)
	}
	if plan.Regular == nil && plan.Preorder == nil {
		return CombinePlan{}, ErrNothingToCombine
	}
	return plan, nil
}
