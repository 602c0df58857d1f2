package orderops

import (
	"context"
	"time"

	"orderdesk/internal/audit"
	"orderdesk/internal/orders"
	"orderdesk/internal/shopify"

	"go.uber.org/zap"
)

const (
	combinedAtLayout   = "1/2/2006, 3:04:05 PM"
	combineStaffNote   = "Order combined with other orders"
	inventoryBehaviour = "DECREMENT_IGNORING_POLICY"

	combinedMessage  = "New combined order created, and original orders canceled successfully"
	combinedMessages = "New combined orders created, and original orders canceled successfully"
)

type CombineRequest struct {
	OrderNumber              string
	SelectedOrders           []string
	DisableAddressCheck      bool
	IgnorePreorderSeparation bool
}

type CombineResult struct {
	Success                bool                  `json:"success"`
	Message                string                `json:"message"`
	CompletedOrder         *shopify.CreatedOrder `json:"completedOrder,omitempty"`
	PreorderCompletedOrder *shopify.CreatedOrder `json:"preorderCompletedOrder,omitempty"`
}

// CombinedAtTag stamps a combined order with the local time it was made.
func CombinedAtTag(at time.Time, loc *time.Location) string {
	return "Combined at: " + at.In(loc).Format(combinedAtLayout)
}

func (s *Service) combinedOrderInput(g *orders.CombineGroup, original *orders.Order, tag string) shopify.OrderCreateInput {
	zero := shopify.ZeroPrice(s.settings.Currency)
	lines := make([]shopify.OrderLineItemInput, 0, len(g.Lines))
	for _, l := range g.Lines {
		lines = append(lines, shopify.OrderLineItemInput{
			VariantID:        l.VariantID,
			Quantity:         l.Quantity,
			RequiresShipping: true,
			PriceSet:         zero,
		})
	}
	addr := shopify.AddressInput(original.ShippingAddress, original.Customer)
	return shopify.OrderCreateInput{
		Name:            g.Name,
		LineItems:       lines,
		CustomerID:      original.Customer.ID,
		ShippingAddress: addr,
		BillingAddress:  addr,
		ShippingLines: []shopify.ShippingLineInput{{
			Title:    "Standard Shipping",
			Code:     "standard",
			Source:   "Custom",
			PriceSet: zero,
		}},
		FinancialStatus: "PAID",
		Tags:            []string{tag},
	}
}

// Combine merges the customer's open orders into one new order, or two when
// preorder items are kept apart, then cancels the originals.
func (s *Service) Combine(ctx context.Context, req CombineRequest) (CombineResult, error) {
	c, err := s.loadCandidates(ctx, req.OrderNumber, req.SelectedOrders)
	if err != nil {
		return CombineResult{}, err
	}
	if len(c.customer) == 0 {
		return CombineResult{}, ErrNoOrdersToCombine
	}

	if !req.DisableAddressCheck {
		original := orders.NormalizeAddress(c.order.ShippingAddress, c.order.Customer)
		if err := orders.CheckAddresses(original, c.customer); err != nil {
			return CombineResult{}, err
		}
	}

	separate := !req.IgnorePreorderSeparation
	plan, err := orders.PlanCombine(c.customer, separate)
	if err != nil {
		return CombineResult{}, err
	}

	op := s.newOperation(audit.KindCombine)
	op.SourceOrders = orderNames(c.raw)
	if err := s.archive(ctx, op, c.raw); err != nil {
		return CombineResult{}, err
	}

	tag := CombinedAtTag(s.now(), s.settings.Location)
	opts := shopify.OrderCreateOptions{InventoryBehaviour: inventoryBehaviour, SendReceipt: s.settings.SendReceipt}

	var res CombineResult
	if plan.Regular != nil {
		created, err := s.api.OrderCreate(ctx, s.combinedOrderInput(plan.Regular, c.order, tag), opts)
		if err != nil {
			return CombineResult{}, err
		}
		res.CompletedOrder = created
		op.CreatedOrders = append(op.CreatedOrders, created.Name)
	}
	if plan.Preorder != nil {
		created, err := s.api.OrderCreate(ctx, s.combinedOrderInput(plan.Preorder, c.order, tag), opts)
		if err != nil {
			s.finish(ctx, op)
			return CombineResult{}, err
		}
		res.PreorderCompletedOrder = created
		op.CreatedOrders = append(op.CreatedOrders, created.Name)
	}

	for _, o := range c.raw {
		_, err := s.api.OrderCancel(ctx, shopify.OrderCancelInput{
			OrderID:   o.ID,
			Reason:    shopify.CancelReasonOther,
			Refund:    false,
			Restock:   true,
			StaffNote: combineStaffNote,
		})
		if err != nil {
			s.log.Error("cancel after combine failed", zap.String("order", o.Name), zap.Error(err))
			s.finish(ctx, op)
			return CombineResult{}, err
		}
		op.CancelledOrders = append(op.CancelledOrders, o.Name)
	}
	s.finish(ctx, op)

	res.Success = true
	res.Message = combinedMessage
	if separate {
		res.Message = combinedMessages
	}
	return res, nil
}
