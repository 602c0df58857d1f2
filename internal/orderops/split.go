package orderops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"orderdesk/internal/audit"
	"orderdesk/internal/orders"
	"orderdesk/internal/shopify"
)

const (
	splitMessage      = "Order split successfully"
	splitItemsMessage = "Order split successfully."

	splitTagFirst  = "split-order-1"
	splitTagSecond = "split-order-2"
)

// SplitRequest without Quantities only looks the order up.
type SplitRequest struct {
	OrderNumber string
	Quantities  map[string]int
}

type SplitResult struct {
	Order     *orders.Order         `json:"order,omitempty"`
	Success   bool                  `json:"success,omitempty"`
	Message   string                `json:"message,omitempty"`
	NewOrder1 *shopify.CreatedOrder `json:"newOrder1,omitempty"`
	NewOrder2 *shopify.CreatedOrder `json:"newOrder2,omitempty"`
}

type SplitItemsRequest struct {
	OrderNumber   string
	SelectedItems []string
}

// draftFrom creates and completes a draft order carrying lines for the
// original order's customer.
func (s *Service) draftFrom(ctx context.Context, o *orders.Order, lines []orders.LineQuantity, tag string) (*shopify.CreatedOrder, string, error) {
	in := shopify.DraftOrderInput{
		LineItems:       shopify.DraftLines(lines),
		ShippingAddress: shopify.AddressInput(o.ShippingAddress, o.Customer),
	}
	if o.Customer != nil {
		in.CustomerID = o.Customer.ID
		in.Email = o.Customer.Email
	}
	if tag != "" {
		in.Tags = []string{tag}
	}
	draft, err := s.api.DraftOrderCreate(ctx, in)
	if err != nil {
		return nil, "", err
	}
	created, err := s.api.DraftOrderComplete(ctx, draft.ID)
	if err != nil {
		return nil, draft.ID, err
	}
	return created, draft.ID, nil
}

type splitOutcome struct {
	first, second *shopify.CreatedOrder
}

// runSplit creates the two halves and cancels the original.
func (s *Service) runSplit(ctx context.Context, kind audit.Kind, o *orders.Order, plan orders.SplitPlan, tags [2]string, reason shopify.CancelReason) (splitOutcome, error) {
	op := s.newOperation(kind)
	op.SourceOrders = []string{o.Name}
	if err := s.archive(ctx, op, []orders.Order{*o}); err != nil {
		return splitOutcome{}, err
	}

	var out splitOutcome
	halves := []struct {
		lines []orders.LineQuantity
		tag   string
		dst   **shopify.CreatedOrder
	}{
		{plan.First, tags[0], &out.first},
		{plan.Second, tags[1], &out.second},
	}
	for _, h := range halves {
		if len(h.lines) == 0 {
			continue
		}
		created, draftID, err := s.draftFrom(ctx, o, h.lines, h.tag)
		if draftID != "" {
			op.DraftOrders = append(op.DraftOrders, draftID)
		}
		if err != nil {
			s.finish(ctx, op)
			return splitOutcome{}, err
		}
		*h.dst = created
		op.CreatedOrders = append(op.CreatedOrders, created.Name)
	}

	_, err := s.api.OrderCancel(ctx, shopify.OrderCancelInput{
		OrderID: o.ID,
		Reason:  reason,
		Refund:  false,
		Restock: true,
	})
	if err != nil {
		s.finish(ctx, op)
		return splitOutcome{}, err
	}
	op.CancelledOrders = []string{o.Name}
	s.finish(ctx, op)
	return out, nil
}

// Split moves the requested quantity of each variant to a new order and the
// rest to a second one, then cancels the original.
func (s *Service) Split(ctx context.Context, req SplitRequest) (SplitResult, error) {
	if strings.TrimSpace(req.OrderNumber) == "" {
		return SplitResult{}, invalid("Order number is required.")
	}
	o, err := s.findOrder(ctx, req.OrderNumber)
	if err != nil {
		return SplitResult{}, err
	}
	if req.Quantities == nil {
		return SplitResult{Order: o}, nil
	}

	plan, err := orders.PlanSplitByQuantity(*o, req.Quantities)
	if err != nil {
		return SplitResult{}, err
	}
	out, err := s.runSplit(ctx, audit.KindSplit, o, plan, [2]string{}, shopify.CancelReasonOther)
	if err != nil {
		return SplitResult{}, err
	}
	return SplitResult{Success: true, Message: splitMessage, NewOrder1: out.first, NewOrder2: out.second}, nil
}

// SplitByItems moves whole line items to a new order and keeps the rest on a
// second one. Both are tagged so staff can find them.
func (s *Service) SplitByItems(ctx context.Context, req SplitItemsRequest) (SplitResult, error) {
	if strings.TrimSpace(req.OrderNumber) == "" {
		return SplitResult{}, invalid("Order number is required.")
	}
	if len(req.SelectedItems) == 0 {
		return SplitResult{}, invalid(orders.ErrNoItemsSelected.Error())
	}
	o, err := s.findOrder(ctx, req.OrderNumber)
	if errors.Is(err, ErrOrderNotFound) {
		return SplitResult{}, fmt.Errorf("%w.", ErrOrderNotFound)
	}
	if err != nil {
		return SplitResult{}, err
	}

	plan, err := orders.PlanSplitByItems(*o, req.SelectedItems)
	if err != nil {
		return SplitResult{}, invalid(err.Error())
	}
	out, err := s.runSplit(ctx, audit.KindSplitItems, o, plan, [2]string{splitTagFirst, splitTagSecond}, shopify.CancelReasonCustomer)
	if err != nil {
		return SplitResult{}, err
	}
	return SplitResult{Success: true, Message: splitItemsMessage, NewOrder1: out.first, NewOrder2: out.second}, nil
}
