package orderops

import (
	"context"
	"strings"

	"orderdesk/internal/audit"
	"orderdesk/internal/orders"
	"orderdesk/internal/shopify"
)

type DraftRequest struct {
	CustomerID string                `json:"customerId"`
	LineItems  []orders.LineQuantity `json:"lineItems"`
}

type DraftResult struct {
	Success      bool   `json:"success"`
	DraftOrderID string `json:"draftOrderId"`
}

// CreateCombinedDraft opens a plain draft order for the customer. Nothing is
// cancelled; staff finish the draft in the admin.
func (s *Service) CreateCombinedDraft(ctx context.Context, req DraftRequest) (DraftResult, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return DraftResult{}, invalid("Customer id is required.")
	}
	lines := make([]orders.LineQuantity, 0, len(req.LineItems))
	for _, l := range req.LineItems {
		if l.VariantID == "" || l.Quantity <= 0 {
			continue
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return DraftResult{}, invalid(orders.ErrNothingToCombine.Error())
	}

	draft, err := s.api.DraftOrderCreate(ctx, shopify.DraftOrderInput{
		LineItems:  shopify.DraftLines(lines),
		CustomerID: req.CustomerID,
	})
	if err != nil {
		return DraftResult{}, err
	}

	op := s.newOperation(audit.KindDraft)
	op.DraftOrders = []string{draft.ID}
	s.finish(ctx, op)
	return DraftResult{Success: true, DraftOrderID: draft.ID}, nil
}
