package orderops

import (
	"context"
	"strings"
	"time"

	"orderdesk/internal/orders"
)

const taggedQuery = `status:open AND fulfillment_status:unfulfilled AND tag:"combine this"`

type ListTaggedRequest struct {
	First           int
	After           string
	All             bool
	IncludeCombined bool
}

type ListTaggedResult struct {
	Orders      []orders.Order `json:"ordersWithTag"`
	HasNextPage bool           `json:"hasNextPage"`
	EndCursor   string         `json:"endCursor,omitempty"`
}

// ListTagged returns the open orders staff tagged "combine this". Orders a
// combine already produced are hidden unless IncludeCombined is set.
func (s *Service) ListTagged(ctx context.Context, req ListTaggedRequest) (ListTaggedResult, error) {
	var res ListTaggedResult
	if req.All {
		all, err := s.api.SearchAllOrders(ctx, taggedQuery, req.First)
		if err != nil {
			return ListTaggedResult{}, err
		}
		res.Orders = all
	} else {
		page, err := s.api.SearchOrders(ctx, taggedQuery, req.First, req.After)
		if err != nil {
			return ListTaggedResult{}, err
		}
		res.Orders = page.Orders
		res.HasNextPage = page.HasNextPage
		res.EndCursor = page.EndCursor
	}

	if !req.IncludeCombined {
		kept := res.Orders[:0]
		for _, o := range res.Orders {
			if !orders.IsCombinedName(o.Name) {
				kept = append(kept, o)
			}
		}
		res.Orders = kept
	}
	if res.Orders == nil {
		res.Orders = []orders.Order{}
	}
	return res, nil
}

type LookupRequest struct {
	OrderNumber    string
	SelectedOrders []string
}

type UnfulfilledItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type UnfulfilledOrder struct {
	OrderNumber      string            `json:"orderNumber"`
	TotalPrice       string            `json:"totalPrice"`
	UnfulfilledItems []UnfulfilledItem `json:"unfulfilledItems"`
}

type LookupResult struct {
	UnfulfilledOrder UnfulfilledOrder       `json:"unfulfilledOrder"`
	CustomerOrders   []orders.CustomerOrder `json:"customerOrders"`
}

// candidates is the looked-up order together with the customer's open orders
// that may be merged into it.
type candidates struct {
	order    *orders.Order
	raw      []orders.Order
	customer []orders.CustomerOrder
}

func (s *Service) loadCandidates(ctx context.Context, orderNumber string, selected []string) (*candidates, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, invalid("Order number is required.")
	}
	o, err := s.findOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.Customer == nil || o.Customer.ID == "" {
		return nil, ErrNoCustomer
	}

	open, err := s.api.CustomerOpenOrders(ctx, o.Customer.ID, s.settings.CustomerOrderLimit)
	if err != nil {
		return nil, err
	}
	if len(selected) > 0 {
		pick := make(map[string]bool, len(selected))
		for _, id := range selected {
			pick[id] = true
		}
		kept := open[:0]
		for _, c := range open {
			if pick[c.ID] {
				kept = append(kept, c)
			}
		}
		open = kept
	}

	c := &candidates{order: o, raw: open, customer: make([]orders.CustomerOrder, 0, len(open))}
	for _, co := range open {
		c.customer = append(c.customer, orders.CustomerOrder{
			ID:              co.ID,
			OrderNumber:     co.Name,
			TotalPrice:      co.TotalPrice.StringFixed(2),
			CreatedAt:       co.CreatedAt.UTC().Format(time.RFC3339),
			LineItems:       co.LineItems,
			ShippingAddress: orders.NormalizeAddress(co.ShippingAddress, o.Customer),
		})
	}
	return c, nil
}

// Lookup shows an order's unfulfilled items and the customer's other open
// orders that a combine would merge.
func (s *Service) Lookup(ctx context.Context, req LookupRequest) (LookupResult, error) {
	c, err := s.loadCandidates(ctx, req.OrderNumber, req.SelectedOrders)
	if err != nil {
		return LookupResult{}, err
	}

	items := orders.UnfulfilledItems(*c.order)
	res := LookupResult{
		UnfulfilledOrder: UnfulfilledOrder{
			OrderNumber:      c.order.Name,
			TotalPrice:       c.order.TotalPrice.StringFixed(2),
			UnfulfilledItems: make([]UnfulfilledItem, 0, len(items)),
		},
		CustomerOrders: c.customer,
	}
	for _, it := range items {
		res.UnfulfilledOrder.UnfulfilledItems = append(res.UnfulfilledOrder.UnfulfilledItems, UnfulfilledItem{
			ID:       it.ID,
			Name:     it.Name,
			Quantity: it.Quantity,
		})
	}
	return res, nil
}
