package shopify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"orderdesk/internal/orders"

	"github.com/shopspring/decimal"
)

const maxPageSize = 250

type money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type orderNode struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"createdAt"`
	TotalPriceSet struct {
		ShopMoney money `json:"shopMoney"`
	} `json:"totalPriceSet"`
	Customer        *orders.Customer `json:"customer"`
	ShippingAddress *orders.Address  `json:"shippingAddress"`
	LineItems       struct {
		Nodes []lineItemNode `json:"nodes"`
	} `json:"lineItems"`
}

type lineItemNode struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Quantity            int     `json:"quantity"`
	UnfulfilledQuantity int     `json:"unfulfilledQuantity"`
	SKU                 *string `json:"sku"`
	Variant             *struct {
		ID  string  `json:"id"`
		SKU *string `json:"sku"`
	} `json:"variant"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type ordersData struct {
	Orders struct {
		Nodes    []orderNode `json:"nodes"`
		PageInfo pageInfo    `json:"pageInfo"`
	} `json:"orders"`
}

func (n orderNode) toOrder() orders.Order {
	o := orders.Order{
		ID:              n.ID,
		Name:            n.Name,
		Tags:            n.Tags,
		CreatedAt:       n.CreatedAt,
		Customer:        n.Customer,
		ShippingAddress: n.ShippingAddress,
		LineItems:       make([]orders.LineItem, 0, len(n.LineItems.Nodes)),
	}
	if amt, err := decimal.NewFromString(n.TotalPriceSet.ShopMoney.Amount); err == nil {
		o.TotalPrice = amt
	}
	for _, li := range n.LineItems.Nodes {
		item := orders.LineItem{
			ID:                  li.ID,
			Name:                li.Name,
			Quantity:            li.Quantity,
			UnfulfilledQuantity: li.UnfulfilledQuantity,
		}
		if li.SKU != nil {
			item.SKU = *li.SKU
		}
		if li.Variant != nil {
			item.VariantID = li.Variant.ID
			if item.SKU == "" && li.Variant.SKU != nil {
				item.SKU = *li.Variant.SKU
			}
		}
		o.LineItems = append(o.LineItems, item)
	}
	return o
}

// OrdersPage is one page of an orders search.
type OrdersPage struct {
	Orders      []orders.Order `json:"orders"`
	HasNextPage bool           `json:"hasNextPage"`
	EndCursor   string         `json:"endCursor,omitempty"`
}

type searchOpts struct {
	sortKey string
	reverse bool
}

func (c *Client) searchOrders(ctx context.Context, query string, first int, after string, opts searchOpts) (OrdersPage, error) {
	if first <= 0 || first > maxPageSize {
		first = maxPageSize
	}
	vars := map[string]any{
		"first": first,
		"query": query,
	}
	if after != "" {
		vars["after"] = after
	}
	if opts.sortKey != "" {
		vars["sortKey"] = opts.sortKey
		vars["reverse"] = opts.reverse
	}

	data, err := PostGraphQL[ordersData](ctx, c, ordersQuery, vars)
	if err != nil {
		return OrdersPage{}, err
	}

	page := OrdersPage{
		Orders:      make([]orders.Order, 0, len(data.Orders.Nodes)),
		HasNextPage: data.Orders.PageInfo.HasNextPage,
		EndCursor:   data.Orders.PageInfo.EndCursor,
	}
	for _, n := range data.Orders.Nodes {
		page.Orders = append(page.Orders, n.toOrder())
	}
	return page, nil
}

// SearchOrders returns one page of orders matching a Shopify search query.
func (c *Client) SearchOrders(ctx context.Context, query string, first int, after string) (OrdersPage, error) {
	return c.searchOrders(ctx, query, first, after, searchOpts{})
}

// SearchAllOrders walks every page of a search.
func (c *Client) SearchAllOrders(ctx context.Context, query string, pageSize int) ([]orders.Order, error) {
	var all []orders.Order
	after := ""
	for {
		page, err := c.SearchOrders(ctx, query, pageSize, after)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Orders...)
		if !page.HasNextPage || page.EndCursor == "" {
			return all, nil
		}
		after = page.EndCursor
	}
}

// FindOrderByName looks an order up by its display name ("#1001" or "1001").
func (c *Client) FindOrderByName(ctx context.Context, name string) (*orders.Order, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrOrderNotFound
	}
	page, err := c.searchOrders(ctx, "name:"+quoteSearchValue(name), 1, "", searchOpts{})
	if err != nil {
		return nil, err
	}
	if len(page.Orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &page.Orders[0], nil
}

// CustomerOpenOrders returns the customer's open, unfulfilled orders, newest first.
func (c *Client) CustomerOpenOrders(ctx context.Context, customerGID string, limit int) ([]orders.Order, error) {
	q := fmt.Sprintf("status:open AND fulfillment_status:unfulfilled AND customer_id:%s", orders.NumericID(customerGID))
	page, err := c.searchOrders(ctx, q, limit, "", searchOpts{sortKey: "CREATED_AT", reverse: true})
	if err != nil {
		return nil, err
	}
	return page.Orders, nil
}

func quoteSearchValue(v string) string {
	if strings.ContainsAny(v, " :\"") {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}

type MoneyInput struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type MoneyBagInput struct {
	ShopMoney MoneyInput `json:"shopMoney"`
}

// ZeroPrice is a 0.00 price set in the given currency.
func ZeroPrice(currency string) *MoneyBagInput {
	return &MoneyBagInput{ShopMoney: MoneyInput{Amount: decimal.Zero.StringFixed(2), CurrencyCode: currency}}
}

type MailingAddressInput struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Address1  string `json:"address1,omitempty"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	Province  string `json:"province,omitempty"`
	Zip       string `json:"zip,omitempty"`
}

// AddressInput copies an order address, naming it after the customer.
func AddressInput(a *orders.Address, c *orders.Customer) *MailingAddressInput {
	if a == nil {
		return nil
	}
	in := &MailingAddressInput{
		Address1: a.Address1,
		Address2: a.Address2,
		City:     a.City,
		Country:  a.Country,
		Province: a.Province,
		Zip:      a.Zip,
	}
	if c != nil {
		in.FirstName = c.FirstName
		in.LastName = c.LastName
	}
	return in
}

type OrderLineItemInput struct {
	VariantID        string         `json:"variantId"`
	Quantity         int            `json:"quantity"`
	RequiresShipping bool           `json:"requiresShipping"`
	PriceSet         *MoneyBagInput `json:"priceSet,omitempty"`
}

type ShippingLineInput struct {
	Title    string         `json:"title"`
	Code     string         `json:"code,omitempty"`
	Source   string         `json:"source,omitempty"`
	PriceSet *MoneyBagInput `json:"priceSet"`
}

type OrderCreateInput struct {
	Name            string               `json:"name,omitempty"`
	LineItems       []OrderLineItemInput `json:"lineItems"`
	CustomerID      string               `json:"customerId,omitempty"`
	Email           string               `json:"email,omitempty"`
	ShippingAddress *MailingAddressInput `json:"shippingAddress,omitempty"`
	BillingAddress  *MailingAddressInput `json:"billingAddress,omitempty"`
	ShippingLines   []ShippingLineInput  `json:"shippingLines,omitempty"`
	FinancialStatus string               `json:"financialStatus,omitempty"`
	Tags            []string             `json:"tags,omitempty"`
}

type OrderCreateOptions struct {
	InventoryBehaviour string `json:"inventoryBehaviour,omitempty"`
	SendReceipt        bool   `json:"sendReceipt"`
}

// CreatedOrder is the order returned by orderCreate and draftOrderComplete.
type CreatedOrder struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	RequiresShipping bool   `json:"requiresShipping,omitempty"`
	TotalTaxSet      *struct {
		ShopMoney money `json:"shopMoney"`
	} `json:"totalTaxSet,omitempty"`
}

type orderCreateData struct {
	OrderCreate struct {
		Order      *CreatedOrder `json:"order"`
		UserErrors []UserError   `json:"userErrors"`
	} `json:"orderCreate"`
}

func (c *Client) OrderCreate(ctx context.Context, in OrderCreateInput, opts OrderCreateOptions) (*CreatedOrder, error) {
	data, err := PostMutation[orderCreateData](ctx, c, orderCreateMutation, map[string]any{"order": in, "options": opts})
	if err != nil {
		return nil, fmt.Errorf("orderCreate: %w", err)
	}
	if err := checkUserErrors("orderCreate", data.OrderCreate.UserErrors); err != nil {
		return nil, err
	}
	if data.OrderCreate.Order == nil {
		return nil, fmt.Errorf("orderCreate: no order returned")
	}
	return data.OrderCreate.Order, nil
}

type DraftLineItemInput struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type DraftOrderInput struct {
	LineItems       []DraftLineItemInput `json:"lineItems"`
	CustomerID      string               `json:"customerId,omitempty"`
	Email           string               `json:"email,omitempty"`
	ShippingAddress *MailingAddressInput `json:"shippingAddress,omitempty"`
	Tags            []string             `json:"tags,omitempty"`
}

// DraftLines converts planned lines into draft order line items.
func DraftLines(lines []orders.LineQuantity) []DraftLineItemInput {
	out := make([]DraftLineItemInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, DraftLineItemInput{VariantID: l.VariantID, Quantity: l.Quantity})
	}
	return out
}

type DraftOrder struct {
	ID         string `json:"id"`
	Status     string `json:"status,omitempty"`
	InvoiceURL string `json:"invoiceUrl,omitempty"`
}

type draftOrderCreateData struct {
	DraftOrderCreate struct {
		DraftOrder *DraftOrder `json:"draftOrder"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"draftOrderCreate"`
}

func (c *Client) DraftOrderCreate(ctx context.Context, in DraftOrderInput) (*DraftOrder, error) {
	data, err := PostMutation[draftOrderCreateData](ctx, c, draftOrderCreateMutation, map[string]any{"input": in})
	if err != nil {
		return nil, fmt.Errorf("draftOrderCreate: %w", err)
	}
	if err := checkUserErrors("draftOrderCreate", data.DraftOrderCreate.UserErrors); err != nil {
		return nil, err
	}
	if data.DraftOrderCreate.DraftOrder == nil {
		return nil, fmt.Errorf("draftOrderCreate: no draft order returned")
	}
	return data.DraftOrderCreate.DraftOrder, nil
}

type draftOrderCompleteData struct {
	DraftOrderComplete struct {
		DraftOrder *struct {
			ID    string        `json:"id"`
			Order *CreatedOrder `json:"order"`
		} `json:"draftOrder"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"draftOrderComplete"`
}

// DraftOrderComplete turns a draft into a real order.
func (c *Client) DraftOrderComplete(ctx context.Context, draftID string) (*CreatedOrder, error) {
	data, err := PostMutation[draftOrderCompleteData](ctx, c, draftOrderCompleteMutation, map[string]any{"id": draftID})
	if err != nil {
		return nil, fmt.Errorf("draftOrderComplete: %w", err)
	}
	if err := checkUserErrors("draftOrderComplete", data.DraftOrderComplete.UserErrors); err != nil {
		return nil, err
	}
	d := data.DraftOrderComplete.DraftOrder
	if d == nil || d.Order == nil {
		return nil, fmt.Errorf("draftOrderComplete: no order returned for %s", draftID)
	}
	return d.Order, nil
}

type CancelReason string

const (
	CancelReasonCustomer CancelReason = "CUSTOMER"
	CancelReasonOther    CancelReason = "OTHER"
)

type OrderCancelInput struct {
	OrderID   string
	Reason    CancelReason
	Refund    bool
	Restock   bool
	StaffNote string
}

type orderCancelData struct {
	OrderCancel struct {
		Job *struct {
			ID string `json:"id"`
		} `json:"job"`
		UserErrors []UserError `json:"orderCancelUserErrors"`
	} `json:"orderCancel"`
}

// OrderCancel starts the asynchronous cancel job and returns its id.
func (c *Client) OrderCancel(ctx context.Context, in OrderCancelInput) (string, error) {
	vars := map[string]any{
		"orderId": in.OrderID,
		"reason":  in.Reason,
		"refund":  in.Refund,
		"restock": in.Restock,
	}
	if in.StaffNote != "" {
		vars["staffNote"] = in.StaffNote
	}
	data, err := PostMutation[orderCancelData](ctx, c, orderCancelMutation, vars)
	if err != nil {
		return "", fmt.Errorf("orderCancel %s: %w", in.OrderID, err)
	}
	if err := checkUserErrors("orderCancel", data.OrderCancel.UserErrors); err != nil {
		return "", err
	}
	if data.OrderCancel.Job == nil {
		return "", nil
	}
	return data.OrderCancel.Job.ID, nil
}
