package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Address mirrors Shopify's MailingAddress fields used by the order tools.
type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
}

type Customer struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type LineItem struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Quantity            int    `json:"quantity"`
	UnfulfilledQuantity int    `json:"unfulfilledQuantity"`
	VariantID           string `json:"variantId,omitempty"`
	SKU                 string `json:"sku,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	CreatedAt       time.Time       `json:"createdAt"`
	Tags            []string        `json:"tags,omitempty"`
	Customer        *Customer       `json:"customer,omitempty"`
	ShippingAddress *Address        `json:"shippingAddress,omitempty"`
	LineItems       []LineItem      `json:"lineItems"`
}

// LineQuantity is one line of an order to be created.
type LineQuantity struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// NumericID returns the trailing segment of a Shopify GID
// (gid://shopify/Order/123 -> 123).
func NumericID(gid string) string {
	if i := strings.LastIndex(gid, "/"); i >= 0 {
		return gid[i+1:]
	}
	return gid
}

// CombinedSuffix marks orders produced by a combine.
const CombinedSuffix = "-C"

func IsCombinedName(name string) bool {
	return strings.HasSuffix(name, CombinedSuffix)
}

// UnfulfilledItems returns the line items that have not been fulfilled at all.
func UnfulfilledItems(o Order) []LineItem {
	out := make([]LineItem, 0, len(o.LineItems))
	for _, it := range o.LineItems {
		if it.Quantity > 0 && it.UnfulfilledQuantity == it.Quantity {
			out = append(out, it)
		}
	}
	return out
}
