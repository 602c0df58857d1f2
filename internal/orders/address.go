package orders

import (
	"fmt"
	"strings"
)

// NormalizedAddress is the comparison form of a shipping address: the
// customer's name plus lower-cased, trimmed address fields.
type NormalizedAddress struct {
	FirstName string
	LastName  string
	Address1  string
	Address2  string
	City      string
	Country   string
	Province  string
	Zip       string
}

func NormalizeAddress(addr *Address, c *Customer) *NormalizedAddress {
	if addr == nil {
		return nil
	}
	n := &NormalizedAddress{
		Address1: norm(addr.Address1),
		Address2: norm(addr.Address2),
		City:     norm(addr.City),
		Country:  norm(addr.Country),
		Province: norm(addr.Province),
		Zip:      norm(addr.Zip),
	}
	if c != nil {
		n.FirstName = c.FirstName
		n.LastName = c.LastName
	}
	return n
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func AddressesMatch(a, b *NormalizedAddress) bool {
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

type AddressMismatchError struct {
	OrderName string
}

func (e *AddressMismatchError) Error() string {
	return fmt.Sprintf("The shipping address for order %s does not match the original order's shipping address. All orders must have the same shipping address to be combined.", e.OrderName)
}

// CustomerOrder is a candidate order for a combine, with its address
// normalized against the looked-up order's customer.
type CustomerOrder struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"orderNumber"`
	TotalPrice      string             `json:"totalPrice"`
	CreatedAt       string             `json:"createdAt"`
	LineItems       []LineItem         `json:"lineItems"`
	ShippingAddress *NormalizedAddress `json:"-"`
}

// CheckAddresses returns an *AddressMismatchError for the first order whose
// shipping address differs from original.
func CheckAddresses(original *NormalizedAddress, candidates []CustomerOrder) error {
	for _, o := range candidates {
		if !AddressesMatch(original, o.ShippingAddress) {
			return &AddressMismatchError{OrderName: o.OrderNumber}
		}
	}
	return nil
}
