package orders

import (
	"errors"
	"strings"
)

var ErrUnexpectedSKU = errors.New("sku is not expected on this order or is already fully scanned")

type ScanLine struct {
	LineItemID string `json:"lineItemId" dynamodbav:"LineItemId"`
	Name       string `json:"name" dynamodbav:"Name"`
	SKU        string `json:"sku" dynamodbav:"Sku"`
	Quantity   int    `json:"quantity" dynamodbav:"Quantity"`
	Scanned    int    `json:"scanned" dynamodbav:"Scanned"`
}

func (l ScanLine) Done() bool { return l.Scanned >= l.Quantity }

// ScanSession tracks packing progress of one order, one scanned unit at a time.
type ScanSession struct {
	OrderID   string     `json:"orderId" dynamodbav:"OrderId"`
	OrderName string     `json:"orderName" dynamodbav:"OrderName"`
	Lines     []ScanLine `json:"lines" dynamodbav:"Lines"`
}

func NewScanSession(o Order) *ScanSession {
	s := &ScanSession{OrderID: o.ID, OrderName: o.Name, Lines: make([]ScanLine, 0, len(o.LineItems))}
	for _, it := range o.LineItems {
		s.Lines = append(s.Lines, ScanLine{
			LineItemID: it.ID,
			Name:       it.Name,
			SKU:        it.SKU,
			Quantity:   it.Quantity,
		})
	}
	return s
}

// Record counts one unit of sku against the first line that still needs it.
func (s *ScanSession) Record(sku string) (*ScanLine, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, ErrUnexpectedSKU
	}
	for i := range s.Lines {
		l := &s.Lines[i]
		if l.SKU == sku && !l.Done() {
			l.Scanned++
			return l, nil
		}
	}
	return nil, ErrUnexpectedSKU
}

func (s *ScanSession) Complete() bool {
	for _, l := range s.Lines {
		if l.Scanned != l.Quantity {
			return false
		}
	}
	return true
}

func (s *ScanSession) Remaining() int {
	n := 0
	for _, l := range s.Lines {
		if l.Scanned < l.Quantity {
			n += l.Quantity - l.Scanned
		}
	}
	return n
}
