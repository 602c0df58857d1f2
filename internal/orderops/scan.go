package orderops

import (
	"context"
	"fmt"
	"strings"

	"orderdesk/internal/orders"
)

type ScanResult struct {
	Session   *orders.ScanSession `json:"session"`
	Line      *orders.ScanLine    `json:"line,omitempty"`
	Remaining int                 `json:"remaining"`
	Complete  bool                `json:"complete"`
}

func scanResult(s *orders.ScanSession, line *orders.ScanLine) ScanResult {
	return ScanResult{Session: s, Line: line, Remaining: s.Remaining(), Complete: s.Complete()}
}

// AdminOrderURL is the order's page in the Shopify admin.
func AdminOrderURL(shop, orderGID string) string {
	return fmt.Sprintf("https://%s/admin/orders/%s", shop, orders.NumericID(orderGID))
}

// StartScan looks the order up and starts a fresh packing session for it.
func (s *Service) StartScan(ctx context.Context, orderNumber string) (ScanResult, error) {
	if s.sinks.Scans == nil {
		return ScanResult{}, ErrScansDisabled
	}
	if strings.TrimSpace(orderNumber) == "" {
		return ScanResult{}, invalid("Order number is required.")
	}
	o, err := s.findOrder(ctx, orderNumber)
	if err != nil {
		return ScanResult{}, err
	}
	session := orders.NewScanSession(*o)
	if err := s.sinks.Scans.Put(ctx, s.settings.Shop, session); err != nil {
		return ScanResult{}, err
	}
	return scanResult(session, nil), nil
}

// ScanSKU counts one scanned unit against the order's session.
func (s *Service) ScanSKU(ctx context.Context, orderGID, sku string) (ScanResult, error) {
	if s.sinks.Scans == nil {
		return ScanResult{}, ErrScansDisabled
	}
	session, err := s.sinks.Scans.Get(ctx, s.settings.Shop, orderGID)
	if err != nil {
		return ScanResult{}, err
	}
	line, err := session.Record(sku)
	if err != nil {
		return ScanResult{}, err
	}
	if err := s.sinks.Scans.Put(ctx, s.settings.Shop, session); err != nil {
		return ScanResult{}, err
	}
	return scanResult(session, line), nil
}

type CompleteScanResult struct {
	OrderURL string `json:"orderUrl"`
}

// CompleteScan ends a fully scanned session and returns where to fulfil it.
func (s *Service) CompleteScan(ctx context.Context, orderGID string) (CompleteScanResult, error) {
	if s.sinks.Scans == nil {
		return CompleteScanResult{}, ErrScansDisabled
	}
	session, err := s.sinks.Scans.Get(ctx, s.settings.Shop, orderGID)
	if err != nil {
		return CompleteScanResult{}, err
	}
	if !session.Complete() {
		return CompleteScanResult{}, invalid(fmt.Sprintf("%d items still need to be scanned.", session.Remaining()))
	}
	if err := s.sinks.Scans.Delete(ctx, s.settings.Shop, orderGID); err != nil {
		return CompleteScanResult{}, err
	}
	return CompleteScanResult{OrderURL: AdminOrderURL(s.settings.Shop, session.OrderID)}, nil
}
