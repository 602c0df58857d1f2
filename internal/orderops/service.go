package orderops

import (
	"context"
	"errors"
	"time"

	"orderdesk/internal/audit"
	"orderdesk/internal/orders"
	"orderdesk/internal/shopify"

	"go.uber.org/zap"
)

var (
	ErrOrderNotFound     = errors.New("Order not found")
	ErrNoOrdersToCombine = errors.New("No orders to combine")
	ErrNoCustomer        = errors.New("Order has no customer")
	ErrScansDisabled     = errors.New("scan sessions are not configured")
)

// ValidationError is a problem with the merchant's input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// ShopifyAPI is the part of the Admin API the order tools need.
type ShopifyAPI interface {
	FindOrderByName(ctx context.Context, name string) (*orders.Order, error)
	SearchOrders(ctx context.Context, query string, first int, after string) (shopify.OrdersPage, error)
	SearchAllOrders(ctx context.Context, query string, pageSize int) ([]orders.Order, error)
	CustomerOpenOrders(ctx context.Context, customerGID string, limit int) ([]orders.Order, error)
	OrderCreate(ctx context.Context, in shopify.OrderCreateInput, opts shopify.OrderCreateOptions) (*shopify.CreatedOrder, error)
	DraftOrderCreate(ctx context.Context, in shopify.DraftOrderInput) (*shopify.DraftOrder, error)
	DraftOrderComplete(ctx context.Context, draftID string) (*shopify.CreatedOrder, error)
	OrderCancel(ctx context.Context, in shopify.OrderCancelInput) (string, error)
}

type Recorder interface {
	Record(ctx context.Context, op audit.Operation) error
}

type Archiver interface {
	Archive(ctx context.Context, shop, operationID string, o orders.Order) error
}

type Notifier interface {
	Notify(ctx context.Context, op audit.Operation) error
}

type ScanStore interface {
	Put(ctx context.Context, shop string, session *orders.ScanSession) error
	Get(ctx context.Context, shop, orderGID string) (*orders.ScanSession, error)
	Delete(ctx context.Context, shop, orderGID string) error
}

// Settings are the per-shop knobs of the order tools.
type Settings struct {
	Shop               string
	Location           *time.Location
	Currency           string
	SendReceipt        bool
	CustomerOrderLimit int
}

// Sinks are optional; a nil field disables that side effect.
type Sinks struct {
	Recorder Recorder
	Archiver Archiver
	Notifier Notifier
	Scans    ScanStore
}

// Service runs the order tools for one shop.
type Service struct {
	api      ShopifyAPI
	settings Settings
	sinks    Sinks
	log      *zap.Logger
	now      func() time.Time
}

func New(api ShopifyAPI, settings Settings, sinks Sinks, log *zap.Logger) *Service {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Currency == "" {
		settings.Currency = "USD"
	}
	if settings.CustomerOrderLimit <= 0 {
		settings.CustomerOrderLimit = 250
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, settings: settings, sinks: sinks, log: log, now: time.Now}
}

func (s *Service) findOrder(ctx context.Context, name string) (*orders.Order, error) {
	o, err := s.api.FindOrderByName(ctx, name)
	if errors.Is(err, shopify.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func (s *Service) newOperation(kind audit.Kind) audit.Operation {
	return audit.NewOperation(s.settings.Shop, kind, s.now(), s.settings.Location)
}

// archive stores a copy of every order about to be cancelled. It runs before
// anything is changed in Shopify so a failed upload aborts cleanly.
func (s *Service) archive(ctx context.Context, op audit.Operation, originals []orders.Order) error {
	if s.sinks.Archiver == nil {
		return nil
	}
	for _, o := range originals {
		if err := s.sinks.Archiver.Archive(ctx, s.settings.Shop, op.ID, o); err != nil {
			return err
		}
	}
	return nil
}

// finish records and announces op. The orders already exist in Shopify by
// now, so failures are only logged.
func (s *Service) finish(ctx context.Context, op audit.Operation) {
	log := s.log.With(zap.String("operation_id", op.ID), zap.String("kind", string(op.Kind)))
	if s.sinks.Recorder != nil {
		if err := s.sinks.Recorder.Record(ctx, op); err != nil {
			log.Warn("record operation failed", zap.Error(err))
		}
	}
	if s.sinks.Notifier != nil {
		if err := s.sinks.Notifier.Notify(ctx, op); err != nil {
			log.Warn("notify operation failed", zap.Error(err))
		}
	}
	log.Info("order operation done",
		zap.Strings("source", op.SourceOrders),
		zap.Strings("created", op.CreatedOrders),
		zap.Strings("cancelled", op.CancelledOrders),
	)
}

func orderNames(os []orders.Order) []string {
	out := make([]string, 0, len(os))
	for _, o := range os {
		out = append(out, o.Name)
	}
	return out
}
