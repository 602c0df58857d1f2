package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"orderdesk/internal/config"
	"orderdesk/internal/logger"
	"orderdesk/internal/orderops"
	"orderdesk/internal/shopify"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// OrderService is what the order routes call for one shop.
type OrderService interface {
	ListTagged(ctx context.Context, req orderops.ListTaggedRequest) (orderops.ListTaggedResult, error)
	Lookup(ctx context.Context, req orderops.LookupRequest) (orderops.LookupResult, error)
	Combine(ctx context.Context, req orderops.CombineRequest) (orderops.CombineResult, error)
	Split(ctx context.Context, req orderops.SplitRequest) (orderops.SplitResult, error)
	SplitByItems(ctx context.Context, req orderops.SplitItemsRequest) (orderops.SplitResult, error)
	CreateCombinedDraft(ctx context.Context, req orderops.DraftRequest) (orderops.DraftResult, error)
	StartScan(ctx context.Context, orderNumber string) (orderops.ScanResult, error)
	ScanSKU(ctx context.Context, orderGID, sku string) (orderops.ScanResult, error)
	CompleteScan(ctx context.Context, orderGID string) (orderops.CompleteScanResult, error)
}

type SessionStore interface {
	Save(ctx context.Context, shop, accessToken, scope string) error
	Load(ctx context.Context, shop string) (string, error)
}

type StateStore interface {
	Put(ctx context.Context, state, shop string) error
	Consume(ctx context.Context, state, shop string) error
}

// App serves every route of the order tools from one Lambda.
type App struct {
	cfg      *config.Config
	log      *zap.Logger
	sessions SessionStore
	states   StateStore
	sinks    orderops.Sinks
	location *time.Location
	http     *http.Client

	newService func(shop, accessToken string, log *zap.Logger) OrderService
	tokenURL   func(shop string) string
	newState   func() (string, error)
}

func NewApp(cfg *config.Config, log *zap.Logger, sessions SessionStore, states StateStore, sinks orderops.Sinks) (*App, error) {
	loc, err := time.LoadLocation(cfg.Combine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("combine timezone: %w", err)
	}
	a := &App{
		cfg:      cfg,
		log:      log,
		sessions: sessions,
		states:   states,
		sinks:    sinks,
		location: loc,
		http:     &http.Client{Timeout: 15 * time.Second},
		tokenURL: shopify.TokenURL,
		newState: func() (string, error) { return randomState(24) },
	}
	a.newService = a.shopService
	return a, nil
}

func (a *App) shopService(shop, accessToken string, log *zap.Logger) OrderService {
	client := shopify.NewClient(shop, a.cfg.Shopify.APIVersion, accessToken)
	client.Logger = log
	return orderops.New(client, orderops.Settings{
		Shop:               shop,
		Location:           a.location,
		Currency:           a.cfg.Combine.Currency,
		SendReceipt:        a.cfg.Combine.SendReceipt,
		CustomerOrderLimit: a.cfg.Combine.CustomerOrderLimit,
	}, a.sinks, log)
}

type route func(ctx context.Context, req events.APIGatewayV2HTTPRequest, svc OrderService) (events.APIGatewayV2HTTPResponse, error)

func (a *App) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	ctx, _ = logger.WithFields(logger.WithContext(ctx, a.log),
		zap.String("request_id", req.RequestContext.RequestID),
		zap.String("path", req.RawPath),
	)
	method := req.RequestContext.HTTP.Method

	// Route by path + method
	switch req.RawPath {
	case "/auth/install":
		if method == "GET" {
			return a.install(ctx, req)
		}
		return errResp(405, "method not allowed")
	case "/auth/callback":
		if method == "GET" {
			return a.callback(ctx, req)
		}
		return errResp(405, "method not allowed")
	case "/orders/tagged":
		if method == "GET" {
			return a.authorized(ctx, req, listTagged)
		}
		return errResp(405, "method not allowed")
	}

	routes := map[string]route{
		"/orders/lookup":         lookup,
		"/orders/combine":        combine,
		"/orders/split":          split,
		"/orders/split-items":    splitItems,
		"/draft-orders/combined": combinedDraft,
		"/scan/lookup":           scanLookup,
		"/scan/sku":              scanSKU,
		"/scan/complete":         scanComplete,
	}
	r, ok := routes[req.RawPath]
	if !ok {
		return errResp(404, "not found")
	}
	if method != "POST" {
		return errResp(405, "method not allowed")
	}
	return a.authorized(ctx, req, r)
}

// authorized checks the App Bridge session token, loads the shop's offline
// token and hands a shop-bound service to r.
func (a *App) authorized(ctx context.Context, req events.APIGatewayV2HTTPRequest, r route) (events.APIGatewayV2HTTPResponse, error) {
	token := bearerToken(req.Headers)
	if token == "" {
		return errResp(401, "unauthorized")
	}
	shop, err := shopify.VerifySessionToken(token, a.cfg.Shopify.APIKey, a.cfg.Shopify.APISecret)
	if err != nil {
		logger.FromContext(ctx).Info("session token rejected", zap.Error(err))
		return errResp(401, "unauthorized")
	}

	ctx, log := logger.WithFields(ctx, zap.String("shop", shop))
	accessToken, err := a.sessions.Load(ctx, shop)
	if errors.Is(err, shopify.ErrShopNotInstalled) {
		return errResp(401, "shop has not installed the app")
	}
	if err != nil {
		log.Error("load session failed", zap.Error(err))
		return errResp(500, "failed to load shop session")
	}
	return r(ctx, req, a.newService(shop, accessToken, log))
}
