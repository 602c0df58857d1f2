package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"

	"orderdesk/internal/logger"
	"orderdesk/internal/shopify"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

func randomState(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (a *App) install(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	shop := strings.ToLower(strings.TrimSpace(req.QueryStringParameters["shop"]))
	if !shopify.IsValidShopDomain(shop) {
		return errResp(400, "invalid shop (expected like your-store.myshopify.com)")
	}

	sc := a.cfg.Shopify
	if sc.APIKey == "" || sc.Scopes == "" || sc.RedirectBase == "" {
		return errResp(500, "missing SHOPIFY_* env vars")
	}

	state, err := a.newState()
	if err != nil {
		return errResp(500, "failed to generate state")
	}
	if err := a.states.Put(ctx, state, shop); err != nil {
		logger.FromContext(ctx).Error("store oauth state failed", zap.Error(err))
		return errResp(500, "failed to store oauth state")
	}

	redirectURI := strings.TrimRight(sc.RedirectBase, "/") + "/auth/callback"
	return jsonResp(200, map[string]any{
		"authorizeUrl": shopify.AuthorizeURL(shop, sc.APIKey, sc.Scopes, redirectURI, state),
	})
}

func (a *App) callback(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	params := req.QueryStringParameters

	shop := strings.ToLower(strings.TrimSpace(params["shop"]))
	code := strings.TrimSpace(params["code"])
	state := strings.TrimSpace(params["state"])

	if !shopify.IsValidShopDomain(shop) || code == "" || state == "" || strings.TrimSpace(params["hmac"]) == "" {
		return errResp(400, "missing required oauth params")
	}

	sc := a.cfg.Shopify
	if sc.APISecret == "" {
		return errResp(500, "SHOPIFY_API_SECRET not set")
	}
	if !shopify.VerifyHMAC(params, sc.APISecret) {
		return errResp(400, "invalid hmac")
	}

	ctx, log := logger.WithFields(ctx, zap.String("shop", shop))
	if err := a.states.Consume(ctx, state, shop); err != nil {
		if errors.Is(err, shopify.ErrInvalidState) {
			return errResp(400, "invalid or expired state")
		}
		return errResp(500, "failed to check state")
	}

	tok, err := shopify.ExchangeCode(ctx, a.http, a.tokenURL(shop), sc.APIKey, sc.APISecret, code)
	if err != nil {
		log.Warn("token exchange failed", zap.Error(err))
		return errResp(502, "token exchange failed")
	}

	if err := a.sessions.Save(ctx, shop, tok.AccessToken, tok.Scope); err != nil {
		log.Error("store session failed", zap.Error(err))
		return errResp(500, "failed to store session")
	}
	log.Info("shop installed", zap.String("scope", tok.Scope))

	// Redirect back into the embedded app
	target := strings.TrimRight(sc.AppURL, "/")
	if target == "" {
		target = "https://" + shop + "/admin/apps/" + url.PathEscape(sc.APIKey)
	}
	return redirect(target + "?shop=" + url.QueryEscape(shop))
}
