package handlers

import (
	"context"
	"strconv"
	"strings"

	"orderdesk/internal/orderops"
	"orderdesk/internal/orders"

	"github.com/aws/aws-lambda-go/events"
)

func listTagged(ctx context.Context, req events.APIGatewayV2HTTPRequest, svc OrderService) (events.APIGatewayV2HTTPResponse, error) {
	q := req.QueryStringParameters
	in := orderops.ListTaggedRequest{
		After:           strings.TrimSpace(q["cursor"]),
		All:             q["all"] == "1" || q["all"] == "true",
		IncludeCombined: q["includeCombined"] == "1" || q["includeCombined"] == "true",
	}
	if s := strings.TrimSpace(q["first"]); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 250 {
			return errResp(400, "first must be between 1 and 250")
		}
		in.First = n
	}

	res, err := svc.ListTagged(ctx, in)
	if err != nil {
		return fail(ctx, err)
	}
	return jsonResp(200, res)
}

type lookupBody struct {
	OrderNumber    string   `json:"orderNumber"`
	SelectedOrders []string `json:"selectedOrders"`
}

func lookup(ctx context.Context, req events.APIGatewayV2HTTPRequest, svc OrderService) (events.APIGatewayV2HTTPResponse, error) {
	var body lookupBody
	if err := decodeBody(req, &body); err != nil {
		return errResp(400, "invalid json body")
	}
	res, err := svc.Lookup(ctx, orderops.LookupRequest{
		OrderNumber:    body.OrderNumber,
		SelectedOrders: body.SelectedOrders,
	})
	if err != nil {
		return failInline(ctx, err)
	}
	return jsonResp(200, res)
}

type combineBody struct {
	OrderNumber              string   `json:"orderNumber"`
	SelectedOrders           []string `json:"selectedOrders"`
	DisableAddressCheck      bool     `json:"disableAddressCheck"`
	IgnorePreorderSeparation bool     `json:"ignorePreorderSeparation"`
}

func combine(ctx context.Context, req events.APIGatewayV2HTTPRequest, svc OrderService) (events.APIGatewayV2HTTPResponse, error) {
	var body combineBody
	if err := decodeBody(req, &body); err != nil {
		return errResp(400, "invalid json body")
	}
	res, err := svc.Combine(ctx, orderops.CombineRequest{
		OrderNumber:              body.OrderNumber,
		SelectedOrders:           body.SelectedOrders,
		DisableAddressCheck:      body.DisableAddressCheck,
		IgnorePreorderSeparation: body.IgnorePreorderSeparation,
	})
	if err != nil {
		return failInline(ctx, err)
	}
	return jsonResp(200, res)
}

type splitBody struct {
	OrderNumber     string         `json:"orderNumber"`
	SplitQuantities map[string]int `json:"splitQuantities"`
}

func split(ctx context.Context, req events.APIGatewayV2HTTPRequest, svc OrderService) (events.APIGatewayV2HTTPResponse, error) {
	var body splitBody
	if err := decodeBody(req, &body); err != nil {
		return errResp(400, "invalid json body")
	}
	res, err := svc.Split(ctx, orderops.SplitRequest{
		OrderNumber: body.OrderNumber,
		Quantities:  body.SplitQuantities,
	})
	if err != nil {
		return failInline(ctx, err)
	}
	return jsonResp(200, res)
}

type splitItemsBody struct {
	OrderNumber   string   `json:"orderNumber"`
	SelectedItems []string `json:"selectedItems"`
}

func splitItems(ctx context.Context, req events.APIGatewayV2HTTPRequest, svc OrderService) (events.APIGatewayV2HTTPResponse, error) {
	var body splitItemsBody
	if err := decodeBody(req, &body); err != nil {
		return errResp(400, "invalid json body")
	}
	res, err := svc.SplitByItems(ctx, orderops.SplitItemsRequest{
		OrderNumber:   body.OrderNumber,
		SelectedItems: body.SelectedItems,
	})
	if err != nil {
		return fail(ctx, err)
	}
	return jsonResp(200, res)
}

type draftBody struct {
	CustomerID string                `json:"customerId"`
	LineItems  []orders.LineQuantity `json:"lineItems"`
}

func combinedDraft(ctx context.Context, req events.APIGatewayV2HTTPRequest, svc OrderService) (events.APIGatewayV2HTTPResponse, error) {
	var body draftBody
	if err := decodeBody(req, &body); err != nil {
		return errResp(400, "invalid json body")
	}
	res, err := svc.CreateCombinedDraft(ctx, orderops.DraftRequest{
		CustomerID: body.CustomerID,
		LineItems:  body.LineItems,
	})
	if err != nil {
		return fail(ctx, err)
	}
	return jsonResp(200, res)
}

type scanBody struct {
	OrderNumber string `json:"orderNumber"`
	OrderID     string `json:"orderId"`
	SKU         string `json:"sku"`
}

func scanLookup(ctx context.Context, req events.APIGatewayV2HTTPRequest, svc OrderService) (events.APIGatewayV2HTTPResponse, error) {
	var body scanBody
	if err := decodeBody(req, &body); err != nil {
		return errResp(400, "invalid json body")
	}
	res, err := svc.StartScan(ctx, body.OrderNumber)
	if err != nil {
		return fail(ctx, err)
	}
	return jsonResp(200, res)
}

func scanSKU(ctx context.Context, req events.APIGatewayV2HTTPRequest, svc OrderService) (events.APIGatewayV2HTTPResponse, error) {
	var body scanBody
	if err := decodeBody(req, &body); err != nil {
		return errResp(400, "invalid json body")
	}
	if strings.TrimSpace(body.OrderID) == "" {
		return errResp(400, "orderId is required")
	}
	res, err := svc.ScanSKU(ctx, body.OrderID, body.SKU)
	if err != nil {
		return fail(ctx, err)
	}
	return jsonResp(200, res)
}

func scanComplete(ctx context.Context, req events.APIGatewayV2HTTPRequest, svc OrderService) (events.APIGatewayV2HTTPResponse, error) {
	var body scanBody
	if err := decodeBody(req, &body); err != nil {
		return errResp(400, "invalid json body")
	}
	if strings.TrimSpace(body.OrderID) == "" {
		return errResp(400, "orderId is required")
	}
	res, err := svc.CompleteScan(ctx, body.OrderID)
	if err != nil {
		return fail(ctx, err)
	}
	return jsonResp(200, res)
}
