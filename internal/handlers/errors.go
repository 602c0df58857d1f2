package handlers

import (
	"context"
	"errors"
	"net/http"

	"orderdesk/internal/logger"
	"orderdesk/internal/orderops"
	"orderdesk/internal/orders"
	"orderdesk/internal/scans"
	"orderdesk/internal/shopify"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// statusFor maps an operation error to its HTTP status.
func statusFor(err error) int {
	var ve *orderops.ValidationError
	var mismatch *orders.AddressMismatchError
	switch {
	case errors.As(err, &ve),
		errors.As(err, &mismatch),
		errors.Is(err, orders.ErrNothingToCombine),
		errors.Is(err, orders.ErrNothingRemaining),
		errors.Is(err, orders.ErrNoItemsSelected),
		errors.Is(err, orders.ErrNegativeQuantity),
		errors.Is(err, orders.ErrNoVariant),
		errors.Is(err, orders.ErrUnexpectedSKU),
		errors.Is(err, orderops.ErrNoOrdersToCombine),
		errors.Is(err, orderops.ErrNoCustomer),
		errors.Is(err, errEmptyBody):
		return http.StatusBadRequest
	case errors.Is(err, orderops.ErrOrderNotFound), errors.Is(err, scans.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, orderops.ErrScansDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case shopify.IsUpstream(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(ctx context.Context, err error) (events.APIGatewayV2HTTPResponse, error) {
	status := statusFor(err)
	log := logger.FromContext(ctx)
	if status >= 500 {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Info("request rejected", zap.Int("status", status), zap.Error(err))
	}
	if status == http.StatusInternalServerError {
		return errResp(status, "internal error")
	}
	return errResp(status, err.Error())
}

// failInline answers merchant mistakes with 200 and an error body, which is
// what the lookup, combine and split screens expect.
func failInline(ctx context.Context, err error) (events.APIGatewayV2HTTPResponse, error) {
	if status := statusFor(err); status == http.StatusBadRequest || status == http.StatusNotFound {
		logger.FromContext(ctx).Info("request rejected", zap.Error(err))
		return errResp(http.StatusOK, err.Error())
	}
	return fail(ctx, err)
}
