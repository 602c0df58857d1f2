package main

import (
	"context"
	"encoding/json"

	"orderdesk/internal/config"
	"orderdesk/internal/logger"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Env     string `json:"env"`
}

type health struct {
	cfg *config.Config
	log *zap.Logger
}

func (h *health) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	h.log.Debug("health check", zap.String("request_id", req.RequestContext.RequestID))
	body, _ := json.Marshal(HealthResponse{
		OK:      true,
		Service: h.cfg.App.Name,
		Env:     h.cfg.App.Env,
	})

	return events.APIGatewayV2HTTPResponse{
		StatusCode: 200,
		Headers: map[string]string{
			"content-type":                "application/json",
			"access-control-allow-origin": "*",
		},
		Body: string(body),
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	h := &health{cfg: cfg, log: logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})}
	lambda.Start(h.handle)
}
