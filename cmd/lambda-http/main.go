package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"resume-optimizer/internal/bootstrap"
	"resume-optimizer/internal/shared/config"
	"resume-optimizer/internal/shared/server/respond"
	"resume-optimizer/internal/shared/telemetry"
	"resume-optimizer/internal/shared/tracing"
)

var (
	initOnce sync.Once
	initErr  error
	proxy    *ginadapter.GinLambdaV2

	loadConfig = config.Load
	build      = bootstrap.Build
)

// initApp builds once per execution environment. The database pool comes
// from the Lambda singleton, so warm invocations reuse connections.
func initApp() {
	cfg := loadConfig()
	if _, err := tracing.Setup(context.Background(), cfg.Tracing, "resume-optimizer-lambda-http"); err != nil {
		telemetry.Warn("lambda.tracing_setup_failed", map[string]any{"error": err})
	}
	app, err := build(cfg)
	if err != nil {
		initErr = err
		return
	}
	proxy = ginadapter.NewV2(app.Router)
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{
			"error":      initErr,
			"request_id": req.RequestContext.RequestID,
		})
		return unavailable("Service is starting up; try again shortly"), nil
	}
	return proxy.ProxyWithContext(ctx, req)
}

// unavailable mirrors the API error envelope so clients see one shape.
func unavailable(message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{
		Error: respond.ErrorBody{Code: "service_unavailable", Message: message},
	})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Retry-After":  "5",
		},
	}
}

func main() {
	lambda.Start(handler)
}
