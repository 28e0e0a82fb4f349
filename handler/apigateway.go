package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
)

// Handle adapts an API Gateway REST proxy event.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := h.Serve(ctx, Request{
		Method:   event.HTTPMethod,
		Path:     event.Path,
		Headers:  event.Headers,
		Body:     []byte(event.Body),
		Base64:   event.IsBase64Encoded,
		SourceIP: event.RequestContext.Identity.SourceIP,
	})
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}, nil
}
