package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
)

// HandleFunctionURL adapts a Lambda Function URL event.
func (h *Handler) HandleFunctionURL(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	path := event.RawPath
	if path == "" {
		path = event.RequestContext.HTTP.Path
	}
	resp := h.Serve(ctx, Request{
		Method:   event.RequestContext.HTTP.Method,
		Path:     path,
		Headers:  event.Headers,
		Body:     []byte(event.Body),
		Base64:   event.IsBase64Encoded,
		SourceIP: event.RequestContext.HTTP.SourceIP,
	})
	return events.LambdaFunctionURLResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}, nil
}
