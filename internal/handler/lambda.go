package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/rs/zerolog"
)

// flushTimeout bounds trace export after an invocation. An unreachable
// collector must not hold back a result that was already published.
var flushTimeout = 2 * time.Second

// LambdaHandler adapts Handle for lambda.Start. Each invocation gets a child
// of base tagged with the Lambda request ID. flush, when non-nil, runs after
// every invocation so spans leave the sandbox before it is frozen.
func (h *Handler) LambdaHandler(base zerolog.Logger, flush func(context.Context) error) func(context.Context, json.RawMessage) (map[string]any, error) {
	return func(ctx context.Context, raw json.RawMessage) (map[string]any, error) {
		logCtx := base.With()
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			logCtx = logCtx.Str("invocation_id", lc.AwsRequestID)
		}
		if lambdacontext.FunctionName != "" {
			logCtx = logCtx.Str("function", lambdacontext.FunctionName)
		}
		logger := logCtx.Logger()
		ctx = logger.WithContext(ctx)

		if flush != nil {
			defer func() {
				fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
				defer cancel()
				if err := flush(fctx); err != nil {
					logger.Warn().Err(err).Msg("flush traces")
				}
			}()
		}

		outcome, err := h.Handle(ctx, raw)
		if err != nil {
			return nil, err
		}
		return map[string]any(outcome), nil
	}
}
