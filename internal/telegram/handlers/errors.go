package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/telegram/render"
	pkghttp "github.com/futig/knowledge-console/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// failure is what a chat sees for an error and how loudly it is logged.
type failure struct {
	reply string
	event string
	level zapcore.Level
}

// errorRule maps a class of errors to a failure. Rules are tried in order.
type errorRule struct {
	match func(error) bool
	build func(error) failure
}

func is(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
}

func as[T error]() func(error) bool {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

func fixed(reply, event string, level zapcore.Level) func(error) failure {
	return func(error) failure { return failure{reply: reply, event: event, level: level} }
}

var errorRules = []errorRule{
	{is(entity.ErrQueryInFlight), fixed(render.MsgQueryPending, "query in flight", zapcore.WarnLevel)},
	{is(entity.ErrIngestInFlight), fixed(render.MsgIngestPending, "ingestion in flight", zapcore.WarnLevel)},
	{is(entity.ErrFileTooLarge, entity.ErrTooManyFiles), fixed(render.ErrFileTooLarge, "upload over limit", zapcore.WarnLevel)},
	{
		is(entity.ErrValidation, entity.ErrEmptySubmission, entity.ErrInvalidParameter, entity.ErrInvalidFormat),
		func(err error) failure {
			return failure{fmt.Sprintf(render.ErrInvalidInput, render.Escape(err.Error())), "invalid input", zapcore.WarnLevel}
		},
	},
	{as[*pkghttp.ConnectivityError](), fixed(render.ErrBackendDown, "backend unreachable", zapcore.ErrorLevel)},
	{
		as[*pkghttp.HTTPError](),
		func(err error) failure {
			var httpErr *pkghttp.HTTPError
			errors.As(err, &httpErr)
			return failure{fmt.Sprintf(render.ErrBackend, render.Escape(httpErr.Error())), "backend error", zapcore.ErrorLevel}
		},
	},
	{
		func(err error) bool {
			return as[*pkghttp.DecodeError]()(err) || errors.Is(err, entity.ErrMalformedReply)
		},
		fixed(render.ErrMalformed, "malformed backend response", zapcore.ErrorLevel),
	},
	{is(context.DeadlineExceeded, context.Canceled), fixed(render.ErrTimeout, "operation timed out", zapcore.ErrorLevel)},
	{
		as[net.Error](),
		func(err error) failure {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return failure{render.ErrTimeout, "network timeout", zapcore.ErrorLevel}
			}
			return failure{render.ErrNetworkIssue, "network error", zapcore.ErrorLevel}
		},
	},
}

func classify(err error) failure {
	for _, r := range errorRules {
		if r.match(err) {
			return r.build(err)
		}
	}
	return failure{render.ErrGeneric, "handler error", zapcore.ErrorLevel}
}

// HandleError logs err and replies with what the user can act on.
func (h *BaseHandler) HandleError(ctx context.Context, chatID int64, err error) {
	if err == nil {
		return
	}

	f := classify(err)
	if ce := ctxzap.Extract(ctx).Check(f.level, f.event); ce != nil {
		ce.Write(zap.Error(err), zap.Int64("chat_id", chatID))
	}
	h.sendMessage(chatID, f.reply, nil)
}
