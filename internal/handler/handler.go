// Package handler runs one restock check: validate the event, fetch the
// timeline, match posts and publish a single notification.
package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ppiankov/restockwatch/internal/config"
	"github.com/ppiankov/restockwatch/internal/digest"
	"github.com/ppiankov/restockwatch/internal/event"
	"github.com/ppiankov/restockwatch/internal/match"
	"github.com/ppiankov/restockwatch/internal/notify"
	"github.com/ppiankov/restockwatch/internal/privacy"
	"github.com/ppiankov/restockwatch/internal/source"
)

// State names a step of one invocation.
type State string

const (
	StateValidating State = "validating"
	StateFetching   State = "fetching"
	StateMatching   State = "matching"
	StateIdle       State = "idle"
	StatePublishing State = "publishing"
	StateDone       State = "done"
)

const tracerName = "github.com/ppiankov/restockwatch/internal/handler"

// snippetRunes bounds matched text in debug logs.
const snippetRunes = 120

// Handler holds configuration and collaborator factories. It keeps no
// state between invocations.
type Handler struct {
	cfg        *config.Config
	feeds      source.Factory
	publishers notify.Factory
	redactor   *privacy.Redactor
}

// New builds a Handler. It fails when redaction is enabled and a pattern
// does not compile.
func New(cfg *config.Config, feeds source.Factory, publishers notify.Factory) (*Handler, error) {
	h := &Handler{cfg: cfg, feeds: feeds, publishers: publishers}
	if cfg.Privacy.Redact.Enabled {
		redactor, err := privacy.Compile(cfg.Privacy.Redact.Patterns)
		if err != nil {
			return nil, fmt.Errorf("compile redact patterns: %w", err)
		}
		h.redactor = redactor
	}
	return h, nil
}

// Handle processes one event payload. It returns the publisher's outcome
// when a notification was sent, or an empty Outcome when nothing matched.
// Errors from every step are returned unmodified.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (notify.Outcome, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "restockwatch.handle")
	defer span.End()

	log := zerolog.Ctx(ctx)

	req, err := h.validate(ctx, raw)
	if err != nil {
		return nil, fail(span, log, StateValidating, err)
	}
	log.Debug().Object("request", req).Msg("event accepted")

	posts, err := h.fetch(ctx, req)
	if err != nil {
		return nil, fail(span, log, StateFetching, err)
	}

	matches, err := h.match(ctx, req, posts)
	if err != nil {
		return nil, fail(span, log, StateMatching, err)
	}

	if len(matches) == 0 {
		transition(log, StateIdle).Int("posts", len(posts)).Msg("no matching posts")
		transition(log, StateDone).Send()
		return notify.Outcome{}, nil
	}

	outcome, err := h.publish(ctx, req, matches)
	if err != nil {
		return nil, fail(span, log, StatePublishing, err)
	}

	transition(log, StateDone).Int("matches", len(matches)).Msg("notification published")
	return outcome, nil
}

func (h *Handler) validate(ctx context.Context, raw json.RawMessage) (*event.Request, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, string(StateValidating))
	defer span.End()

	transition(zerolog.Ctx(ctx), StateValidating).Int("bytes", len(raw)).Send()

	return event.Parse(raw)
}

func (h *Handler) fetch(ctx context.Context, req *event.Request) ([]source.Post, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, string(StateFetching),
		trace.WithAttributes(attribute.String("screen_name", req.ScreenName)))
	defer span.End()

	log := zerolog.Ctx(ctx)
	transition(log, StateFetching).Str("screen_name", req.ScreenName).Send()

	feed, err := h.feeds(ctx, req.Credentials())
	if err != nil {
		return nil, err
	}

	posts, err := feed.Timeline(ctx, req.ScreenName)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("posts", len(posts)))
	log.Info().Str("source", feed.Name()).Int("posts", len(posts)).Msg("timeline fetched")
	return posts, nil
}

func (h *Handler) match(ctx context.Context, req *event.Request, posts []source.Post) ([]string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, string(StateMatching))
	defer span.End()

	log := zerolog.Ctx(ctx)
	transition(log, StateMatching).
		Int("terms", len(req.SearchTerms)).
		Int("symbols", len(req.SpecialUnicode)).
		Send()

	var matches []string
	if workers := h.cfg.Match.Workers; workers > 1 {
		var err error
		matches, err = match.FindMatchesConcurrent(ctx, posts, req.SearchTerms, req.SpecialUnicode, workers)
		if err != nil {
			return nil, fmt.Errorf("match posts: %w", err)
		}
	} else {
		matches = match.FindMatches(posts, req.SearchTerms, req.SpecialUnicode)
	}

	span.SetAttributes(attribute.Int("matches", len(matches)))
	if log.GetLevel() <= zerolog.DebugLevel {
		for _, m := range matches {
			log.Debug().Str("text", firstNRunes(h.redactor.Apply(m), snippetRunes)).Msg("post matched")
		}
	}
	return matches, nil
}

func (h *Handler) publish(ctx context.Context, req *event.Request, matches []string) (notify.Outcome, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, string(StatePublishing))
	defer span.End()

	log := zerolog.Ctx(ctx)

	body := digest.Compose(matches)

	topic, err := h.cfg.Topic()
	if err != nil {
		return nil, err
	}

	transition(log, StatePublishing).Str("topic", topic).Int("matches", len(matches)).Send()

	pub, err := h.publishers(ctx)
	if err != nil {
		return nil, err
	}

	return pub.Publish(ctx, notify.Message{
		Topic:   topic,
		Subject: req.Subject,
		Body:    body,
	})
}

func transition(log *zerolog.Logger, s State) *zerolog.Event {
	return log.Info().Str("state", string(s))
}

func fail(span trace.Span, log *zerolog.Logger, s State, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error().Err(err).Str("state", string(s)).Msg("invocation failed")
	return err
}

func firstNRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
