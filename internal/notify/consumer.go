package notify

import (
	"context"
	"errors"
	"time"

	"kiitcms/backend/internal/config"
	"kiitcms/backend/internal/localization"
	"kiitcms/backend/internal/logger"
)

// ErrNoRoute means a sink has no address for the recipient. It is not retried.
var ErrNoRoute = errors.New("no route for recipient")

// Message is the rendered text of an event.
type Message struct {
	Title string
	Body  string
}

// Sink delivers one message over one channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event, msg Message) error
}

// Renderer turns events into text through the message catalogue.
type Renderer struct {
	Localizer *localization.Localizer
	Lang      string
}

func (r Renderer) Render(ev Event) Message {
	lang := r.Lang
	if lang == "" {
		lang = localization.DefaultLanguage
	}
	vars := map[string]string{
		"title":  ev.ComplaintTitle,
		"status": string(ev.Status),
		"dept":   ev.Dept,
		"actor":  ev.Actor,
	}
	return Message{
		Title: r.Localizer.Format(lang, "notify_"+string(ev.Kind)+"_title", vars),
		Body:  r.Localizer.Format(lang, "notify_"+string(ev.Kind)+"_body", vars),
	}
}

// Consumer drains a Dispatcher and hands each event to every sink.
// Failures are retried with exponential backoff and then logged; nothing is
// reported back to the emitter.
type Consumer struct {
	Events      <-chan Event
	Sinks       []Sink
	Renderer    Renderer
	MaxAttempts int
	Backoff     time.Duration
}

func NewConsumer(d *Dispatcher, r Renderer, sinks ...Sink) *Consumer {
	return &Consumer{
		Events:      d.Events(),
		Sinks:       sinks,
		Renderer:    r,
		MaxAttempts: config.NotifyMaxAttempts,
		Backoff:     config.NotifyInitialBackoff,
	}
}

// Run delivers until the queue is closed or ctx ends.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.Events:
			if !ok {
				return
			}
			c.Handle(ctx, ev)
		}
	}
}

// Handle delivers ev to every sink.
func (c *Consumer) Handle(ctx context.Context, ev Event) {
	msg := c.Renderer.Render(ev)
	for _, sink := range c.Sinks {
		err := c.deliver(ctx, sink, ev, msg)
		switch {
		case err == nil:
			logger.Debug().Str("sink", sink.Name()).Str("kind", string(ev.Kind)).Str("complaint_id", ev.ComplaintID).Msg("notification delivered")
		case errors.Is(err, ErrNoRoute):
			logger.Debug().Str("sink", sink.Name()).Str("recipient", ev.Recipient.String()).Msg("no route, skipped")
		default:
			logger.Error().Err(err).
				Str("sink", sink.Name()).
				Str("kind", string(ev.Kind)).
				Str("complaint_id", ev.ComplaintID).
				Str("recipient", ev.Recipient.String()).
				Msg("notification delivery failed")
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, sink Sink, ev Event, msg Message) error {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	wait := c.Backoff

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
		err = sink.Deliver(ctx, ev, msg)
		if err == nil || errors.Is(err, ErrNoRoute) {
			return err
		}
		logger.Warn().Err(err).Str("sink", sink.Name()).Int("attempt", i+1).Msg("notification attempt failed")
	}
	return err
}
