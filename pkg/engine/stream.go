package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/strom-dev/strom/pkg/api"
	"github.com/strom-dev/strom/pkg/observability"
	"github.com/strom-dev/strom/pkg/toolcall"
)

// pumpStream forwards provider events to out while tapping them through
// a tool-call accumulator, so metrics and usage records are produced in
// the same pass. The out channel is closed when the upstream closes or a
// terminal event arrives.
func (e *Engine) pumpStream(ctx context.Context, providerName, model string, start time.Time, upstream <-chan api.StreamEvent, out chan<- api.StreamEvent) {
	defer close(out)

	acc := e.newAccumulator()

	for ev := range upstream {
		acc.Observe(ev)

		select {
		case out <- ev:
		case <-ctx.Done():
			// The consumer went away; drain the upstream so the
			// provider goroutine can exit.
			for range upstream {
			}
			return
		}

		if !ev.IsTerminal() {
			continue
		}

		duration := time.Since(start)
		observability.CompletionLatency.WithLabelValues(providerName, model).Observe(duration.Seconds())

		if ev.Kind == api.EventError {
			observability.CompletionsTotal.WithLabelValues(providerName, model, "stream", "error").Inc()
			return
		}

		observability.CompletionsTotal.WithLabelValues(providerName, model, "stream", "success").Inc()

		calls, errs := acc.Finish()
		observability.ToolCallsTotal.WithLabelValues(providerName, "ok").Add(float64(len(calls)))
		observability.ToolCallsTotal.WithLabelValues(providerName, "parse_error").Add(float64(len(errs)))

		result := &api.CompletionResult{
			ID:           api.NewCompletionID(),
			Model:        model,
			Content:      ev.Content,
			FinishReason: ev.FinishReason,
			Usage:        ev.Usage,
			ToolCalls:    calls,
		}
		e.recordUsage(ctx, providerName, result, true)
		return
	}
}

func (e *Engine) newAccumulator() *toolcall.Accumulator {
	if e.cfg.RepairToolArguments {
		return toolcall.New(toolcall.WithRepair())
	}
	return toolcall.New()
}

// CollectStream drains an event stream into a blocking-shape result.
// Text deltas accumulate into Content, tool events are reconstructed
// into complete invocations, and the terminal done event supplies the
// finish reason and usage.
//
// An error event aborts collection and returns its error. Tool calls
// whose arguments never parse are dropped from the result and their
// errors joined into the returned error; sibling calls are kept.
func CollectStream(events <-chan api.StreamEvent, opts ...toolcall.Option) (*api.CompletionResult, error) {
	acc := toolcall.New(opts...)
	var content strings.Builder

	for ev := range events {
		acc.Observe(ev)

		switch ev.Kind {
		case api.EventTextDelta:
			content.WriteString(ev.Text)

		case api.EventError:
			return nil, ev.Err

		case api.EventDone:
			calls, errs := acc.Finish()

			result := &api.CompletionResult{
				ID:           api.NewCompletionID(),
				Content:      ev.Content,
				FinishReason: ev.FinishReason,
				Usage:        ev.Usage,
				ToolCalls:    calls,
			}
			// Decoders accumulate content into the done event; fall back
			// to our own tally when a provider omits it.
			if result.Content == "" {
				result.Content = content.String()
			}
			return result, errors.Join(errs...)
		}
	}

	return nil, api.NewStreamTerminationError()
}
