// Package worker turns share messages from the broker into feed lines.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"fire/internal/amqp"
	"fire/internal/codec"
	"fire/internal/log"
	"fire/internal/projection"
	"fire/internal/report"
)

// Line is one printable feed entry.
type Line struct {
	At   time.Time
	Text string
}

// FeedWorker describes every shared plan it receives and hands the description to
// whoever reads Lines.
type FeedWorker struct {
	decoder  codec.Codec
	currency string
	lines    chan Line

	handled    atomic.Int64
	unreadable atomic.Int64
}

func NewFeedWorker(decoder codec.Codec, currency string, buffer int) *FeedWorker {
	return &FeedWorker{
		decoder:  decoder,
		currency: currency,
		lines:    make(chan Line, buffer),
	}
}

// Lines is closed by Close.
func (w *FeedWorker) Lines() <-chan Line {
	return w.lines
}

// Close ends Lines. Call it once the consumer has stopped calling HandleShareMessage.
func (w *FeedWorker) Close() {
	close(w.lines)
}

// Stats reports how many messages were handled and how many of them could not be decoded.
func (w *FeedWorker) Stats() (handled, unreadable int64) {
	return w.handled.Load(), w.unreadable.Load()
}

// HandleShareMessage processes a single share message from AMQP
func (w *FeedWorker) HandleShareMessage(ctx context.Context, msg *amqp.ShareCommittedMessage) error {
	logger := log.FromContext(ctx)
	logger.DebugContext(ctx, "Processing share message",
		log.FieldCodec, msg.Codec,
		log.FieldStreamCount, msg.Streams)

	text, ok := Describe(ctx, w.decoder, w.currency, msg)
	w.handled.Add(1)
	if !ok {
		w.unreadable.Add(1)
		logger.DebugContext(ctx, "Share token not readable here", log.FieldCodec, msg.Codec)
	}

	select {
	case w.lines <- Line{At: msg.CommittedAt, Text: text}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Describe summarizes a shared plan by its final projected balance. ok is false when the
// token cannot be decoded here, sealed plans for instance.
func Describe(ctx context.Context, decoder codec.Codec, currency string, msg *amqp.ShareCommittedMessage) (text string, ok bool) {
	kind := "saved"
	if msg.Manual {
		kind = "shared"
	}
	state, err := decoder.Decode(ctx, msg.Token)
	if err != nil {
		return fmt.Sprintf("%s %s plan with %d streams (not readable here)", kind, msg.Codec, msg.Streams), false
	}
	r := projection.Project(state)
	if r.Empty() || len(r.Rows) == 0 {
		return fmt.Sprintf("%s empty plan", kind), true
	}
	last := r.Rows[len(r.Rows)-1]
	return fmt.Sprintf("%s plan with %d streams, %s in %d at %s roi",
		kind, len(state.MoneyStreams), report.Amount(last.EndingBalance, currency), last.Year, report.Percent(state.ROI)), true
}
