package transmit

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/denlab/airnode/pkg/telemetry"
)

// Sender is the synchronous send contract Async wraps.
type Sender interface {
	Send(ctx context.Context, agg telemetry.Aggregate) error
}

// Async decouples the sampling loop from the network: Publish hands an
// aggregate to a single worker goroutine and returns immediately. There
// is no queue beyond the hand-off slot; if a send is still in flight
// when the next aggregate arrives, the new one is dropped and logged,
// matching the no-retry, no-buffering transmission policy.
type Async struct {
	sender  Sender
	timeout time.Duration
	pending chan telemetry.Aggregate
	done    chan struct{}
}

// NewAsync creates and starts an Async dispatcher around sender. Stop
// it with Close.
func NewAsync(sender Sender, timeout time.Duration) *Async {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	a := &Async{
		sender:  sender,
		timeout: timeout,
		pending: make(chan telemetry.Aggregate, 1),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Publish hands agg to the send worker without blocking.
func (a *Async) Publish(agg telemetry.Aggregate) {
	select {
	case a.pending <- agg:
	default:
		log.Warn("previous transmission still in flight, dropping aggregate")
	}
}

// Close stops the worker after the in-flight send, if any, completes.
func (a *Async) Close() {
	close(a.pending)
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)

	for agg := range a.pending {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.sender.Send(ctx, agg); err != nil {
			log.WithError(err).Error("transmission failed, aggregate lost")
		}
		cancel()
	}
}
