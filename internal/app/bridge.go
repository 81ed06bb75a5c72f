package app

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrBridgeTimeout is returned when bridged work does not complete within the
// wait budget. The work itself keeps running on the dispatch queue; only the
// caller gives up.
var ErrBridgeTimeout = errors.New("bridged operation exceeded wait budget")

// Bridge lets foreign goroutines (HTTP handlers, cron jobs) run work on the
// bot's dispatch queue and wait for the result. A single timer bounds both
// the enqueue and the wait.
type Bridge struct {
	logger *zap.Logger
	queue  chan<- request
	quit   <-chan struct{}
	budget time.Duration
}

type bridgeResult struct {
	value any
	err   error
}

func newBridge(logger *zap.Logger, queue chan<- request, quit <-chan struct{}, budget time.Duration) *Bridge {
	if budget <= 0 {
		budget = 10 * time.Second
	}
	return &Bridge{
		logger: logger.Named("bridge"),
		queue:  queue,
		quit:   quit,
		budget: budget,
	}
}

// Submit runs work on the dispatch queue and returns its result. On timeout
// it returns ErrBridgeTimeout and abandons the work; the buffered reply
// channel lets the work finish without leaking.
func (br *Bridge) Submit(work func() (any, error)) (any, error) {
	reply := make(chan bridgeResult, 1)
	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				reply <- bridgeResult{err: fmt.Errorf("bridged operation panicked: %v", r)}
			}
		}()
		v, err := work()
		reply <- bridgeResult{value: v, err: err}
	}

	timer := time.NewTimer(br.budget)
	defer timer.Stop()

	select {
	case br.queue <- request{work: wrapped}:
	case <-timer.C:
		br.logger.Error("dispatch queue enqueue timed out")
		return nil, ErrBridgeTimeout
	case <-br.quit:
		return nil, errors.New("dispatcher stopped")
	}

	select {
	case res := <-reply:
		return res.value, res.err
	case <-timer.C:
		br.logger.Error("bridged operation timed out, leaving it running")
		return nil, ErrBridgeTimeout
	case <-br.quit:
		return nil, errors.New("dispatcher stopped")
	}
}
