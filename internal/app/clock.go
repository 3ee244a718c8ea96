package app

import "time"

// Clock hands out tickers so tests can drive the countdown by hand.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker mirrors the part of time.Ticker the session timer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type systemClock struct{}

// SystemClock returns the wall-clock backed Clock.
func SystemClock() Clock { return systemClock{} }

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }
