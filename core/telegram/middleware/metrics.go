package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const repliesKey = "replies"

// countingContext counts successful sends made through the wrapped context.
type countingContext struct {
	tele.Context
	n *atomic.Int32
}

func (m countingContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.n.Add(1)
	}
	return err
}

func (m countingContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.n.Add(1)
	}
	return err
}

// MessageMetricsMiddleware wraps the context so handlers' replies are counted.
// Sends performed later by the async sender are counted when they complete.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := new(atomic.Int32)
		c.Set(repliesKey, n)
		return next(countingContext{Context: c, n: n})
	}
}

// RepliesSent returns how many replies have been sent for the update so far.
func RepliesSent(c tele.Context) int {
	if n, ok := c.Get(repliesKey).(*atomic.Int32); ok {
		return int(n.Load())
	}
	return 0
}
