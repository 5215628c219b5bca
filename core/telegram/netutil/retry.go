// Package netutil classifies transport errors returned while talking to the Bot API.
package netutil

import (
	"errors"
	"net"
	"net/url"

	tele "gopkg.in/telebot.v4"
)

// ShouldRetry reports whether err is a transient failure worth another attempt:
// dial errors, timeouts, and Telegram flood control.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Timeout() || opErr.Op == "dial") {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

// RetryAfter returns the delay Telegram asked for in a flood error, or zero.
func RetryAfter(err error) int {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return flood.RetryAfter
	}
	return 0
}
