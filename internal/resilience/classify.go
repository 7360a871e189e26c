// Package resilience wraps every exchange gateway call. It classifies
// failures by their message text (the gateways flatten many upstream error
// shapes into free text, so there is no structured code to dispatch on) and
// applies the retry policy each class requires.
package resilience

import (
	"errors"
	"strings"
)

type Class int

const (
	// Transient failures are retried after a jittered backoff, indefinitely.
	Transient Class = iota
	// Stop failures abort the current order attempt only.
	Stop
	// Account failures deactivate the bot.
	Account
)

// Markers are matched case-insensitively as substrings. Several are spelled
// without their leading letter on purpose, covering both capitalizations
// upstream ("Insufficient"/"insufficient", "Invalid arg"/"invalid arg").
var stopMarkers = []string{
	"order_size", "smaller", "min_notional", "nsufficient", "too low",
	"too small", "not_enough", "below", "exceeds account", "price",
	"nvalid arg", "nvalid orderqty",
}

var accountMarkers = []string{
	"account has been disabled", "key is disabled", "authentication failed",
	"permission denied", "invalid api key", "access denied",
}

// Classify maps an exchange error to its handling class.
// Account errors win over stop errors when both match.
func Classify(err error) Class {
	if err == nil {
		return Transient
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range accountMarkers {
		if strings.Contains(msg, marker) {
			return Account
		}
	}
	for _, marker := range stopMarkers {
		if strings.Contains(msg, marker) {
			return Stop
		}
	}
	return Transient
}

// ErrStop marks an aborted order attempt. The caller drops the current
// action and carries on with the next cycle; the bot stays up.
var ErrStop = errors.New("order attempt aborted")

// ErrExhausted is returned by the bounded retry variant once the attempt
// ceiling is reached.
var ErrExhausted = errors.New("retries exhausted")

// IsStop reports whether err aborted a single order attempt.
func IsStop(err error) bool {
	return errors.Is(err, ErrStop)
}
