// Package retry implements the transient-fault retry policy used for every
// database operation: error classification by message pattern plus
// exponential backoff between attempts.
package retry

import "regexp"

// Classification is the transient-fault class assigned to an error.
// Anything not recognized as infrastructure noise is NonTransient and is
// never retried here — structural SQL errors are the fixpoint executor's
// concern, not the retry policy's.
type Classification string

const (
	NetworkTimeout   Classification = "NetworkTimeout"
	ServerThrottling Classification = "ServerThrottling"
	Deadlock         Classification = "Deadlock"
	PoolExhaustion   Classification = "PoolExhaustion"
	TransportError   Classification = "TransportError"
	NonTransient     Classification = "NonTransient"
)

var (
	timeoutPattern = regexp.MustCompile(`(?i)timed? ?out|i/o timeout|connection (was )?(lost|closed|reset)|broken pipe`)

	// Azure SQL throttling and availability error codes.
	throttlingCodes = regexp.MustCompile(`\b(4060|10928|10929|40197|40501|40613|49918|49919|49920)\b`)

	// 1205 is the deadlock victim error.
	deadlockPattern = regexp.MustCompile(`\b1205\b|(?i)deadlock victim`)

	poolPattern = regexp.MustCompile(`(?i)connection pool|pool (is )?exhaust|too many open connections`)

	// Transport-level session errors surfaced by the driver.
	transportCodes = regexp.MustCompile(`\b(233|64|121|10053|10054|10060)\b|(?i)transport-level error`)
)

// Classify assigns a transient-fault class to an error by message pattern,
// first match wins: timeout, throttling code, deadlock, pool exhaustion,
// transport code, otherwise NonTransient.
func Classify(err error) Classification {
	if err == nil {
		return NonTransient
	}
	msg := err.Error()

	switch {
	case timeoutPattern.MatchString(msg):
		return NetworkTimeout
	case throttlingCodes.MatchString(msg):
		return ServerThrottling
	case deadlockPattern.MatchString(msg):
		return Deadlock
	case poolPattern.MatchString(msg):
		return PoolExhaustion
	case transportCodes.MatchString(msg):
		return TransportError
	default:
		return NonTransient
	}
}

// IsTransient reports whether an error would be retried by the policy.
func IsTransient(err error) bool {
	return Classify(err) != NonTransient
}
