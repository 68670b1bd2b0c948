package queue

import "errors"

// errCircuitOpen is recorded against a pending message when the AI
// Gateway circuit breaker is open, so the message is retried once the
// breaker closes rather than being discarded.
var errCircuitOpen = errors.New("queue: AI gateway circuit breaker is open")
