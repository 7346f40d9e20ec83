package main

import "time"

const (
	rxBackoffMin = 20 * time.Millisecond
	rxBackoffMax = 500 * time.Millisecond
	// txDrainPoll is how often send waits for the TX queue to empty.
	txDrainPoll = time.Millisecond
)

// sleepFn is a hook for tests.
var sleepFn = time.Sleep
