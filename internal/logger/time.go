package logger

import "time"

// timeNow is replaced in tests for deterministic output.
var timeNow = time.Now
