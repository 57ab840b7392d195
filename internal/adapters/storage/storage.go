package storage

import "time"

// timeNow is a seam for tests that assert on creation ordering.
var timeNow = func() time.Time { return time.Now().UTC() }
