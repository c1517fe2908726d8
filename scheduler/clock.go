package scheduler

import "time"

// Clock abstracts wall time so stuck-document detection can be tested
// without waiting.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
