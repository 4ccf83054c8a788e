package migration

import "time"

// throttle lets an event pass at most once per interval.
type throttle struct {
	interval time.Duration
	now      func() time.Time
	last     time.Time
	primed   bool
}

func newThrottle(interval time.Duration, now func() time.Time) *throttle {
	return &throttle{
		interval: interval,
		now:      now,
	}
}

func (t *throttle) allow() bool {
	now := t.now()

	if t.primed && now.Sub(t.last) < t.interval {
		return false
	}

	t.last = now
	t.primed = true

	return true
}

// progressReporter posts the overall progress in parts per thousand, only
// when the value has changed and the throttle allows it.
type progressReporter struct {
	total    uint64
	last     int
	throttle *throttle
	post     func(permille int)
}

func (p *progressReporter) update(done uint64) {
	if p.total == 0 {
		return
	}

	permille := int(min(done, p.total) * 1000 / p.total) //nolint:gosec,mnd
	if permille == p.last {
		return
	}

	if !p.throttle.allow() {
		return
	}

	p.last = permille
	p.post(permille)
}
