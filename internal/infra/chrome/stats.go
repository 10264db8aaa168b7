package chrome

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a snapshot of browser lifecycle counters.
type Stats struct {
	Engine     string     `json:"engine"`
	Launched   int64      `json:"launched"`
	Active     int64      `json:"active"`
	Failed     int64      `json:"failed"`
	LastFailed *time.Time `json:"last_failed,omitempty"`
}

type counters struct {
	engine     string
	launched   atomic.Int64
	active     atomic.Int64
	failed     atomic.Int64
	lastFailed atomic.Int64
}

// launch records a browser start and returns the matching release. The
// release only takes effect once no matter how often it is called.
func (c *counters) launch() func(err error) {
	c.launched.Add(1)
	c.active.Add(1)
	var once sync.Once
	return func(err error) {
		once.Do(func() {
			c.active.Add(-1)
			if err != nil {
				c.failed.Add(1)
				c.lastFailed.Store(time.Now().UnixNano())
			}
		})
	}
}

func (c *counters) snapshot() Stats {
	s := Stats{
		Engine:   c.engine,
		Launched: c.launched.Load(),
		Active:   c.active.Load(),
		Failed:   c.failed.Load(),
	}
	if ns := c.lastFailed.Load(); ns > 0 {
		t := time.Unix(0, ns)
		s.LastFailed = &t
	}
	return s
}
