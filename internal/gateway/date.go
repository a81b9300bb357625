package gateway

import (
	"net/http"
	"time"

	libatomic "github.com/openbmc-project/bmcweb-core/atomic"
)

// dateRefresh is how stale the cached Date header string may get.
const dateRefresh = 10 * time.Second

// dateCache holds a process-wide RFC 7231 IMF-fixdate string,
// recomputed at most once per dateRefresh.
type dateCache struct {
	value   libatomic.Value[string]
	refresh libatomic.Value[time.Time]
	clock   func() time.Time
}

func newDateCache(clock func() time.Time) *dateCache {
	if clock == nil {
		clock = time.Now
	}
	d := &dateCache{
		value:   libatomic.NewValue[string](),
		refresh: libatomic.NewValue[time.Time](),
		clock:   clock,
	}
	return d
}

// Get returns the cached date string, refreshing it when stale.
func (d *dateCache) Get() string {
	now := d.clock()
	if v := d.value.Load(); v != "" && now.Sub(d.refresh.Load()) < dateRefresh {
		return v
	}
	v := now.UTC().Format(http.TimeFormat)
	d.value.Store(v)
	d.refresh.Store(now)
	return v
}
