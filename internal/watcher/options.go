package watcher

import "time"

// DefaultSettleDelay is how long the file must stay unchanged before an
// event is emitted.
const DefaultSettleDelay = 2 * time.Second

// Options configures the file watcher behavior.
type Options struct {
	// SettleDelay is the quiet period after the last write. A database
	// being synced from a device is written in many bursts.
	SettleDelay time.Duration
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
}
