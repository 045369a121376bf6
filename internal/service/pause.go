package service

import (
	"sync"
	"time"

	"github.com/Altinn/altinn-notifications-sub006/internal/domain"
)

// ChannelPauser tracks per-channel dispatch pauses announced by the
// platform, e.g. a gateway resource limit being exceeded. State is
// process-local and expires on its own once the reset time passes.
type ChannelPauser struct {
	mu     sync.Mutex
	paused map[domain.Channel]time.Time
	now    func() time.Time
}

func NewChannelPauser() *ChannelPauser {
	return &ChannelPauser{
		paused: make(map[domain.Channel]time.Time),
		now:    time.Now,
	}
}

// Pause suspends dispatch on the channel until the given time. A zero or
// past until clears any existing pause.
func (p *ChannelPauser) Pause(channel domain.Channel, until time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if until.IsZero() || !until.After(p.now()) {
		delete(p.paused, channel)
		return
	}
	p.paused[channel] = until
}

// PausedUntil reports whether dispatch on the channel is currently paused
// and until when. Expired pauses are cleared as a side effect.
func (p *ChannelPauser) PausedUntil(channel domain.Channel) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	until, ok := p.paused[channel]
	if !ok {
		return time.Time{}, false
	}
	if !until.After(p.now()) {
		delete(p.paused, channel)
		return time.Time{}, false
	}
	return until, true
}
