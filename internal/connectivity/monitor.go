package connectivity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openlearn/edusync/internal/logger"
	"github.com/openlearn/edusync/internal/metrics"
)

// Event is a connectivity transition delivered to subscribers.
type Event struct {
	Online bool
	At     time.Time
}

// Monitor is the single source of truth for online/offline state. Platform
// network signals enter through SetOnline; a periodic reachability probe
// feeds the same transition path, so subscribers only ever observe one event
// source.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []chan Event

	prober   Prober
	interval time.Duration
}

// NewMonitor builds a monitor that starts offline; the first platform signal
// or probe pass flips it. interval <= 0 disables the periodic probe.
func NewMonitor(prober Prober, interval time.Duration) *Monitor {
	return &Monitor{prober: prober, interval: interval}
}

// IsOnline returns the current state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe returns a channel receiving transitions. The channel holds the
// latest unconsumed event; a slow subscriber sees only the most recent state,
// never a stale backlog, and can never block a transition.
func (m *Monitor) Subscribe() <-chan Event {
	ch := make(chan Event, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// SetOnline records an external network signal. Subscribers are notified
// before SetOnline returns, but only on an actual transition.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]chan Event, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	state := "offline"
	if online {
		state = "online"
	}
	metrics.ConnectivityFlips.WithLabelValues(state).Inc()
	logger.Log.Info("connectivity transition", zap.String("state", state))

	ev := Event{Online: online, At: time.Now()}
	for _, ch := range subs {
		// replace a stale unconsumed event instead of blocking
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Run drives the periodic reachability probe until ctx is cancelled. The
// probe recovers from false "online" platform signals.
func (m *Monitor) Run(ctx context.Context) {
	if m.prober == nil || m.interval <= 0 {
		<-ctx.Done()
		return
	}

	// probe once at startup so the engine doesn't wait a full interval
	m.SetOnline(m.prober.Probe(ctx))

	tick := time.NewTicker(m.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			m.SetOnline(m.prober.Probe(ctx))
		}
	}
}
