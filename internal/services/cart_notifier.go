package services

import (
	"sync"
	"time"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

const defaultAlertWindow = 4 * time.Second

// cartNotifier holds at most one currently-visible "item added" alert.
type cartNotifier struct {
	mu      sync.Mutex
	item    domain.CartLineItem
	expires time.Time
	window  time.Duration
	now     func() time.Time
}

// NewCartNotifier constructs a CartNotifier with the given visibility window.
func NewCartNotifier(window time.Duration, clock Clock) CartNotifier {
	if window <= 0 {
		window = defaultAlertWindow
	}
	now := time.Now
	if clock != nil {
		now = func() time.Time { return clock() }
	}
	return &cartNotifier{window: window, now: now}
}

// Notify replaces the current alert with the given item.
func (n *cartNotifier) Notify(item domain.CartLineItem) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.item = item
	n.expires = n.now().Add(n.window)
}

// Current returns the alert while its window holds.
func (n *cartNotifier) Current() (domain.CartLineItem, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.expires.IsZero() || n.now().After(n.expires) {
		return domain.CartLineItem{}, false
	}
	return n.item, true
}
