package services

import (
	"testing"
	"time"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

func TestCartNotifierHoldsSingleAlert(t *testing.T) {
	instant := time.Date(2025, time.May, 6, 8, 0, 0, 0, time.UTC)
	notifier := NewCartNotifier(4*time.Second, func() time.Time { return instant })

	if _, ok := notifier.Current(); ok {
		t.Error("expected no alert initially")
	}

	notifier.Notify(domain.CartLineItem{DisplayName: "Herbal Shake Mix"})
	notifier.Notify(domain.CartLineItem{DisplayName: "Aloe Concentrate"})

	item, ok := notifier.Current()
	if !ok {
		t.Fatal("expected an alert")
	}
	if item.DisplayName != "Aloe Concentrate" {
		t.Errorf("expected the newest alert, got %q", item.DisplayName)
	}
}

func TestCartNotifierExpires(t *testing.T) {
	instant := time.Date(2025, time.May, 6, 8, 0, 0, 0, time.UTC)
	notifier := NewCartNotifier(4*time.Second, func() time.Time { return instant })

	notifier.Notify(domain.CartLineItem{DisplayName: "Herbal Shake Mix"})

	instant = instant.Add(5 * time.Second)
	if _, ok := notifier.Current(); ok {
		t.Error("expected the alert to expire")
	}
}
