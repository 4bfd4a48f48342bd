package notifications

import (
	"testing"
	"time"

	"vkitchen_back_end/internal/models"
)

func TestRemainingTTLTracksRowLifetime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// A fresh row keeps the full TTL.
	fresh := now.Add(models.NotificationTTL)
	if got := remainingTTL(fresh, now); got != int(models.NotificationTTL.Seconds()) {
		t.Errorf("fresh row TTL = %d, want %d", got, int(models.NotificationTTL.Seconds()))
	}

	// A row read halfway through its life carries only what is left, so the
	// read columns expire together with the insert-time columns.
	half := now.Add(models.NotificationTTL / 2)
	if got := remainingTTL(half, now); got != int(models.NotificationTTL.Seconds())/2 {
		t.Errorf("half-life TTL = %d, want %d", got, int(models.NotificationTTL.Seconds())/2)
	}
}

func TestRemainingTTLNeverZero(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// TTL 0 would mean "never expire" in CQL; an already-expired or
	// about-to-expire row must still get a positive TTL.
	for _, expiresAt := range []time.Time{now, now.Add(-time.Hour), now.Add(500 * time.Millisecond)} {
		if got := remainingTTL(expiresAt, now); got < 1 {
			t.Errorf("remainingTTL(%v) = %d, want >= 1", expiresAt, got)
		}
	}
}
