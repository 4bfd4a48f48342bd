package archive

import (
	"testing"
	"time"

	"vkitchen_back_end/internal/models"
)

var created = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestBackfillKeepsRealStamps(t *testing.T) {
	placed := created.Add(2 * time.Minute)
	o := &models.Order{
		Status:    models.StatusPreparing,
		CreatedAt: created,
		Delivery:  models.DeliveryInfo{Type: models.DeliveryTypePickup},
		StatusTimestamps: map[string]time.Time{
			string(models.StatusPlaced):    placed,
			string(models.StatusPreparing): placed.Add(time.Minute),
		},
	}

	out := BackfillTimestamps(o)
	if out[string(models.StatusPlaced)] != placed {
		t.Error("real placed stamp was overwritten")
	}
	if out[string(models.StatusPreparing)] != placed.Add(time.Minute) {
		t.Error("real preparing stamp was overwritten")
	}
}

func TestBackfillFillsSkippedStages(t *testing.T) {
	// Order jumped straight from placed to completed.
	o := &models.Order{
		Status:    models.StatusCompleted,
		CreatedAt: created,
		Delivery:  models.DeliveryInfo{Type: models.DeliveryTypeDelivery},
		StatusTimestamps: map[string]time.Time{
			string(models.StatusPlaced):    created,
			string(models.StatusCompleted): created.Add(40 * time.Minute),
		},
	}

	out := BackfillTimestamps(o)
	if _, ok := out[string(models.StatusPreparing)]; !ok {
		t.Error("preparing not backfilled")
	}
	if _, ok := out[string(models.StatusReady)]; !ok {
		t.Error("ready not backfilled")
	}
	if _, ok := out[string(models.StatusOutForDelivery)]; !ok {
		t.Error("out_for_delivery not backfilled for a delivery order")
	}
	if out[string(models.StatusPreparing)] != created.Add(5*time.Minute) {
		t.Errorf("preparing = %v", out[string(models.StatusPreparing)])
	}
}

func TestBackfillPickupSkipsOutForDelivery(t *testing.T) {
	o := &models.Order{
		Status:    models.StatusCompleted,
		CreatedAt: created,
		Delivery:  models.DeliveryInfo{Type: models.DeliveryTypePickup},
		StatusTimestamps: map[string]time.Time{
			string(models.StatusPlaced): created,
		},
	}

	out := BackfillTimestamps(o)
	if _, ok := out[string(models.StatusOutForDelivery)]; ok {
		t.Error("pickup order must not get an out_for_delivery stamp")
	}
}

func TestBackfillCancelledKeepsOnlyEarnedStamps(t *testing.T) {
	o := &models.Order{
		Status:    models.StatusCancelled,
		CreatedAt: created,
		Delivery:  models.DeliveryInfo{Type: models.DeliveryTypeDelivery},
		StatusTimestamps: map[string]time.Time{
			string(models.StatusPlaced):    created,
			string(models.StatusCancelled): created.Add(10 * time.Minute),
		},
	}

	out := BackfillTimestamps(o)
	if _, ok := out[string(models.StatusPreparing)]; ok {
		t.Error("cancelled order got a fabricated preparing stamp")
	}
	if out[string(models.StatusCancelled)] != created.Add(10*time.Minute) {
		t.Error("cancelled stamp lost")
	}
}

func TestBackfillMissingPlacedFallsBackToCreation(t *testing.T) {
	o := &models.Order{
		Status:    models.StatusPlaced,
		CreatedAt: created,
		Delivery:  models.DeliveryInfo{Type: models.DeliveryTypePickup},
	}

	out := BackfillTimestamps(o)
	if out[string(models.StatusPlaced)] != created {
		t.Errorf("placed = %v, want creation time", out[string(models.StatusPlaced)])
	}
}
