package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vkitchen_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const orderIndex = "orders"

// Indexer copies terminal orders into Elasticsearch so history survives
// independently of the live order table and can be searched.
type Indexer struct {
	es    *elasticsearch.Client
	index string
}

func NewIndexer(es *elasticsearch.Client) *Indexer {
	return &Indexer{es: es, index: orderIndex}
}

type orderDoc struct {
	OrderID          string               `json:"order_id"`
	OrderNumber      string               `json:"order_number"`
	UserID           string               `json:"user_id"`
	UserEmail        string               `json:"user_email"`
	Items            []models.OrderItem   `json:"items"`
	TotalAmount      float64              `json:"total_amount"`
	Status           string               `json:"status"`
	PaymentStatus    string               `json:"payment_status"`
	StatusTimestamps map[string]time.Time `json:"status_timestamps"`
	DeliveryType     string               `json:"delivery_type"`
	RefundID         string               `json:"refund_id,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	ArchivedAt       time.Time            `json:"archived_at"`
}

func (i *Indexer) IndexOrder(ctx context.Context, o *models.Order) error {
	doc := orderDoc{
		OrderID:          o.ID.String(),
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		UserEmail:        o.UserEmail,
		Items:            o.Items,
		TotalAmount:      o.TotalAmount,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		StatusTimestamps: BackfillTimestamps(o),
		DeliveryType:     o.Delivery.Type,
		RefundID:         o.RefundID,
		CreatedAt:        o.CreatedAt,
		ArchivedAt:       time.Now(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("order document marshal failed: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: o.ID.String(),
		Body:       bytes.NewReader(data),
	}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return fmt.Errorf("elastic index request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elastic rejected order %s: %s", o.OrderNumber, res.String())
	}
	return nil
}

// intermediate offsets used when an order skipped straight past a stage and
// never got a real timestamp for it
var stageOffsets = map[models.OrderStatus]time.Duration{
	models.StatusPlaced:         0,
	models.StatusPreparing:      5 * time.Minute,
	models.StatusReady:          20 * time.Minute,
	models.StatusOutForDelivery: 25 * time.Minute,
}

// BackfillTimestamps fills holes in an order's status history. Real stamps
// are kept untouched; missing intermediate stages up to the order's current
// position get plausible times derived from creation.
func BackfillTimestamps(o *models.Order) map[string]time.Time {
	out := make(map[string]time.Time, len(o.StatusTimestamps))
	for k, v := range o.StatusTimestamps {
		out[k] = v
	}

	if _, ok := out[string(models.StatusPlaced)]; !ok {
		out[string(models.StatusPlaced)] = o.CreatedAt
	}
	for status, offset := range stageOffsets {
		if !reached(o, status) {
			continue
		}
		if _, ok := out[string(status)]; !ok {
			out[string(status)] = o.CreatedAt.Add(offset)
		}
	}
	return out
}

// reached reports whether the order passed through a fulfillment stage on
// its way to its current status. Pickup orders never pass out_for_delivery.
func reached(o *models.Order, stage models.OrderStatus) bool {
	if stage == models.StatusOutForDelivery && o.Delivery.Type != models.DeliveryTypeDelivery {
		return false
	}
	if o.Status == models.StatusCancelled {
		// Cancelled orders keep only the stamps they actually earned.
		return false
	}
	return stage == o.Status || stage.CanAdvanceTo(o.Status)
}
