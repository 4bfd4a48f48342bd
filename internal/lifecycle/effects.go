package lifecycle

import (
	"context"
	"log"
	"sync"
	"time"

	"vkitchen_back_end/internal/models"
	"vkitchen_back_end/internal/realtime"
)

// SideEffect is one unit of best-effort fan-out work downstream of a
// committed state change: a persisted notification, a realtime push, a mail.
// Failures are logged and swallowed; they never reach the caller and never
// roll anything back.
type SideEffect struct {
	Name string
	Run  func() error
}

// Dispatcher executes side-effect batches off the request path. One goroutine
// per batch keeps the effects of a single transition in order.
type Dispatcher struct {
	wg sync.WaitGroup
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Dispatch(effects []SideEffect) {
	if len(effects) == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, e := range effects {
			if err := e.Run(); err != nil {
				log.Printf("⚠️ Side effect %q failed: %v", e.Name, err)
			}
		}
	}()
}

// Wait blocks until all dispatched batches have drained. Used on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

const effectTimeout = 10 * time.Second

// effectNotify persists a feed entry and pushes notification-created plus the
// fresh unread count to the owner.
func (c *Coordinator) effectNotify(o *models.Order, typ models.NotificationType, title, message, priority string, extra map[string]string) SideEffect {
	userID := o.UserID
	data := map[string]string{
		"order_id":     o.ID.String(),
		"order_number": o.OrderNumber,
	}
	for k, v := range extra {
		data[k] = v
	}

	return SideEffect{Name: "notify:" + string(typ), Run: func() error {
		ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
		defer cancel()

		n := &models.Notification{
			UserID:   userID,
			Type:     typ,
			Title:    title,
			Message:  message,
			Priority: priority,
			Data:     data,
		}
		if err := c.Notifications.Insert(ctx, n); err != nil {
			return err
		}

		c.Hub.RouteToUser(userID, realtime.Event{
			Type:        realtime.EventNotificationCreated,
			OrderID:     o.ID.String(),
			OrderNumber: o.OrderNumber,
			Data: map[string]interface{}{
				"notification_id": n.ID.String(),
				"notification":    string(typ),
				"title":           title,
			},
		})
		c.pushUnreadCount(ctx, userID)
		return nil
	}}
}

func (c *Coordinator) pushUnreadCount(ctx context.Context, userID string) {
	count, err := c.Notifications.CountUnread(ctx, userID)
	if err != nil {
		log.Printf("⚠️ Unread count lookup failed for %s: %v", userID, err)
		return
	}
	c.Hub.RouteToUser(userID, realtime.Event{
		Type: realtime.EventUnreadCountUpdated,
		Data: map[string]interface{}{"unread_count": count},
	})
}

// effectPush routes a realtime event to the order's owner, the admin room and
// the order's ephemeral channel in one go.
func (c *Coordinator) effectPush(o *models.Order, ev realtime.Event, toAdmins bool) SideEffect {
	userID := o.UserID
	orderID := o.ID.String()

	return SideEffect{Name: "push:" + ev.Type, Run: func() error {
		c.Hub.RouteToUser(userID, ev)
		if toAdmins {
			c.Hub.RouteToRole(models.RoleAdmin, ev)
		}
		c.Hub.RouteToOrder(orderID, ev)
		return nil
	}}
}

func (c *Coordinator) effectMail(name string, send func() error) SideEffect {
	return SideEffect{Name: "mail:" + name, Run: send}
}

func (c *Coordinator) effectIndex(o *models.Order) SideEffect {
	snapshot := *o
	return SideEffect{Name: "index:order", Run: func() error {
		if c.Index == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
		defer cancel()
		return c.Index.IndexOrder(ctx, &snapshot)
	}}
}

func (c *Coordinator) orderEvent(o *models.Order, typ string, data map[string]interface{}) realtime.Event {
	return realtime.Event{
		Type:          typ,
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Timestamp:     c.now(),
		Data:          data,
	}
}
