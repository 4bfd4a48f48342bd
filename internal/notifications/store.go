package notifications

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"vkitchen_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("notification not found")

// Store keeps the per-user notification feed. Rows are written with a native
// TTL so expiry needs no sweeper. Unread counts are cached in Redis and
// invalidated on every write.
type Store struct {
	session *gocql.Session
	rdb     *redis.Client
	ttl     time.Duration
}

func NewStore(session *gocql.Session, rdb *redis.Client) *Store {
	return &Store{session: session, rdb: rdb, ttl: models.NotificationTTL}
}

func (s *Store) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID == (gocql.UUID{}) {
		n.ID = gocql.TimeUUID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.ExpiresAt = n.CreatedAt.Add(s.ttl)

	err := s.session.Query(`
		INSERT INTO notifications (user_id, notification_id, type, title, message, data,
			priority, read, read_at, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) USING TTL ?`,
		n.UserID, n.ID, string(n.Type), n.Title, n.Message, n.Data,
		n.Priority, n.Read, time.Time{}, n.CreatedAt, n.ExpiresAt,
		int(s.ttl.Seconds()),
	).WithContext(ctx).Exec()
	if err != nil {
		return err
	}

	s.invalidateUnread(ctx, n.UserID)
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	iter := s.session.Query(`
		SELECT notification_id, type, title, message, data, priority, read, read_at, created_at, expires_at
		FROM notifications WHERE user_id = ?`, userID).WithContext(ctx).Iter()

	var out []models.Notification
	for {
		n := models.Notification{UserID: userID}
		var notifType string
		var readAt time.Time
		if !iter.Scan(&n.ID, &notifType, &n.Title, &n.Message, &n.Data, &n.Priority,
			&n.Read, &readAt, &n.CreatedAt, &n.ExpiresAt) {
			break
		}
		n.Type = models.NotificationType(notifType)
		if !readAt.IsZero() {
			n.ReadAt = &readAt
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	notifUUID, err := gocql.ParseUUID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var notifType, title string
	var expiresAt time.Time
	err = s.session.Query(`
		SELECT type, title, expires_at FROM notifications WHERE user_id = ? AND notification_id = ?`,
		userID, notifUUID).WithContext(ctx).Scan(&notifType, &title, &expiresAt)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.session.Query(`
		UPDATE notifications USING TTL ? SET read = ?, read_at = ? WHERE user_id = ? AND notification_id = ?`,
		remainingTTL(expiresAt, now), true, now, userID, notifUUID).WithContext(ctx).Exec()
	if err != nil {
		return nil, err
	}

	s.invalidateUnread(ctx, userID)
	return &models.Notification{
		ID:     notifUUID,
		UserID: userID,
		Type:   models.NotificationType(notifType),
		Title:  title,
		Read:   true,
		ReadAt: &now,
	}, nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) (int, error) {
	unread, err := s.ListByUser(ctx, userID, true)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	for _, n := range unread {
		if err := s.session.Query(`
			UPDATE notifications USING TTL ? SET read = ?, read_at = ? WHERE user_id = ? AND notification_id = ?`,
			remainingTTL(n.ExpiresAt, now), true, now, userID, n.ID).WithContext(ctx).Exec(); err != nil {
			return 0, err
		}
	}

	s.invalidateUnread(ctx, userID)
	return len(unread), nil
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	notifUUID, err := gocql.ParseUUID(id)
	if err != nil {
		return ErrNotFound
	}

	err = s.session.Query(`DELETE FROM notifications WHERE user_id = ? AND notification_id = ?`,
		userID, notifUUID).WithContext(ctx).Exec()
	if err != nil {
		return err
	}

	s.invalidateUnread(ctx, userID)
	return nil
}

// CountUnread serves from the Redis cache when warm.
func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	key := unreadKey(userID)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Int(); err == nil {
			return cached, nil
		}
	}

	unread, err := s.ListByUser(ctx, userID, true)
	if err != nil {
		return 0, err
	}

	if s.rdb != nil {
		s.rdb.Set(ctx, key, len(unread), 5*time.Minute)
	}
	return len(unread), nil
}

func (s *Store) invalidateUnread(ctx context.Context, userID string) {
	if s.rdb != nil {
		s.rdb.Del(ctx, unreadKey(userID))
	}
}

func unreadKey(userID string) string {
	return fmt.Sprintf("notif:unread:%s", userID)
}

// remainingTTL is the row lifetime left in seconds. Updates must carry it so
// the read columns expire together with the rest of the row instead of
// outliving it as a ghost entry.
func remainingTTL(expiresAt, now time.Time) int {
	secs := int(expiresAt.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
