package dishes

import (
	"context"
	"errors"
	"time"

	"vkitchen_back_end/internal/models"

	"github.com/gocql/gocql"
)

var ErrNotFound = errors.New("dish not found")

// Store persists the menu in the menu keyspace.
type Store struct {
	session *gocql.Session
}

func NewStore(session *gocql.Session) *Store {
	return &Store{session: session}
}

const dishColumns = `dish_id, name, description, category, price, image_url, available, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, d *models.Dish) error {
	return s.session.Query(`
		INSERT INTO dishes (`+dishColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Description, d.Category, d.Price, d.ImageURL, d.Available,
		d.CreatedAt, d.UpdatedAt,
	).WithContext(ctx).Exec()
}

func (s *Store) Update(ctx context.Context, d *models.Dish) error {
	d.UpdatedAt = time.Now()

	return s.session.Query(`
		UPDATE dishes SET
			name = ?, description = ?, category = ?, price = ?,
			image_url = ?, available = ?, updated_at = ?
		WHERE dish_id = ?`,
		d.Name, d.Description, d.Category, d.Price,
		d.ImageURL, d.Available, d.UpdatedAt,
		d.ID,
	).WithContext(ctx).Exec()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	dishUUID, err := gocql.ParseUUID(id)
	if err != nil {
		return ErrNotFound
	}
	return s.session.Query(`DELETE FROM dishes WHERE dish_id = ?`, dishUUID).
		WithContext(ctx).Exec()
}

// GetDish satisfies the order pipeline's catalog lookup.
func (s *Store) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	dishUUID, err := gocql.ParseUUID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var d models.Dish
	err = s.session.Query(`SELECT `+dishColumns+` FROM dishes WHERE dish_id = ?`, dishUUID).
		WithContext(ctx).Scan(
		&d.ID, &d.Name, &d.Description, &d.Category, &d.Price, &d.ImageURL, &d.Available,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns the menu; availableOnly hides dishes taken off sale.
func (s *Store) List(ctx context.Context, availableOnly bool) ([]models.Dish, error) {
	iter := s.session.Query(`SELECT ` + dishColumns + ` FROM dishes`).WithContext(ctx).Iter()

	var out []models.Dish
	var d models.Dish
	for iter.Scan(&d.ID, &d.Name, &d.Description, &d.Category, &d.Price, &d.ImageURL, &d.Available,
		&d.CreatedAt, &d.UpdatedAt) {
		if availableOnly && !d.Available {
			continue
		}
		out = append(out, d)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}
