package model

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/username/ledgercore/src/database"
	"github.com/username/ledgercore/src/models"
)

func InsertCategory(ctx context.Context, q database.DBTX, c *models.Category) error {
	c.CreatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx,
		`INSERT INTO categories (name, category_type, created_at) VALUES (?, ?, ?)`,
		c.Name, c.CategoryType, c.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// GetCategoryByID returns sql.ErrNoRows when the category does not exist.
func GetCategoryByID(ctx context.Context, q database.DBTX, id int64) (*models.Category, error) {
	var c models.Category
	err := q.QueryRowContext(ctx,
		`SELECT id, name, category_type, created_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.CategoryType, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &c, nil
}

func CategoryNameExists(ctx context.Context, q database.DBTX, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE name = ? COLLATE NOCASE`, name).Scan(&n)
	return n > 0, err
}

// ListCategories returns categories ordered by name; an empty categoryType lists all.
func ListCategories(ctx context.Context, q database.DBTX, categoryType models.CategoryType) ([]models.Category, error) {
	query := `SELECT id, name, category_type, created_at FROM categories`
	var args []any
	if categoryType != "" {
		query += ` WHERE category_type = ?`
		args = append(args, categoryType)
	}
	query += ` ORDER BY name COLLATE NOCASE ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CategoryType, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
