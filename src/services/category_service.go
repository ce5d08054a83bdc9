package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/model"
	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/security/validation"
)

type categoryServiceImpl struct {
	ledger *Ledger
}

func NewCategoryStore(ledger *Ledger) CategoryStore {
	return &categoryServiceImpl{ledger: ledger}
}

func (s *categoryServiceImpl) Create(ctx context.Context, name string, categoryType models.CategoryType) (*models.Category, error) {
	name = validation.CleanText(name)
	if err := validation.ValidateStringNotEmpty(name, "name"); err != nil {
		return nil, asValidationError(err)
	}
	if err := validation.ValidateStringMaxLength(name, validation.MaxCategoryNameLength, "name"); err != nil {
		return nil, asValidationError(err)
	}
	if !categoryType.Valid() {
		return nil, &ValidationError{Field: "category_type", Message: fmt.Sprintf("%q is not a valid category type", categoryType)}
	}

	category := &models.Category{Name: name, CategoryType: categoryType}
	err := s.ledger.atomic(ctx, "create category", func(tx *sql.Tx) error {
		exists, err := model.CategoryNameExists(ctx, tx, name)
		if err != nil {
			return storageErr("check category name", err)
		}
		if exists {
			return &DuplicateNameError{Entity: "category", Name: name}
		}
		return storageErr("insert category", model.InsertCategory(ctx, tx, category))
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Category created", "categoryID", category.ID, "type", categoryType)
	return category, nil
}

func (s *categoryServiceImpl) Get(ctx context.Context, id int64) (*models.Category, error) {
	c, err := model.GetCategoryByID(ctx, s.ledger.db, id)
	if err != nil {
		return nil, notFoundOr("category", id, "load category", err)
	}
	return c, nil
}

func (s *categoryServiceImpl) List(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error) {
	if categoryType != "" && !categoryType.Valid() {
		return nil, &ValidationError{Field: "category_type", Message: fmt.Sprintf("%q is not a valid category type", categoryType)}
	}
	categories, err := model.ListCategories(ctx, s.ledger.db, categoryType)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	return categories, nil
}

var _ CategoryStore = (*categoryServiceImpl)(nil)
