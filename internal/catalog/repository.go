package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/pkg/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryRepository handles database operations for categories and the
// label columns that reference them.
type CategoryRepository interface {
	// Transaction runs fn against a repository bound to one transaction
	Transaction(ctx context.Context, fn func(repo CategoryRepository) error) error

	// GetByID retrieves a category by ID
	GetByID(ctx context.Context, id int64) (*domain.Category, error)

	// NameTaken reports whether another category of typ already uses name,
	// compared case-insensitively
	NameTaken(ctx context.Context, name, typ string, excludeID int64) (bool, error)

	// ResolveName returns the stored spelling of the typ category matching
	// name case-insensitively, or name itself when there is none
	ResolveName(ctx context.Context, name, typ string) (string, error)

	// Create inserts a new category
	Create(ctx context.Context, cat *domain.Category) error

	// Update saves an existing category
	Update(ctx context.Context, cat *domain.Category) error

	// Delete removes a category
	Delete(ctx context.Context, id int64) error

	// UpsertIncrement atomically creates (name, typ) with usage_count 1 or
	// increments the existing row
	UpsertIncrement(ctx context.Context, name, typ string) error

	// Decrement lowers usage_count of (name, typ) by one. It reports whether
	// a row matched.
	Decrement(ctx context.Context, name, typ string) (bool, error)

	// SetUsageCount overwrites the counter
	SetUsageCount(ctx context.Context, id int64, count int64) error

	// Relabel rewrites the category label of every row of the collection
	// owned by typ from one name to another
	Relabel(ctx context.Context, typ, from, to string) (int64, error)

	// CountProductsByCategory groups products by label, sentinel excluded
	CountProductsByCategory(ctx context.Context) (map[string]int64, error)

	// ListByType retrieves all categories of typ
	ListByType(ctx context.Context, typ string) ([]domain.Category, error)
}

// GormCategoryRepository is the GORM implementation of CategoryRepository
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GORM-based repository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) Transaction(ctx context.Context, fn func(repo CategoryRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormCategoryRepository{db: tx})
	})
}

func (r *GormCategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	var cat domain.Category
	if err := r.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormCategoryRepository) NameTaken(ctx context.Context, name, typ string, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("LOWER(name) = ? AND type = ?", strings.ToLower(strings.TrimSpace(name)), typ)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormCategoryRepository) ResolveName(ctx context.Context, name, typ string) (string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("LOWER(name) = ? AND type = ?", strings.ToLower(name), typ).
		Order("created_at ASC").
		Limit(1).
		Pluck("name", &names).Error
	if err != nil {
		return name, err
	}
	if len(names) == 0 {
		return name, nil
	}
	return names[0], nil
}

func (r *GormCategoryRepository) Create(ctx context.Context, cat *domain.Category) error {
	if cat.ID == 0 {
		cat.ID = common.UUIDint64()
	}
	return r.db.WithContext(ctx).Create(cat).Error
}

func (r *GormCategoryRepository) Update(ctx context.Context, cat *domain.Category) error {
	return r.db.WithContext(ctx).Save(cat).Error
}

func (r *GormCategoryRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.Category{}, id).Error
}

func (r *GormCategoryRepository) UpsertIncrement(ctx context.Context, name, typ string) error {
	now := time.Now()
	cat := domain.Category{
		ID:         common.UUIDint64(),
		Name:       name,
		Type:       typ,
		UsageCount: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}, {Name: "type"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"usage_count": gorm.Expr("site_category.usage_count + 1"),
				"updated_at":  now,
			}),
		}).
		Create(&cat).Error
}

func (r *GormCategoryRepository) Decrement(ctx context.Context, name, typ string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("name = ? AND type = ?", name, typ).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count - 1"),
			"updated_at":  time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *GormCategoryRepository) SetUsageCount(ctx context.Context, id int64, count int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count": count,
			"updated_at":  time.Now(),
		}).Error
}

func (r *GormCategoryRepository) Relabel(ctx context.Context, typ, from, to string) (int64, error) {
	model := labelModel(typ)
	if model == nil {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(model).
		Where("category = ?", from).
		Updates(map[string]interface{}{
			"category":   to,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *GormCategoryRepository) CountProductsByCategory(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Category string
		Total    int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Select("category, COUNT(*) AS total").
		Where("category <> ?", domain.SentinelCategory).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Category] = row.Total
	}
	return out, nil
}

func (r *GormCategoryRepository) ListByType(ctx context.Context, typ string) ([]domain.Category, error) {
	var cats []domain.Category
	err := r.db.WithContext(ctx).
		Where("type = ?", typ).
		Order("name ASC").
		Find(&cats).Error
	return cats, err
}

// labelModel maps a category namespace to the collection labelled by it
func labelModel(typ string) interface{} {
	switch typ {
	case domain.CategoryTypeProduct:
		return &domain.Product{}
	case domain.CategoryTypeGallery:
		return &domain.GalleryImage{}
	case domain.CategoryTypeService:
		return &domain.Service{}
	}
	return nil
}
