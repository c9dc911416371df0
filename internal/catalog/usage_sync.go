// Package catalog keeps the denormalized Category.UsageCount consistent with
// the products that carry each category label.
//
// The counter is eventually consistent. Product writes adjust it with single
// atomic increments and decrements after the product write has succeeded, and
// a failed adjustment is logged, never returned. Reconcile recomputes every
// product category counter from the product table and is the repair path for
// drift.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("category not found")
	ErrDuplicate = errors.New("category name already exists")
	ErrInvalid   = errors.New("invalid category")
)

// CategoryUpdate holds the mutable category fields; nil means unchanged.
// The type namespace cannot be changed once created.
type CategoryUpdate struct {
	Name        *string
	Description *string
	Image       *string
}

// UpdateResult describes an applied category update
type UpdateResult struct {
	Category        *domain.Category
	PreviousName    string
	ProductsUpdated int64
}

// Renamed reports whether the update changed the category name
func (r *UpdateResult) Renamed() bool {
	return r.PreviousName != r.Category.Name
}

// DeleteResult describes a removed category
type DeleteResult struct {
	Name            string `json:"name"`
	ProductsUpdated int64  `json:"productsUpdated"`
}

// Correction is one counter fixed by Reconcile
type Correction struct {
	CategoryID int64  `json:"categoryId,string"`
	Name       string `json:"name"`
	From       int64  `json:"from"`
	To         int64  `json:"to"`
	Created    bool   `json:"created"`
}

// UsageSync maintains category usage counters and the category label fan-out
// on rename and delete.
type UsageSync struct {
	repo CategoryRepository
}

// NewUsageSync creates a synchronizer on top of repo
func NewUsageSync(repo CategoryRepository) *UsageSync {
	return &UsageSync{repo: repo}
}

// IsSentinel reports whether a product label is exempt from usage tracking.
// An empty label is stored as the sentinel.
func IsSentinel(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || category == domain.SentinelCategory
}

// CanonicalName maps a product label to the spelling it is stored under.
// Blank labels become the sentinel and a label matching an existing product
// category case-insensitively takes that category's name. Lookup failures
// are logged and the trimmed label is returned.
func (s *UsageSync) CanonicalName(ctx context.Context, category string) string {
	category = strings.TrimSpace(category)
	if IsSentinel(category) {
		return domain.SentinelCategory
	}
	name, err := s.repo.ResolveName(ctx, category, domain.CategoryTypeProduct)
	if err != nil {
		zap.L().Warn("category name lookup failed",
			zap.String("namespace", "catalog"),
			zap.String("category", category),
			zap.Error(err),
		)
		return category
	}
	return name
}

// ProductCreated upsert-increments the counter of the product's category.
func (s *UsageSync) ProductCreated(ctx context.Context, category string) {
	if IsSentinel(category) {
		return
	}
	category = s.CanonicalName(ctx, category)
	if err := s.repo.UpsertIncrement(ctx, category, domain.CategoryTypeProduct); err != nil {
		zap.L().Error("category usage increment failed",
			zap.String("namespace", "catalog"),
			zap.String("category", category),
			zap.Error(err),
		)
	}
}

// ProductRecategorized moves one unit of usage from oldCategory to
// newCategory. The two steps are not atomic together; a failure in either is
// logged and left for Reconcile.
func (s *UsageSync) ProductRecategorized(ctx context.Context, oldCategory, newCategory string) {
	if oldCategory == newCategory {
		return
	}
	if !IsSentinel(oldCategory) {
		s.decrement(ctx, oldCategory)
	}
	s.ProductCreated(ctx, newCategory)
}

// ProductDeleted decrements the counter of the deleted product's category.
func (s *UsageSync) ProductDeleted(ctx context.Context, category string) {
	if IsSentinel(category) {
		return
	}
	s.decrement(ctx, category)
}

func (s *UsageSync) decrement(ctx context.Context, category string) {
	matched, err := s.repo.Decrement(ctx, category, domain.CategoryTypeProduct)
	if err != nil {
		zap.L().Error("category usage decrement failed",
			zap.String("namespace", "catalog"),
			zap.String("category", category),
			zap.Error(err),
		)
		return
	}
	if !matched {
		zap.L().Debug("category usage decrement matched no category",
			zap.String("namespace", "catalog"),
			zap.String("category", category),
		)
	}
}

// CreateCategory inserts a new category with a zero usage count
func (s *UsageSync) CreateCategory(ctx context.Context, cat *domain.Category) error {
	cat.Name = strings.TrimSpace(cat.Name)
	if cat.Type == "" {
		cat.Type = domain.CategoryTypeProduct
	}
	if err := validateName(cat.Name); err != nil {
		return err
	}
	if !domain.IsValidCategoryType(cat.Type) {
		return errors.Wrapf(ErrInvalid, "unknown type %q", cat.Type)
	}
	taken, err := s.repo.NameTaken(ctx, cat.Name, cat.Type, 0)
	if err != nil {
		return errors.Wrap(err, "check category name")
	}
	if taken {
		return ErrDuplicate
	}
	cat.UsageCount = 0
	if err := s.repo.Create(ctx, cat); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "create category")
	}
	return nil
}

// UpdateCategory applies upd to category id. A name change relabels every
// row of the category's collection in the same transaction. The usage count
// is not touched by a rename.
func (s *UsageSync) UpdateCategory(ctx context.Context, id int64, upd CategoryUpdate) (*UpdateResult, error) {
	var result UpdateResult
	err := s.repo.Transaction(ctx, func(repo CategoryRepository) error {
		cat, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errors.Wrap(err, "load category")
		}

		oldName := cat.Name
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if err := validateName(name); err != nil {
				return err
			}
			if name != oldName {
				taken, err := repo.NameTaken(ctx, name, cat.Type, cat.ID)
				if err != nil {
					return errors.Wrap(err, "check category name")
				}
				if taken {
					return ErrDuplicate
				}
				cat.Name = name
			}
		}
		if upd.Description != nil {
			cat.Description = *upd.Description
		}
		if upd.Image != nil {
			cat.Image = *upd.Image
		}

		if err := repo.Update(ctx, cat); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return errors.Wrap(err, "update category")
		}
		if cat.Name != oldName {
			n, err := repo.Relabel(ctx, cat.Type, oldName, cat.Name)
			if err != nil {
				return errors.Wrap(err, "relabel category references")
			}
			result.ProductsUpdated = n
		}
		result.Category = cat
		result.PreviousName = oldName
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteCategory reassigns every referencing row to the sentinel category and
// then removes the category, in one transaction.
func (s *UsageSync) DeleteCategory(ctx context.Context, id int64) (*DeleteResult, error) {
	var result DeleteResult
	err := s.repo.Transaction(ctx, func(repo CategoryRepository) error {
		cat, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errors.Wrap(err, "load category")
		}
		n, err := repo.Relabel(ctx, cat.Type, cat.Name, domain.SentinelCategory)
		if err != nil {
			return errors.Wrap(err, "reassign category references")
		}
		if err := repo.Delete(ctx, cat.ID); err != nil {
			return errors.Wrap(err, "delete category")
		}
		result = DeleteResult{Name: cat.Name, ProductsUpdated: n}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Reconcile recomputes every product category counter from the product
// table. Categories referenced by products but missing a row are created.
// Corrections are returned ordered by name.
func (s *UsageSync) Reconcile(ctx context.Context) ([]Correction, error) {
	counts, err := s.repo.CountProductsByCategory(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "count products by category")
	}
	cats, err := s.repo.ListByType(ctx, domain.CategoryTypeProduct)
	if err != nil {
		return nil, errors.Wrap(err, "list product categories")
	}

	var fixes []Correction
	seen := make(map[string]struct{}, len(cats))
	for _, cat := range cats {
		seen[cat.Name] = struct{}{}
		want := counts[cat.Name]
		if cat.UsageCount == want {
			continue
		}
		if err := s.repo.SetUsageCount(ctx, cat.ID, want); err != nil {
			return fixes, errors.Wrapf(err, "set usage count of %s", cat.Name)
		}
		fixes = append(fixes, Correction{CategoryID: cat.ID, Name: cat.Name, From: cat.UsageCount, To: want})
	}

	for name, n := range counts {
		if _, ok := seen[name]; ok {
			continue
		}
		cat := &domain.Category{Name: name, Type: domain.CategoryTypeProduct, UsageCount: n}
		if err := s.repo.Create(ctx, cat); err != nil {
			return fixes, errors.Wrapf(err, "create category %s", name)
		}
		fixes = append(fixes, Correction{CategoryID: cat.ID, Name: name, From: 0, To: n, Created: true})
	}

	sort.Slice(fixes, func(i, j int) bool { return fixes[i].Name < fixes[j].Name })
	if len(fixes) > 0 {
		zap.L().Info("category usage reconciled",
			zap.String("namespace", "catalog"),
			zap.Int("corrections", len(fixes)),
		)
	}
	return fixes, nil
}

// ClampCount floors a usage count at zero for display
func ClampCount(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// ClampAll applies ClampCount to every category in place
func ClampAll(cats []domain.Category) {
	for i := range cats {
		cats[i].UsageCount = ClampCount(cats[i].UsageCount)
	}
}

func validateName(name string) error {
	if name == "" {
		return errors.Wrap(ErrInvalid, "name is required")
	}
	if len(name) > 100 {
		return errors.Wrap(ErrInvalid, "name is too long")
	}
	if name == domain.SentinelCategory {
		return errors.Wrapf(ErrInvalid, "%s is reserved", domain.SentinelCategory)
	}
	return nil
}
