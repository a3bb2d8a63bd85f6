package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/blizzgame/marketplace/internal/commerce/domain"
	"github.com/blizzgame/marketplace/internal/commerce/shopify"
	"github.com/blizzgame/marketplace/internal/events"
	"github.com/blizzgame/marketplace/internal/observability/logger"
	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) UpsertProduct(ctx context.Context, product shopify.Product) (*domain.ProductResult, error) {
	if product.ID == "" {
		return nil, domain.ErrInvalidPayload
	}
	var (
		res       *domain.ProductResult
		variantID string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, variantID, err = s.upsertProduct(ctx, tx, product)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.rememberVariant(product.ID.String(), variantID)
	events.Emit(ctx, s.publisher, events.TypeCatalogProductUpserted, strconv.FormatInt(res.ProductID, 10), map[string]any{
		"product_id":        strconv.FormatInt(res.ProductID, 10),
		"remote_product_id": product.ID.String(),
		"created":           res.Created,
	})
	return res, nil
}

func (s *Service) DeactivateProduct(ctx context.Context, remoteProductID string) (bool, error) {
	var found bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		found, err = s.deactivate(ctx, tx, strings.TrimSpace(remoteProductID))
		return err
	})
	if err != nil {
		return false, err
	}
	if found {
		s.variants.Forget(remoteProductID)
		events.Emit(ctx, s.publisher, events.TypeCatalogProductDeactivated, remoteProductID, map[string]any{
			"remote_product_id": remoteProductID,
		})
	}
	return found, nil
}

// SyncCatalog imports up to limit remote products. One failing product does
// not stop the others.
func (s *Service) SyncCatalog(ctx context.Context, limit int) (*domain.SyncResult, error) {
	products, err := s.platform.ListProducts(ctx, limit)
	if err != nil {
		return nil, err
	}
	log := logger.WithContext(ctx, s.log)
	result := &domain.SyncResult{Fetched: len(products)}
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := s.UpsertProduct(ctx, p)
		if err != nil {
			result.Failed++
			log.Warn("catalog product import failed", zap.String("remote_product_id", p.ID.String()), zap.Error(err))
			continue
		}
		if res.Created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	log.Info("catalog synced",
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) upsertProduct(ctx context.Context, tx *gorm.DB, p shopify.Product) (*domain.ProductResult, string, error) {
	now := s.clock.Now()

	categoryName := strings.TrimSpace(p.ProductType)
	if categoryName == "" {
		categoryName = domain.DefaultCategory
	}
	category, err := s.shopRepo.FindOrCreateCategory(ctx, tx, &shopdomain.Category{
		ID:        s.genID.Generate().Int64(),
		Name:      categoryName,
		Slug:      slug.Make(categoryName),
		Active:    true,
		CreatedAt: now,
	})
	if err != nil {
		return nil, "", err
	}
	if category == nil {
		return nil, "", domain.ErrInvalidPayload
	}

	product, err := s.shopRepo.FindProductByRemoteID(ctx, tx, p.ID.String())
	if err != nil {
		return nil, "", err
	}
	created := product == nil
	if created {
		product = &shopdomain.Product{
			ID:              s.genID.Generate().Int64(),
			RemoteProductID: p.ID.String(),
			CreatedAt:       now,
		}
	}

	variantID := ""
	price := decimal.Zero
	if v, ok := p.FirstVariant(); ok {
		variantID = v.ID.String()
		if parsed, err := decimal.NewFromString(strings.TrimSpace(v.Price)); err == nil {
			price = parsed
		}
	}

	name := strings.TrimSpace(p.Title)
	if name == "" {
		name = domain.UntitledProduct
	}
	status := shopdomain.ProductInactive
	if strings.EqualFold(strings.TrimSpace(p.Status), "active") {
		status = shopdomain.ProductActive
	}

	productSlug, err := s.uniqueSlug(ctx, tx, productSlugBase(p), product.ID, p.ID.String())
	if err != nil {
		return nil, "", err
	}

	product.Name = name
	product.Slug = productSlug
	product.CategoryID = category.ID
	product.Description = p.BodyHTML
	product.Price = price
	product.Status = status
	product.RemoteHandle = strings.TrimSpace(p.Handle)
	if variantID != "" {
		product.RemoteVariantID = variantID
	}
	product.UpdatedAt = now

	if err := s.shopRepo.SaveProduct(ctx, tx, product); err != nil {
		return nil, "", err
	}
	return &domain.ProductResult{ProductID: product.ID, Slug: product.Slug, Created: created}, variantID, nil
}

func (s *Service) deactivate(ctx context.Context, tx *gorm.DB, remoteID string) (bool, error) {
	product, err := s.shopRepo.FindProductByRemoteID(ctx, tx, remoteID)
	if err != nil || product == nil {
		return false, err
	}
	if product.Status == shopdomain.ProductInactive {
		return true, nil
	}
	product.Status = shopdomain.ProductInactive
	product.UpdatedAt = s.clock.Now()
	return true, s.shopRepo.SaveProduct(ctx, tx, product)
}

func (s *Service) rememberVariant(remoteProductID, variantID string) {
	if variantID == "" {
		return
	}
	s.variants.SetVariant(remoteProductID, variantID)
}

// productSlugBase uses the handle, then the title, then the remote id.
func productSlugBase(p shopify.Product) string {
	if h := slug.Make(strings.TrimSpace(p.Handle)); h != "" {
		return h
	}
	if t := slug.Make(strings.TrimSpace(p.Title)); t != "" {
		return t
	}
	return "prod-" + p.ID.String()
}

// uniqueSlug suffixes the remote id when another product owns base.
func (s *Service) uniqueSlug(ctx context.Context, tx *gorm.DB, base string, productID int64, remoteID string) (string, error) {
	taken, err := s.shopRepo.SlugTaken(ctx, tx, base, productID)
	if err != nil || !taken {
		return base, err
	}
	return base + "-" + remoteID, nil
}
