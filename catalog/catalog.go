package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/circuitbreaker"
	"github.com/bladi23/ImportadoraSonib/models"
)

const (
	maxPageSize = 100
)

// Service answers catalog reads through the stamp-versioned cache. Writes that
// change catalog-visible data (stock decrements at capture) bump the stamp.
type Service struct {
	db      *sql.DB
	cache   *Cache
	stamp   *Stamp
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewService(db *sql.DB, cache *Cache, stamp *Stamp, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		cache:   cache,
		stamp:   stamp,
		breaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
		logger:  logger,
	}
}

// Stamp exposes the invalidation counter to the write paths.
func (s *Service) Stamp() *Stamp {
	return s.stamp
}

// ListProducts serves the catalog listing: optional category slug filter,
// optional search over name and tags, paginated.
func (s *Service) ListProducts(ctx context.Context, category string, page, pageSize int, search string) (*models.ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 24
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	key := fmt.Sprintf("products:%s:%d:%d:%s:%d", category, page, pageSize, search, s.stamp.Value())
	var cached models.ProductPage
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("Catalog cache read failed", zap.Error(err))
	}

	var result *models.ProductPage
	err := s.breaker.Execute(ctx, func() error {
		var err error
		result, err = s.queryProducts(ctx, category, page, pageSize, search)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, result)
	return result, nil
}

func (s *Service) queryProducts(ctx context.Context, category string, page, pageSize int, search string) (*models.ProductPage, error) {
	where := "WHERE NOT p.is_deleted"
	args := []any{}
	arg := 1

	if category != "" {
		where += fmt.Sprintf(" AND c.slug = $%d", arg)
		args = append(args, category)
		arg++
	}
	if search != "" {
		where += fmt.Sprintf(" AND (p.name ILIKE '%%' || $%d || '%%' OR p.tags ILIKE '%%' || $%d || '%%')", arg, arg)
		args = append(args, search)
		arg++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM products p LEFT JOIN categories c ON c.id = p.category_id " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	listQuery := fmt.Sprintf(
		`SELECT p.id, p.name, p.slug, p.price, p.image_url, p.stock, COALESCE(c.name, 'Otros')
		 FROM products p LEFT JOIN categories c ON c.id = p.category_id
		 %s
		 ORDER BY p.created_at DESC
		 LIMIT $%d OFFSET $%d`, where, arg, arg+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	items := []models.ProductCard{}
	for rows.Next() {
		var card models.ProductCard
		if err := rows.Scan(&card.ID, &card.Name, &card.Slug, &card.Price,
			&card.ImageURL, &card.Stock, &card.Category); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		items = append(items, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return &models.ProductPage{Total: total, Page: page, PageSize: pageSize, Items: items}, nil
}

// GetByID serves a single product through the cache.
func (s *Service) GetByID(ctx context.Context, id int) (*models.ProductDetail, error) {
	key := fmt.Sprintf("product:id:%d:%d", id, s.stamp.Value())
	return s.getDetail(ctx, key, "p.id = $1", id)
}

// GetBySlug serves a single product through the cache.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.ProductDetail, error) {
	key := fmt.Sprintf("product:slug:%s:%d", slug, s.stamp.Value())
	return s.getDetail(ctx, key, "p.slug = $1", slug)
}

func (s *Service) getDetail(ctx context.Context, key, predicate string, arg any) (*models.ProductDetail, error) {
	var cached models.ProductDetail
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("Catalog cache read failed", zap.Error(err))
	}

	var detail models.ProductDetail
	err := s.breaker.Execute(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT p.id, p.name, p.slug, p.description, p.price, p.image_url, p.stock,
			        p.category_id, COALESCE(c.name, 'Otros')
			 FROM products p LEFT JOIN categories c ON c.id = p.category_id
			 WHERE NOT p.is_deleted AND `+predicate,
			arg,
		).Scan(&detail.ID, &detail.Name, &detail.Slug, &detail.Description, &detail.Price,
			&detail.ImageURL, &detail.Stock, &detail.CategoryID, &detail.Category)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	s.cache.Set(ctx, key, &detail)
	return &detail, nil
}

// Exists reports whether a product row exists at all, deleted or not. Used by
// the public add-to-cart entry point.
func (s *Service) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return exists, nil
}
