package reco

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/models"
)

const (
	defaultTake = 8
	maxTake     = 24

	// defaultWindowDays bounds how far back behavioral events count.
	defaultWindowDays = 30
)

// Service answers recommendation queries from the append-only event log.
// Purchases weigh twice what cart adds do; ties break toward the product
// with the most recent event.
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewService(db *sql.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func clampTake(take int) int {
	if take < 1 {
		return defaultTake
	}
	if take > maxTake {
		return maxTake
	}
	return take
}

func clampWindow(days int) int {
	if days < 1 {
		return defaultWindowDays
	}
	return days
}

const cardColumns = "p.id, p.name, p.slug, p.price, p.image_url, p.stock, c.name"

func scanCards(rows *sql.Rows) ([]models.ProductCard, error) {
	cards := []models.ProductCard{}
	for rows.Next() {
		var card models.ProductCard
		if err := rows.Scan(&card.ID, &card.Name, &card.Slug, &card.Price, &card.ImageURL, &card.Stock, &card.Category); err != nil {
			return nil, fmt.Errorf("failed to scan product card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product cards: %w", err)
	}
	return cards, nil
}

// Popular returns the highest scored available products over the trailing
// window. A thin event log yields a short result; nothing is padded in.
func (s *Service) Popular(ctx context.Context, take, windowDays int) ([]models.ProductCard, error) {
	take = clampTake(take)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM product_events e
		JOIN products p ON p.id = e.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE e.created_at > NOW() - make_interval(days => $1)
		  AND p.is_active AND NOT p.is_deleted
		GROUP BY p.id, p.name, p.slug, p.price, p.image_url, p.stock, c.name
		ORDER BY SUM(CASE WHEN e.event_type = 'purchase' THEN 2 ELSE 1 END) DESC,
		         MAX(e.created_at) DESC
		LIMIT $2`, cardColumns),
		clampWindow(windowDays), take,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular products: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// PopularInCategory scores within one category, same weights as Popular.
func (s *Service) PopularInCategory(ctx context.Context, categoryID, take int) ([]models.ProductCard, error) {
	take = clampTake(take)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM product_events e
		JOIN products p ON p.id = e.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE e.created_at > NOW() - make_interval(days => $1)
		  AND p.category_id = $2
		  AND p.is_active AND NOT p.is_deleted
		GROUP BY p.id, p.name, p.slug, p.price, p.image_url, p.stock, c.name
		ORDER BY SUM(CASE WHEN e.event_type = 'purchase' THEN 2 ELSE 1 END) DESC,
		         MAX(e.created_at) DESC
		LIMIT $3`, cardColumns),
		defaultWindowDays, categoryID, take,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular products in category: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// AlsoBought finds the purchaser identities of the given product and ranks the
// other products those identities purchased. Rank order survives the
// availability filter: unavailable products drop out, the rest keep their
// position.
func (s *Service) AlsoBought(ctx context.Context, productID, take int) ([]models.ProductCard, error) {
	take = clampTake(take)

	// Rank twice as many candidates as requested: the availability filter
	// below may drop some, and truncation to take happens after it.
	//
	// user_id is nullable for guest purchases, so the identity match uses
	// IS NOT DISTINCT FROM rather than tuple equality.
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.product_id
		FROM product_events e
		WHERE e.event_type = 'purchase'
		  AND e.product_id <> $1
		  AND EXISTS (
			SELECT 1 FROM product_events seed
			WHERE seed.product_id = $1
			  AND seed.event_type = 'purchase'
			  AND seed.user_id IS NOT DISTINCT FROM e.user_id
			  AND seed.session_id = e.session_id
		  )
		GROUP BY e.product_id
		ORDER BY COUNT(*) DESC, MAX(e.created_at) DESC
		LIMIT $2`,
		productID, take*2,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rank co-purchased products: %w", err)
	}
	defer rows.Close()

	var ranked []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan co-purchased id: %w", err)
		}
		ranked = append(ranked, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate co-purchased ids: %w", err)
	}
	if len(ranked) == 0 {
		return []models.ProductCard{}, nil
	}

	cardRows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = ANY($1) AND p.is_active AND NOT p.is_deleted`, cardColumns),
		pq.Array(ranked),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch co-purchased products: %w", err)
	}
	defer cardRows.Close()

	fetched, err := scanCards(cardRows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]models.ProductCard, len(fetched))
	for _, card := range fetched {
		byID[card.ID] = card
	}

	ordered := []models.ProductCard{}
	for _, id := range ranked {
		card, ok := byID[int(id)]
		if !ok {
			continue
		}
		ordered = append(ordered, card)
		if len(ordered) == take {
			break
		}
	}
	return ordered, nil
}
