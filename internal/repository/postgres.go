package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wingerb7/findly-sub001/internal/model"
	"github.com/wingerb7/findly-sub001/internal/price"
	"github.com/wingerb7/findly-sub001/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const productColumns = `
	id, product_id, title, description, product_type, vendor, price,
	compare_at_price, tags, attributes, image_url, url, in_stock,
	stock_quantity, published_at, created_at, updated_at`

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
	db.SetConnMaxIdleTime(2 * time.Minute) // Close idle connections sooner

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryWithDB wraps an existing connection, used by tests.
func NewPostgresRepositoryWithDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping verifies the database connection, used by health checks.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// buildFilterClauses translates structured filters into WHERE clauses
// with positional parameters. Returns the clauses, arguments and the
// next free parameter index.
func buildFilterClauses(filters *model.SearchFilters) ([]string, []interface{}, int) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if filters == nil {
		return whereClauses, args, argIndex
	}

	if filters.PriceMin != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filters.PriceMin)
		argIndex++
	}
	if filters.PriceMax != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filters.PriceMax)
		argIndex++
	}
	if filters.ProductType != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("product_type ILIKE $%d", argIndex))
		args = append(args, "%"+*filters.ProductType+"%")
		argIndex++
	}
	if filters.Vendor != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("vendor ILIKE $%d", argIndex))
		args = append(args, "%"+*filters.Vendor+"%")
		argIndex++
	}
	if filters.InStock != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("in_stock = $%d", argIndex))
		args = append(args, *filters.InStock)
		argIndex++
	}
	if filters.OnSale != nil {
		if *filters.OnSale {
			whereClauses = append(whereClauses, "compare_at_price IS NOT NULL AND compare_at_price > price")
		} else {
			whereClauses = append(whereClauses, "(compare_at_price IS NULL OR compare_at_price <= price)")
		}
	}
	// JSONB tag filtering with alias expansion
	if len(filters.Tags) > 0 {
		tagConds, tagParams, newIndex := utils.BuildTagConditions(filters.Tags, argIndex)
		whereClauses = append(whereClauses, tagConds...)
		args = append(args, tagParams...)
		argIndex = newIndex
	}

	return whereClauses, args, argIndex
}

// SearchWithFilters performs a filtered full-text search. The search
// text is the cleaned query; an empty text degrades to a filter-only
// scan ordered by recency.
func (r *PostgresRepository) SearchWithFilters(
	ctx context.Context,
	searchText string,
	filters *model.SearchFilters,
	limit, offset int,
) ([]model.Product, int, error) {
	whereClauses, args, argIndex := buildFilterClauses(filters)

	rankExpr := "0.0"
	if searchText != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("search_vector @@ websearch_to_tsquery('dutch', $%d)", argIndex))
		rankExpr = fmt.Sprintf("ts_rank(search_vector, websearch_to_tsquery('dutch', $%d))", argIndex)
		args = append(args, searchText)
		argIndex++
	}

	whereClause := strings.Join(whereClauses, " AND ")

	// Count total matching records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s,
			%s AS text_rank
		FROM products
		WHERE %s
		ORDER BY text_rank DESC, published_at DESC NULLS LAST
		LIMIT $%d OFFSET $%d
	`, productColumns, rankExpr, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return products, total, nil
}

// VectorSearch performs semantic similarity search over product
// embeddings. The similarity score lands in text_rank so ranking treats
// both search modes uniformly.
func (r *PostgresRepository) VectorSearch(
	ctx context.Context,
	queryEmbedding []float32,
	filters *model.SearchFilters,
	limit int,
) ([]model.Product, error) {
	whereClauses, args, argIndex := buildFilterClauses(filters)
	whereClauses = append(whereClauses, "embedding IS NOT NULL")

	query := fmt.Sprintf(`
		SELECT %s,
			1 - (embedding <=> $%d) AS text_rank
		FROM products
		WHERE %s
		ORDER BY embedding <=> $%d
		LIMIT $%d
	`, productColumns, argIndex, strings.Join(whereClauses, " AND "), argIndex, argIndex+1)
	args = append(args, pgvector.NewVector(queryEmbedding), limit)

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	return products, nil
}

// CheapestAvailable returns the lowest-priced in-stock products matching
// the non-price filters, for the zero-result suggestion flow.
func (r *PostgresRepository) CheapestAvailable(ctx context.Context, filters *model.SearchFilters, limit int) ([]model.Product, error) {
	whereClauses, args, argIndex := buildFilterClauses(stripPriceBounds(filters))
	whereClauses = append(whereClauses, "in_stock = true", "price IS NOT NULL")

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE %s
		ORDER BY price ASC
		LIMIT $%d
	`, productColumns, strings.Join(whereClauses, " AND "), argIndex)
	args = append(args, limit)

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch alternatives: %w", err)
	}
	return products, nil
}

func stripPriceBounds(filters *model.SearchFilters) *model.SearchFilters {
	if filters == nil {
		return nil
	}
	stripped := *filters
	stripped.PriceMin = nil
	stripped.PriceMax = nil
	return &stripped
}

// GetProductByID retrieves a single product by its Shopify ID
func (r *PostgresRepository) GetProductByID(ctx context.Context, productID int64) (*model.Product, error) {
	var product model.Product
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE product_id = $1
	`, productColumns)
	err := r.db.GetContext(ctx, &product, query, productID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// PriceStatistics summarizes the catalog's price distribution. An empty
// catalog falls back to fixed defaults instead of zeroes.
func (r *PostgresRepository) PriceStatistics(ctx context.Context) (price.StoreStats, error) {
	var row struct {
		MinPrice float64 `db:"min_price"`
		MaxPrice float64 `db:"max_price"`
		P25      float64 `db:"p25"`
		Median   float64 `db:"median"`
		P75      float64 `db:"p75"`
		Count    int     `db:"n"`
	}
	query := `
		SELECT
			COALESCE(MIN(price), 0) AS min_price,
			COALESCE(MAX(price), 0) AS max_price,
			COALESCE(percentile_cont(0.25) WITHIN GROUP (ORDER BY price), 0) AS p25,
			COALESCE(percentile_cont(0.5) WITHIN GROUP (ORDER BY price), 0) AS median,
			COALESCE(percentile_cont(0.75) WITHIN GROUP (ORDER BY price), 0) AS p75,
			COUNT(price) AS n
		FROM products
		WHERE price IS NOT NULL AND in_stock = true
	`
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return price.DefaultStoreStats(), fmt.Errorf("failed to compute price statistics: %w", err)
	}
	if row.Count == 0 {
		return price.DefaultStoreStats(), nil
	}
	return price.StoreStats{
		MinPrice:     row.MinPrice,
		MaxPrice:     row.MaxPrice,
		MedianPrice:  row.Median,
		BudgetPrice:  row.P25 * 1.5,
		PremiumPrice: row.P75 * 1.2,
	}, nil
}

// BatchUpdateEmbeddings updates embeddings for multiple products
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errors []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errors
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE products SET embedding = $1, updated_at = NOW() WHERE product_id = $2`)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errors
	}
	defer stmt.Close()

	for _, item := range items {
		vec := pgvector.NewVector(item.Embedding)
		_, err := stmt.ExecContext(ctx, vec, item.ProductID)
		if err != nil {
			errors = append(errors, fmt.Sprintf("product_id %d: %v", item.ProductID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errors = append(errors, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errors
	}

	return success, errors
}

// LogSearch records a search for analytics
func (r *PostgresRepository) LogSearch(
	ctx context.Context,
	searchID, query, cleanedQuery string,
	intent *model.PriceIntentResult,
	resultCount int,
	productIDs []int64,
	responseTimeMs int,
) error {
	var intentJSON []byte
	if intent != nil {
		b, err := json.Marshal(intent)
		if err != nil {
			return fmt.Errorf("failed to encode intent: %w", err)
		}
		intentJSON = b
	}

	logQuery := `
		INSERT INTO search_logs (search_id, query, cleaned_query, price_intent, result_count, returned_product_ids, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, logQuery, searchID, query, cleanedQuery, intentJSON, resultCount, pq.Array(productIDs), responseTimeMs)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}

// LogFeedback attaches a user action to an earlier search
func (r *PostgresRepository) LogFeedback(ctx context.Context, searchID string, productID int64, action string) error {
	query := `
		UPDATE search_logs
		SET clicked_product_id = $2, action = $3
		WHERE search_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, searchID, productID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	return nil
}
