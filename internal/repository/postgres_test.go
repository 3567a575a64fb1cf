package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingerb7/findly-sub001/internal/model"
)

func newMockRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgresRepositoryWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

func TestPriceStatistics(t *testing.T) {
	t.Run("computes budget and premium anchors", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		rows := sqlmock.NewRows([]string{"min_price", "max_price", "p25", "median", "p75", "n"}).
			AddRow(5.0, 300.0, 20.0, 45.0, 110.0, 420)
		mock.ExpectQuery("percentile_cont").WillReturnRows(rows)

		stats, err := repo.PriceStatistics(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 5.0, stats.MinPrice, 1e-9)
		assert.InDelta(t, 300.0, stats.MaxPrice, 1e-9)
		assert.InDelta(t, 45.0, stats.MedianPrice, 1e-9)
		assert.InDelta(t, 30.0, stats.BudgetPrice, 1e-9)
		assert.InDelta(t, 132.0, stats.PremiumPrice, 1e-9)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty catalog falls back to defaults", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		rows := sqlmock.NewRows([]string{"min_price", "max_price", "p25", "median", "p75", "n"}).
			AddRow(0.0, 0.0, 0.0, 0.0, 0.0, 0)
		mock.ExpectQuery("percentile_cont").WillReturnRows(rows)

		stats, err := repo.PriceStatistics(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 10.0, stats.MinPrice, 1e-9)
		assert.InDelta(t, 500.0, stats.MaxPrice, 1e-9)
		assert.InDelta(t, 50.0, stats.MedianPrice, 1e-9)
		assert.InDelta(t, 50.0, stats.BudgetPrice, 1e-9)
		assert.InDelta(t, 150.0, stats.PremiumPrice, 1e-9)
	})
}

func TestLogSearch(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("INSERT INTO search_logs").
		WithArgs("search-1", "goedkope jas", "jas", sqlmock.AnyArg(), 3, sqlmock.AnyArg(), 42).
		WillReturnResult(sqlmock.NewResult(1, 1))

	intent := &model.PriceIntentResult{MaxPrice: fptr(75), Confidence: 0.7}
	err := repo.LogSearch(context.Background(), "search-1", "goedkope jas", "jas", intent, 3, []int64{11, 12, 13}, 42)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogFeedback(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("UPDATE search_logs").
		WithArgs("search-1", int64(11), "click").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.LogFeedback(context.Background(), "search-1", 11, "click")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildFilterClauses(t *testing.T) {
	tests := []struct {
		name        string
		filters     *model.SearchFilters
		wantClauses []string
		wantArgs    []interface{}
		wantNext    int
	}{
		{
			name:        "nil filters",
			filters:     nil,
			wantClauses: []string{"1=1"},
			wantArgs:    []interface{}{},
			wantNext:    1,
		},
		{
			name:        "single price bound",
			filters:     &model.SearchFilters{PriceMax: fptr(75)},
			wantClauses: []string{"1=1", "price <= $1"},
			wantArgs:    []interface{}{75.0},
			wantNext:    2,
		},
		{
			name: "all scalar filters in declaration order",
			filters: &model.SearchFilters{
				PriceMin:    fptr(50),
				PriceMax:    fptr(150),
				ProductType: sptr("jas"),
				Vendor:      sptr("Findly"),
				InStock:     bptr(true),
				OnSale:      bptr(true),
			},
			wantClauses: []string{
				"1=1",
				"price >= $1",
				"price <= $2",
				"product_type ILIKE $3",
				"vendor ILIKE $4",
				"in_stock = $5",
				"compare_at_price IS NOT NULL AND compare_at_price > price",
			},
			wantArgs: []interface{}{50.0, 150.0, "%jas%", "%Findly%", true},
			wantNext: 6,
		},
		{
			name:    "on sale false emits the inverse clause without params",
			filters: &model.SearchFilters{OnSale: bptr(false)},
			wantClauses: []string{
				"1=1",
				"(compare_at_price IS NULL OR compare_at_price <= price)",
			},
			wantArgs: []interface{}{},
			wantNext: 1,
		},
		{
			name:    "unknown tag binds a single variant",
			filters: &model.SearchFilters{Tags: []string{"katoen"}},
			wantClauses: []string{
				"1=1",
				"EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) elem WHERE elem::text ILIKE $1)",
			},
			wantArgs: []interface{}{"%katoen%"},
			wantNext: 2,
		},
		{
			name: "alias tag expands after the price parameter",
			filters: &model.SearchFilters{
				PriceMax: fptr(100),
				Tags:     []string{"jacket"},
			},
			wantClauses: []string{
				"1=1",
				"price <= $1",
				"EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) elem WHERE " +
					"elem::text ILIKE $2 OR elem::text ILIKE $3 OR elem::text ILIKE $4 OR " +
					"elem::text ILIKE $5 OR elem::text ILIKE $6)",
			},
			wantArgs: []interface{}{100.0, "%jas%", "%jassen%", "%jacket%", "%coat%", "%winterjas%"},
			wantNext: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, args, next := buildFilterClauses(tt.filters)
			assert.Equal(t, tt.wantClauses, clauses)
			assert.Equal(t, tt.wantArgs, args)
			assert.Equal(t, tt.wantNext, next)
		})
	}
}

func TestBatchUpdateEmbeddings(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("UPDATE products SET embedding")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	items := []model.EmbeddingItem{
		{ProductID: 1, Embedding: []float32{0.1, 0.2}},
		{ProductID: 2, Embedding: []float32{0.3, 0.4}},
	}
	success, errs := repo.BatchUpdateEmbeddings(context.Background(), items)
	assert.Equal(t, 2, success)
	assert.Empty(t, errs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func fptr(v float64) *float64 {
	return &v
}

func sptr(v string) *string {
	return &v
}

func bptr(v bool) *bool {
	return &v
}
