package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingerb7/findly-sub001/internal/model"
)

func newTestRanker() *Ranker {
	return NewRanker(0.5, 0.3, 0.2)
}

func fptr(v float64) *float64 { return &v }

func sptr(s string) *string { return &s }

func tptr(t time.Time) *time.Time { return &t }

func TestRankResultsOrdersByScore(t *testing.T) {
	ranker := newTestRanker()

	products := []model.Product{
		{ProductID: 1, Price: fptr(50), TextRank: fptr(0.2)},
		{ProductID: 2, Price: fptr(50), TextRank: fptr(0.9)},
		{ProductID: 3, Price: fptr(50), TextRank: fptr(0.5)},
	}

	results := ranker.RankResults(products, nil)
	require.Len(t, results, 3)

	assert.Equal(t, int64(2), results[0].ProductID)
	assert.Equal(t, int64(3), results[1].ProductID)
	assert.Equal(t, int64(1), results[2].ProductID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestCalculatePriceScore(t *testing.T) {
	ranker := newTestRanker()

	tests := []struct {
		name    string
		price   *float64
		filters *model.SearchFilters
		want    float64
	}{
		{
			name:    "no price is neutral",
			price:   nil,
			filters: &model.SearchFilters{PriceMax: fptr(100)},
			want:    0.5,
		},
		{
			name:    "no filter is full score",
			price:   fptr(80),
			filters: nil,
			want:    1.0,
		},
		{
			name:    "midpoint of range scores highest",
			price:   fptr(150),
			filters: &model.SearchFilters{PriceMin: fptr(100), PriceMax: fptr(200)},
			want:    1.0,
		},
		{
			name:    "range edge scores zero",
			price:   fptr(100),
			filters: &model.SearchFilters{PriceMin: fptr(100), PriceMax: fptr(200)},
			want:    0.0,
		},
		{
			name:    "outside range scores zero",
			price:   fptr(250),
			filters: &model.SearchFilters{PriceMin: fptr(100), PriceMax: fptr(200)},
			want:    0.0,
		},
		{
			name:    "degenerate range",
			price:   fptr(100),
			filters: &model.SearchFilters{PriceMin: fptr(100), PriceMax: fptr(100)},
			want:    1.0,
		},
		{
			name:    "below ceiling scales toward max",
			price:   fptr(80),
			filters: &model.SearchFilters{PriceMax: fptr(100)},
			want:    0.8,
		},
		{
			name:    "above ceiling scores zero",
			price:   fptr(120),
			filters: &model.SearchFilters{PriceMax: fptr(100)},
			want:    0.0,
		},
		{
			name:    "above floor is full score",
			price:   fptr(300),
			filters: &model.SearchFilters{PriceMin: fptr(200)},
			want:    1.0,
		},
		{
			name:    "below floor scores zero",
			price:   fptr(150),
			filters: &model.SearchFilters{PriceMin: fptr(200)},
			want:    0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ranker.calculatePriceScore(tt.price, tt.filters)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCalculateRecencyScore(t *testing.T) {
	ranker := newTestRanker()

	assert.InDelta(t, 0.5, ranker.calculateRecencyScore(nil), 1e-9)

	now := time.Now()
	assert.InDelta(t, 1.0, ranker.calculateRecencyScore(&now), 0.01)

	monthAgo := now.AddDate(0, 0, -30)
	assert.InDelta(t, 0.74, ranker.calculateRecencyScore(&monthAgo), 0.01)

	quarterAgo := now.AddDate(0, 0, -90)
	assert.InDelta(t, 0.41, ranker.calculateRecencyScore(&quarterAgo), 0.01)

	assert.Greater(t,
		ranker.calculateRecencyScore(&monthAgo),
		ranker.calculateRecencyScore(&quarterAgo))
}

func TestMatchedReasons(t *testing.T) {
	ranker := newTestRanker()
	recent := time.Now().AddDate(0, 0, -3)

	product := model.Product{
		ProductID:      7,
		ProductType:    sptr("Winterjassen"),
		Vendor:         sptr("Findly Basics"),
		Tags:           model.JSONArray{"winterjas", "warm"},
		Price:          fptr(150),
		CompareAtPrice: fptr(200),
		PublishedAt:    tptr(recent),
		TextRank:       fptr(0.6),
	}
	filters := &model.SearchFilters{
		ProductType: sptr("jassen"),
		Vendor:      sptr("findly"),
		Tags:        []string{"jas"},
		PriceMin:    fptr(100),
		PriceMax:    fptr(200),
	}

	results := ranker.RankResults([]model.Product{product}, filters)
	require.Len(t, results, 1)

	reasons := results[0].MatchedReasons
	assert.Contains(t, reasons, ReasonTypeMatch)
	assert.Contains(t, reasons, ReasonVendorMatch)
	assert.Contains(t, reasons, ReasonTagMatch)
	assert.Contains(t, reasons, ReasonPriceMatch)
	assert.Contains(t, reasons, ReasonContentRelevant)
	assert.Contains(t, reasons, ReasonNewArrival)
	assert.Contains(t, reasons, ReasonOnSale)
}

func TestMatchedReasonsFallsBackToGeneral(t *testing.T) {
	ranker := newTestRanker()

	product := model.Product{ProductID: 8, Price: fptr(40)}
	results := ranker.RankResults([]model.Product{product}, nil)
	require.Len(t, results, 1)

	assert.Equal(t, []string{ReasonGeneralMatch}, results[0].MatchedReasons)
}

func TestMatchedReasonsPriceOnlyWithActiveFilter(t *testing.T) {
	ranker := newTestRanker()

	// Full price score without a filter must not claim a price match
	product := model.Product{ProductID: 9, Price: fptr(40)}
	results := ranker.RankResults([]model.Product{product}, &model.SearchFilters{})
	require.Len(t, results, 1)
	assert.NotContains(t, results[0].MatchedReasons, ReasonPriceMatch)
}
