package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/shoplens/searchcore/internal/core/domain"
)

func TestSearchMapsRowsToSparseCandidates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"product_id", "chunk_id", "chunk_text", "category", "brand", "price", "source", "language", "score",
	}).
		AddRow("p1", "c0", "wireless earbuds with mic", "audio", "acme", 49.99, "catalog", "en", 0.62).
		AddRow("p2", "c1", "earbuds case", "audio", "", 12.0, "catalog", "en", 0.31)

	mock.ExpectQuery("SELECT product_id, chunk_id, chunk_text").
		WithArgs("earbuds", 10).
		WillReturnRows(rows)

	store := NewStore(db)
	candidates, err := store.Search(context.Background(), "earbuds", domain.FilterPredicate{}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	first := candidates[0]
	if first.Channel != domain.ChannelSparse {
		t.Fatalf("expected sparse channel tag, got %s", first.Channel)
	}
	if first.ProductID != "p1" || first.Score != 0.62 || first.Metadata.Price != 49.99 {
		t.Fatalf("unexpected candidate %+v", first)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchAppendsFilterConstraints(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("AND category = \\$2 AND price <= \\$3").
		WithArgs("earbuds", "audio", 50.0, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"product_id", "chunk_id", "chunk_text", "category", "brand", "price", "source", "language", "score",
		}))

	maxPrice := 50.0
	store := NewStore(db)
	_, err = store.Search(context.Background(), "earbuds", domain.FilterPredicate{
		Category: "audio",
		PriceMax: &maxPrice,
	}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchPropagatesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT product_id").WillReturnError(context.DeadlineExceeded)

	store := NewStore(db)
	if _, err := store.Search(context.Background(), "earbuds", domain.FilterPredicate{}, 10); err == nil {
		t.Fatalf("expected error from query failure")
	}
}
