package store

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewStore(Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ip(v int) *int         { return &v }
func i64p(v int64) *int64   { return &v }
func fp(v float64) *float64 { return &v }
func bp(v bool) *bool       { return &v }

func sale(auctionID, species string, mut ...func(*SaleRecord)) *SaleRecord {
	rec := &SaleRecord{
		AuctionID: auctionID,
		Species:   species,
		Title:     "[SOLD] Auction #" + auctionID + " • " + species,
	}
	for _, m := range mut {
		m(rec)
	}
	return rec
}

func mustUpsert(t *testing.T, s *SQLiteStore, sales ...*SaleRecord) {
	t.Helper()
	if err := s.UpsertSales(context.Background(), sales); err != nil {
		t.Fatalf("UpsertSales() error: %v", err)
	}
}

func TestUpsertAndQueryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sale("101", "Pikachu", func(r *SaleRecord) {
		r.Level = ip(42)
		r.Shiny = true
		r.Gender = "Male"
		r.Nature = "Jolly"
		r.IVHP = ip(31)
		r.IVSpeed = ip(28)
		r.IVTotal = fp(91.23)
		r.WinningBid = i64p(12345)
		r.WinnerID = "123456789"
		r.Seller = "SellerOne"
		r.Timestamp = "2024-03-01T12:00:00Z"
		r.Raw = `{"title": "..."}`
	})
	mustUpsert(t, s, rec)

	got, err := s.QuerySales(ctx, Filter{}, OrderChronological, 0)
	if err != nil {
		t.Fatalf("QuerySales() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}

	r := got[0]
	if r.AuctionID != "101" || r.Species != "Pikachu" {
		t.Errorf("AuctionID/Species = %q/%q", r.AuctionID, r.Species)
	}
	if r.Level == nil || *r.Level != 42 {
		t.Errorf("Level = %v, want 42", r.Level)
	}
	if !r.Shiny {
		t.Error("Shiny = false, want true")
	}
	if r.IVTotal == nil || *r.IVTotal != 91.23 {
		t.Errorf("IVTotal = %v, want 91.23", r.IVTotal)
	}
	if r.WinningBid == nil || *r.WinningBid != 12345 {
		t.Errorf("WinningBid = %v, want 12345", r.WinningBid)
	}
	if r.IVAtk != nil {
		t.Errorf("IVAtk = %v, want nil", r.IVAtk)
	}
	if r.Gender != "Male" || r.Nature != "Jolly" {
		t.Errorf("Gender/Nature = %q/%q", r.Gender, r.Nature)
	}
	if r.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestUpsertOverwritesByAuctionID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s, sale("200", "Gible", func(r *SaleRecord) {
		r.WinningBid = i64p(100)
	}))
	mustUpsert(t, s, sale("200", "Gible", func(r *SaleRecord) {
		r.WinningBid = i64p(250)
		r.Shiny = true
	}))

	n, err := s.CountSales(ctx)
	if err != nil {
		t.Fatalf("CountSales() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("CountSales() = %d, want 1", n)
	}

	got, err := s.QuerySales(ctx, Filter{}, OrderChronological, 0)
	if err != nil {
		t.Fatalf("QuerySales() error: %v", err)
	}
	if got[0].WinningBid == nil || *got[0].WinningBid != 250 {
		t.Errorf("WinningBid = %v, want latest parse 250", got[0].WinningBid)
	}
	if !got[0].Shiny {
		t.Error("Shiny = false, want overwrite to true")
	}
}

func TestUpsertRejectsMissingAuctionID(t *testing.T) {
	s := newTestStore(t)

	err := s.UpsertSales(context.Background(), []*SaleRecord{{Species: "Eevee", Title: "t"}})
	if err == nil {
		t.Fatal("UpsertSales() = nil, want error for missing auction id")
	}
}

func TestUpsertEmptyBatch(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertSales(context.Background(), nil); err != nil {
		t.Fatalf("UpsertSales(nil) error: %v", err)
	}
}

func TestQueryFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s,
		sale("1", "Pikachu", func(r *SaleRecord) {
			r.Shiny = true
			r.Gender = "Male"
			r.IVTotal = fp(95)
			r.IVSpeed = ip(31)
			r.Level = ip(50)
			r.WinningBid = i64p(5000)
		}),
		sale("2", "Pikachu", func(r *SaleRecord) {
			r.Gender = "Female"
			r.IVTotal = fp(60)
			r.Level = ip(10)
			r.WinningBid = i64p(800)
		}),
		sale("3", "Raichu", func(r *SaleRecord) {
			r.Gender = "male"
			r.WinningBid = i64p(1200)
		}),
		sale("4", "Gible"),
	)

	cases := []struct {
		name string
		f    Filter
		want []string
	}{
		{"species substring", Filter{Species: "chu"}, []string{"1", "2", "3"}},
		{"species case-insensitive", Filter{Species: "pikachu"}, []string{"1", "2"}},
		{"shiny only", Filter{Shiny: bp(true)}, []string{"1"}},
		{"non-shiny", Filter{Species: "Pikachu", Shiny: bp(false)}, []string{"2"}},
		{"gender case-insensitive", Filter{Gender: "MALE"}, []string{"1", "3"}},
		{"min total iv", Filter{MinIVTotal: fp(90)}, []string{"1"}},
		{"min sub iv", Filter{MinIVSpeed: ip(30)}, []string{"1"}},
		{"level range", Filter{MinLevel: ip(5), MaxLevel: ip(20)}, []string{"2"}},
		{"require bid", Filter{RequireBid: true}, []string{"1", "2", "3"}},
		{"no match", Filter{Species: "Mewtwo"}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.QuerySales(ctx, tc.f, OrderChronological, 0)
			if err != nil {
				t.Fatalf("QuerySales() error: %v", err)
			}
			var ids []string
			for _, r := range got {
				ids = append(ids, r.AuctionID)
			}
			if len(ids) != len(tc.want) {
				t.Fatalf("got ids %v, want %v", ids, tc.want)
			}
			for i := range tc.want {
				if ids[i] != tc.want[i] {
					t.Errorf("got ids %v, want %v", ids, tc.want)
					break
				}
			}
		})
	}
}

func TestQueryOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s,
		sale("10", "Eevee", func(r *SaleRecord) {
			r.Timestamp = "2024-02-01T00:00:00Z"
			r.WinningBid = i64p(300)
		}),
		sale("11", "Eevee", func(r *SaleRecord) {
			r.Timestamp = "2024-01-01T00:00:00Z"
			r.WinningBid = i64p(900)
		}),
		sale("12", "Eevee", func(r *SaleRecord) {
			r.Timestamp = "2024-03-01T00:00:00Z"
			r.WinningBid = i64p(600)
		}),
	)

	chrono, err := s.QuerySales(ctx, Filter{}, OrderChronological, 0)
	if err != nil {
		t.Fatalf("QuerySales() error: %v", err)
	}
	if chrono[0].AuctionID != "11" || chrono[1].AuctionID != "10" || chrono[2].AuctionID != "12" {
		t.Errorf("chronological order: got %s,%s,%s", chrono[0].AuctionID, chrono[1].AuctionID, chrono[2].AuctionID)
	}

	byPrice, err := s.QuerySales(ctx, Filter{}, OrderPriceDesc, 0)
	if err != nil {
		t.Fatalf("QuerySales() error: %v", err)
	}
	if byPrice[0].AuctionID != "11" || byPrice[1].AuctionID != "12" || byPrice[2].AuctionID != "10" {
		t.Errorf("price order: got %s,%s,%s", byPrice[0].AuctionID, byPrice[1].AuctionID, byPrice[2].AuctionID)
	}
}

func TestQueryLimit(t *testing.T) {
	s := newTestStore(t)

	mustUpsert(t, s, sale("1", "A"), sale("2", "B"), sale("3", "C"))

	got, err := s.QuerySales(context.Background(), Filter{}, OrderChronological, 2)
	if err != nil {
		t.Fatalf("QuerySales() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	mustUpsert(t, s,
		sale("1", "Pikachu", func(r *SaleRecord) {
			r.Shiny = true
			r.WinningBid = i64p(100)
		}),
		sale("2", "pikachu"),
		sale("3", "Gible", func(r *SaleRecord) {
			r.WinningBid = i64p(50)
		}),
	)

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalSales != 3 {
		t.Errorf("TotalSales = %d, want 3", stats.TotalSales)
	}
	if stats.WithWinningBid != 2 {
		t.Errorf("WithWinningBid = %d, want 2", stats.WithWinningBid)
	}
	if stats.ShinySales != 1 {
		t.Errorf("ShinySales = %d, want 1", stats.ShinySales)
	}
	if stats.DistinctSpecies != 2 {
		t.Errorf("DistinctSpecies = %d, want 2 (case-folded)", stats.DistinctSpecies)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}
