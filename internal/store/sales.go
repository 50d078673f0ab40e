package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const saleColumns = `id, auction_id, species, level, shiny, gender, nature,
	iv_hp, iv_atk, iv_def, iv_spatk, iv_spdef, iv_speed, iv_total,
	winning_bid, winner_id, seller, timestamp, title, raw, created_at`

// UpsertSales writes a batch of sale records in one transaction.
// Records are keyed by auction_id: an existing row with the same id is
// overwritten with the latest parse. An error means the whole batch was
// rolled back; previously committed batches are unaffected.
func (s *SQLiteStore) UpsertSales(ctx context.Context, sales []*SaleRecord) error {
	if len(sales) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO auctions (
			auction_id, species, level, shiny, gender, nature,
			iv_hp, iv_atk, iv_def, iv_spatk, iv_spdef, iv_speed, iv_total,
			winning_bid, winner_id, seller, timestamp, title, raw
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(auction_id) DO UPDATE SET
			species     = excluded.species,
			level       = excluded.level,
			shiny       = excluded.shiny,
			gender      = excluded.gender,
			nature      = excluded.nature,
			iv_hp       = excluded.iv_hp,
			iv_atk      = excluded.iv_atk,
			iv_def      = excluded.iv_def,
			iv_spatk    = excluded.iv_spatk,
			iv_spdef    = excluded.iv_spdef,
			iv_speed    = excluded.iv_speed,
			iv_total    = excluded.iv_total,
			winning_bid = excluded.winning_bid,
			winner_id   = excluded.winner_id,
			seller      = excluded.seller,
			timestamp   = excluded.timestamp,
			title       = excluded.title,
			raw         = excluded.raw`,
	)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range sales {
		if rec.AuctionID == "" {
			return fmt.Errorf("sale record missing auction id (title %q)", rec.Title)
		}
		_, err := stmt.ExecContext(ctx,
			rec.AuctionID, rec.Species, nullInt(rec.Level), boolToInt(rec.Shiny),
			nullStr(rec.Gender), nullStr(rec.Nature),
			nullInt(rec.IVHP), nullInt(rec.IVAtk), nullInt(rec.IVDef),
			nullInt(rec.IVSpAtk), nullInt(rec.IVSpDef), nullInt(rec.IVSpeed),
			nullFloat(rec.IVTotal),
			nullInt64(rec.WinningBid), nullStr(rec.WinnerID), nullStr(rec.Seller),
			nullStr(rec.Timestamp), rec.Title, nullStr(rec.Raw),
		)
		if err != nil {
			return fmt.Errorf("upserting auction %s: %w", rec.AuctionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// QuerySales returns the sales matching f in the requested order.
// limit <= 0 means no limit.
func (s *SQLiteStore) QuerySales(ctx context.Context, f Filter, order Order, limit int) ([]*SaleRecord, error) {
	where, args := buildWhere(f)

	query := "SELECT " + saleColumns + " FROM auctions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	switch order {
	case OrderPriceDesc:
		query += " ORDER BY winning_bid DESC"
	default:
		// Some embeds carry no timestamp; insertion order breaks ties
		// and stands in for the missing value.
		query += " ORDER BY timestamp ASC, id ASC"
	}

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sales: %w", err)
	}
	defer rows.Close()

	var sales []*SaleRecord
	for rows.Next() {
		rec, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, rec)
	}
	return sales, rows.Err()
}

// CountSales returns the total number of stored sale records.
func (s *SQLiteStore) CountSales(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM auctions").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sales: %w", err)
	}
	return n, nil
}

// Stats returns aggregate counters for the stats command and the debug
// endpoint.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(winning_bid),
		        COALESCE(SUM(shiny), 0),
		        COUNT(DISTINCT LOWER(TRIM(species)))
		 FROM auctions`,
	).Scan(&st.TotalSales, &st.WithWinningBid, &st.ShinySales, &st.DistinctSpecies)
	if err != nil {
		return nil, fmt.Errorf("collecting stats: %w", err)
	}
	return st, nil
}

func buildWhere(f Filter) ([]string, []interface{}) {
	var where []string
	var args []interface{}

	if f.Species != "" {
		where = append(where, "species LIKE ? COLLATE NOCASE")
		args = append(args, "%"+strings.TrimSpace(f.Species)+"%")
	}
	if f.Shiny != nil {
		where = append(where, "shiny = ?")
		args = append(args, boolToInt(*f.Shiny))
	}
	if f.Gender != "" {
		where = append(where, "LOWER(TRIM(gender)) = LOWER(TRIM(?))")
		args = append(args, f.Gender)
	}
	if f.Nature != "" {
		where = append(where, "LOWER(TRIM(nature)) = LOWER(TRIM(?))")
		args = append(args, f.Nature)
	}
	if f.MinIVTotal != nil {
		where = append(where, "iv_total >= ?")
		args = append(args, *f.MinIVTotal)
	}

	for _, iv := range []struct {
		col string
		min *int
	}{
		{"iv_hp", f.MinIVHP},
		{"iv_atk", f.MinIVAtk},
		{"iv_def", f.MinIVDef},
		{"iv_spatk", f.MinIVSpAtk},
		{"iv_spdef", f.MinIVSpDef},
		{"iv_speed", f.MinIVSpeed},
	} {
		if iv.min != nil {
			where = append(where, iv.col+" >= ?")
			args = append(args, *iv.min)
		}
	}

	if f.MinLevel != nil {
		where = append(where, "level >= ?")
		args = append(args, *f.MinLevel)
	}
	if f.MaxLevel != nil {
		where = append(where, "level <= ?")
		args = append(args, *f.MaxLevel)
	}
	if f.RequireBid {
		where = append(where, "winning_bid IS NOT NULL", "winning_bid > 0")
	}

	return where, args
}

func scanSale(rows *sql.Rows) (*SaleRecord, error) {
	rec := &SaleRecord{}
	var (
		level, ivHP, ivAtk, ivDef, ivSpAtk, ivSpDef, ivSpeed sql.NullInt64
		ivTotal                                              sql.NullFloat64
		winningBid                                           sql.NullInt64
		gender, nature, winnerID, seller, timestamp, raw     sql.NullString
		shiny                                                int
	)

	err := rows.Scan(&rec.ID, &rec.AuctionID, &rec.Species, &level, &shiny,
		&gender, &nature, &ivHP, &ivAtk, &ivDef, &ivSpAtk, &ivSpDef, &ivSpeed,
		&ivTotal, &winningBid, &winnerID, &seller, &timestamp, &rec.Title,
		&raw, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning sale row: %w", err)
	}

	rec.Shiny = shiny != 0
	rec.Level = intPtr(level)
	rec.IVHP = intPtr(ivHP)
	rec.IVAtk = intPtr(ivAtk)
	rec.IVDef = intPtr(ivDef)
	rec.IVSpAtk = intPtr(ivSpAtk)
	rec.IVSpDef = intPtr(ivSpDef)
	rec.IVSpeed = intPtr(ivSpeed)
	if ivTotal.Valid {
		v := ivTotal.Float64
		rec.IVTotal = &v
	}
	if winningBid.Valid {
		v := winningBid.Int64
		rec.WinningBid = &v
	}
	rec.Gender = gender.String
	rec.Nature = nature.String
	rec.WinnerID = winnerID.String
	rec.Seller = seller.String
	rec.Timestamp = timestamp.String
	rec.Raw = raw.String
	return rec, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
