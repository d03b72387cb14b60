package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fotobook/nft-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) NextAssetID(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.pool.QueryRow(ctx, `SELECT nextval('asset_id_seq')`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next asset id: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) CreateAsset(ctx context.Context, a *model.Asset) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO assets (id, owner, metadata_uri, is_public, minted_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Owner, a.MetadataURI, a.Public, a.MintedAt,
	)
	return err
}

func (s *PostgresStore) GetAsset(ctx context.Context, id uint64) (*model.Asset, error) {
	var a model.Asset
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner, metadata_uri, is_public, minted_at
		 FROM assets WHERE id = $1`, id).
		Scan(&a.ID, &a.Owner, &a.MetadataURI, &a.Public, &a.MintedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %d: %w", id, err)
	}
	return &a, nil
}

func (s *PostgresStore) UpdateAssetOwner(ctx context.Context, id uint64, owner string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE assets SET owner = $2 WHERE id = $1`, id, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UpdateAssetVisibility(ctx context.Context, id uint64, public bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE assets SET is_public = $2 WHERE id = $1`, id, public)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountAssetsByOwner(ctx context.Context, owner string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assets WHERE owner = $1`, owner).Scan(&count)
	return count, err
}

func (s *PostgresStore) InsertTransferRecord(ctx context.Context, r *model.TransferRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transfer_records (id, asset_id, from_account, to_account, reason, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.AssetID, r.From, r.To, r.Reason, r.Timestamp,
	)
	return err
}

func (s *PostgresStore) GetTransferRecords(ctx context.Context, assetID uint64) ([]model.TransferRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, asset_id, from_account, to_account, reason, timestamp
		 FROM transfer_records WHERE asset_id = $1 ORDER BY timestamp`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.TransferRecord
	for rows.Next() {
		var r model.TransferRecord
		if err := rows.Scan(&r.ID, &r.AssetID, &r.From, &r.To, &r.Reason, &r.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) UpsertAuction(ctx context.Context, a *model.Auction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO auctions (asset_id, seller, min_bid, current_bid, current_bidder, end_time, active)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5, $6, $7)
		 ON CONFLICT (asset_id) DO UPDATE
		 SET seller = $2, min_bid = $3::NUMERIC, current_bid = $4::NUMERIC,
		     current_bidder = $5, end_time = $6, active = $7`,
		a.AssetID, a.Seller, a.MinBid.String(), a.CurrentBid.String(),
		a.CurrentBidder, a.EndTime, a.Active,
	)
	return err
}

func (s *PostgresStore) GetAuction(ctx context.Context, assetID uint64) (*model.Auction, error) {
	var a model.Auction
	var minBid, currentBid string

	err := s.pool.QueryRow(ctx,
		`SELECT asset_id, seller, min_bid::TEXT, current_bid::TEXT,
		        current_bidder, end_time, active
		 FROM auctions WHERE asset_id = $1`, assetID).
		Scan(&a.AssetID, &a.Seller, &minBid, &currentBid,
			&a.CurrentBidder, &a.EndTime, &a.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("auction for asset %d: %w", assetID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get auction for asset %d: %w", assetID, err)
	}

	a.MinBid, _ = decimal.NewFromString(minBid)
	a.CurrentBid, _ = decimal.NewFromString(currentBid)

	return &a, nil
}

func (s *PostgresStore) UpsertListing(ctx context.Context, l *model.Listing) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO listings (asset_id, seller, price, currency, active, created_at)
		 VALUES ($1, $2, $3::NUMERIC, $4, $5, $6)
		 ON CONFLICT (asset_id) DO UPDATE
		 SET seller = $2, price = $3::NUMERIC, currency = $4, active = $5, created_at = $6`,
		l.AssetID, l.Seller, l.Price.String(), l.Currency, l.Active, l.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetListing(ctx context.Context, assetID uint64) (*model.Listing, error) {
	var l model.Listing
	var price string

	err := s.pool.QueryRow(ctx,
		`SELECT asset_id, seller, price::TEXT, currency, active, created_at
		 FROM listings WHERE asset_id = $1`, assetID).
		Scan(&l.AssetID, &l.Seller, &price, &l.Currency, &l.Active, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("listing for asset %d: %w", assetID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing for asset %d: %w", assetID, err)
	}

	l.Price, _ = decimal.NewFromString(price)

	return &l, nil
}

func (s *PostgresStore) SetCurrencyAllowed(ctx context.Context, currency string, allowed bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO allowed_currencies (currency, allowed)
		 VALUES ($1, $2)
		 ON CONFLICT (currency) DO UPDATE SET allowed = $2`,
		currency, allowed,
	)
	return err
}

func (s *PostgresStore) IsCurrencyAllowed(ctx context.Context, currency string) (bool, error) {
	var allowed bool
	err := s.pool.QueryRow(ctx,
		`SELECT allowed FROM allowed_currencies WHERE currency = $1`, currency).
		Scan(&allowed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (s *PostgresStore) UpsertStreak(ctx context.Context, st *model.Streak) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO streaks (account, count, last_activity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (account) DO UPDATE SET count = $2, last_activity = $3`,
		st.Account, st.Count, st.LastActivity,
	)
	return err
}

func (s *PostgresStore) GetStreak(ctx context.Context, account string) (*model.Streak, error) {
	var st model.Streak
	err := s.pool.QueryRow(ctx,
		`SELECT account, count, last_activity FROM streaks WHERE account = $1`, account).
		Scan(&st.Account, &st.Count, &st.LastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("streak for %s: %w", account, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get streak for %s: %w", account, err)
	}
	return &st, nil
}

func (s *PostgresStore) TopStreaks(ctx context.Context, n int) ([]model.Streak, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT account, count, last_activity
		 FROM streaks ORDER BY count DESC, account LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var streaks []model.Streak
	for rows.Next() {
		var st model.Streak
		if err := rows.Scan(&st.Account, &st.Count, &st.LastActivity); err != nil {
			return nil, err
		}
		streaks = append(streaks, st)
	}
	return streaks, rows.Err()
}
