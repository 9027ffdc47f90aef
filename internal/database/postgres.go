package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"real-estate-matching/internal/models"

	"github.com/lib/pq"
)

// PostgresStore is the Postgres backend on database/sql
type PostgresStore struct {
	conn *sql.DB
}

func NewPostgresStore(host, port, user, password, dbname string) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return NewPostgresStoreFromDB(conn), nil
}

// NewPostgresStoreFromDB wraps an open connection pool
func NewPostgresStoreFromDB(conn *sql.DB) *PostgresStore {
	return &PostgresStore{conn: conn}
}

func (s *PostgresStore) Close() error {
	return s.conn.Close()
}

// InitSchema creates the tables if they don't exist
func (s *PostgresStore) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS listings (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		transaction_type VARCHAR(10) NOT NULL,
		property_type VARCHAR(20) NOT NULL,
		price BIGINT NOT NULL,
		location JSONB,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS requests (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		transaction_type VARCHAR(10) NOT NULL,
		property_type VARCHAR(20) NOT NULL,
		budget_min BIGINT NOT NULL,
		budget_max BIGINT NOT NULL,
		location JSONB,
		search_radius DOUBLE PRECISION NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS request_matches (
		request_id VARCHAR(64) NOT NULL,
		listing_id VARCHAR(64) NOT NULL,
		matched_at TIMESTAMPTZ NOT NULL,
		distance DOUBLE PRECISION NOT NULL,
		score INTEGER NOT NULL,
		PRIMARY KEY (request_id, listing_id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(128) PRIMARY KEY,
		first_name VARCHAR(100),
		last_active TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS push_tokens (
		user_id VARCHAR(128) NOT NULL,
		token VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, token)
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id CHAR(36) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		title TEXT NOT NULL,
		body TEXT,
		data JSONB,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id VARCHAR(64) PRIMARY KEY,
		participants TEXT[] NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS analytics (
		id VARCHAR(32) PRIMARY KEY,
		date DATE NOT NULL,
		new_users BIGINT NOT NULL,
		new_listings BIGINT NOT NULL,
		new_requests BIGINT NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL
	);

	-- Indexes for the candidate queries and the maintenance jobs
	CREATE INDEX IF NOT EXISTS idx_listings_match ON listings(status, transaction_type, property_type, price);
	CREATE INDEX IF NOT EXISTS idx_listings_stale ON listings(status, updated_at);
	CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at);
	CREATE INDEX IF NOT EXISTS idx_requests_match ON requests(active, transaction_type, property_type, budget_min);
	CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests(created_at);
	CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
	`
	_, err := s.conn.Exec(query)
	return err
}

const listingColumns = `id, user_id, transaction_type, property_type, price, location, status, created_at, updated_at`

func scanListings(rows *sql.Rows) ([]models.Listing, error) {
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		var location []byte
		err := rows.Scan(&l.ID, &l.UserID, &l.TransactionType, &l.PropertyType, &l.Price,
			&location, &l.Status, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if l.Location, err = decodeLocation(location); err != nil {
			return nil, fmt.Errorf("listing %s: %w", l.ID, err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func decodeLocation(raw []byte) (*models.GeoPoint, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var p models.GeoPoint
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	return &p, nil
}

const requestColumns = `id, user_id, transaction_type, property_type, budget_min, budget_max,
	location, search_radius, active, created_at`

func scanRequests(rows *sql.Rows) ([]models.Request, error) {
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		var r models.Request
		var location []byte
		err := rows.Scan(&r.ID, &r.UserID, &r.TransactionType, &r.PropertyType, &r.BudgetMin, &r.BudgetMax,
			&location, &r.SearchRadius, &r.Active, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		if r.Location, err = decodeLocation(location); err != nil {
			return nil, fmt.Errorf("request %s: %w", r.ID, err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *PostgresStore) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	listings, err := scanListings(rows)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, ErrNotFound
	}
	return &listings[0], nil
}

// GetListings loads the stored listings among ids. Unknown ids are left out.
func (s *PostgresStore) GetListings(ctx context.Context, ids []string) ([]models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.conn.QueryContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return scanListings(rows)
}

func (s *PostgresStore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	requests, err := scanRequests(rows)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, ErrNotFound
	}
	return &requests[0], nil
}

func (s *PostgresStore) FindMatchingRequests(ctx context.Context, listing *models.Listing) ([]models.Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM requests
		WHERE active = TRUE
		  AND transaction_type = $1
		  AND property_type = $2
		  AND budget_min <= $3
		  AND budget_max >= $3
	`
	rows, err := s.conn.QueryContext(ctx, query, listing.TransactionType, listing.PropertyType, listing.Price)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (s *PostgresStore) FindMatchingListings(ctx context.Context, request *models.Request) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + `
		FROM listings
		WHERE status = $1
		  AND transaction_type = $2
		  AND property_type = $3
		  AND price BETWEEN $4 AND $5
	`
	rows, err := s.conn.QueryContext(ctx, query, models.ListingStatusActive,
		request.TransactionType, request.PropertyType, request.BudgetMin, request.BudgetMax)
	if err != nil {
		return nil, err
	}
	return scanListings(rows)
}

func (s *PostgresStore) ListActiveListings(ctx context.Context) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE status = $1 ORDER BY created_at DESC`
	rows, err := s.conn.QueryContext(ctx, query, models.ListingStatusActive)
	if err != nil {
		return nil, err
	}
	return scanListings(rows)
}

// SaveMatches upserts all matches in one transaction
func (s *PostgresStore) SaveMatches(ctx context.Context, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO request_matches (request_id, listing_id, matched_at, distance, score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (request_id, listing_id) DO UPDATE SET
			matched_at = EXCLUDED.matched_at,
			distance = EXCLUDED.distance,
			score = EXCLUDED.score
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range matches {
		matches[i].MatchedAt = now
		m := matches[i]
		if _, err := stmt.ExecContext(ctx, m.RequestID, m.ListingID, m.MatchedAt, m.Distance, m.Score); err != nil {
			return fmt.Errorf("upsert %s: %w", m.Key(), err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) ListMatches(ctx context.Context, requestID string) ([]models.Match, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT request_id, listing_id, matched_at, distance, score
		FROM request_matches
		WHERE request_id = $1
		ORDER BY score DESC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.RequestID, &m.ListingID, &m.MatchedAt, &m.Distance, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PostgresStore) ListPushTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT token FROM push_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// RemovePushTokens deletes exactly the given tokens of one user
func (s *PostgresStore) RemovePushTokens(ctx context.Context, userID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM push_tokens WHERE user_id = $1 AND token = ANY($2)`,
		userID, pq.Array(tokens))
	return err
}

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, body, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.UserID, n.Title, n.Body, string(data), n.Read, n.CreatedAt)
	return err
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	var firstName sql.NullString
	var lastActive sql.NullTime
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, first_name, last_active, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &firstName, &lastActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.FirstName = firstName.String
	if lastActive.Valid {
		u.LastActive = &lastActive.Time
	}
	return &u, nil
}

func (s *PostgresStore) TouchUserActivity(ctx context.Context, id string, at time.Time) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE users SET last_active = $1 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, participants, created_at FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, pq.Array(&c.Participants), &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) FindStaleListings(ctx context.Context, status models.ListingStatus, before time.Time) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE status = $1 AND updated_at < $2`
	rows, err := s.conn.QueryContext(ctx, query, status, before)
	if err != nil {
		return nil, err
	}
	return scanListings(rows)
}

// MarkListingsExpired flips status in one statement, leaving updated_at alone
func (s *PostgresStore) MarkListingsExpired(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE listings SET status = $1 WHERE id = ANY($2) AND status <> $1`,
		models.ListingStatusExpired, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStore) CountCreatedBetween(ctx context.Context, coll models.Collection, from, to time.Time) (int64, error) {
	table, err := tableFor(coll)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+pq.QuoteIdentifier(table)+` WHERE created_at >= $1 AND created_at < $2`,
		from, to,
	).Scan(&n)
	return n, err
}

// SaveDailyAnalytics upserts by record id
func (s *PostgresStore) SaveDailyAnalytics(ctx context.Context, a *models.DailyAnalytics) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO analytics (id, date, new_users, new_listings, new_requests, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			new_users = EXCLUDED.new_users,
			new_listings = EXCLUDED.new_listings,
			new_requests = EXCLUDED.new_requests,
			generated_at = EXCLUDED.generated_at
	`, a.ID, a.Date, a.NewUsers, a.NewListings, a.NewRequests, a.GeneratedAt)
	return err
}
