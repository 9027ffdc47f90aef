package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"real-estate-matching/internal/models"
)

// MemoryStore is an in-process Store. It backs local runs
// (database.driver: memory) and the package tests of its consumers.
type MemoryStore struct {
	mu sync.Mutex

	listings      map[string]models.Listing
	requests      map[string]models.Request
	matches       map[string]models.Match
	users         map[string]models.User
	tokens        map[string][]string
	conversations map[string]models.Conversation
	notifications []models.Notification
	analytics     map[string]models.DailyAnalytics

	err error
	now func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings:      map[string]models.Listing{},
		requests:      map[string]models.Request{},
		matches:       map[string]models.Match{},
		users:         map[string]models.User{},
		tokens:        map[string][]string{},
		conversations: map[string]models.Conversation{},
		analytics:     map[string]models.DailyAnalytics{},
		now:           time.Now,
	}
}

// WithError makes every subsequent call fail with err. Pass nil to reset.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithClock replaces the clock used for write timestamps
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

// PutListing inserts or replaces a listing
func (m *MemoryStore) PutListing(l models.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l
}

// PutRequest inserts or replaces a request
func (m *MemoryStore) PutRequest(r models.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
}

// PutUser inserts or replaces a user
func (m *MemoryStore) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// PutConversation inserts or replaces a conversation
func (m *MemoryStore) PutConversation(c models.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[c.ID] = c
}

// AddPushToken registers a device token for a user
func (m *MemoryStore) AddPushToken(userID, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens[userID] {
		if t == token {
			return
		}
	}
	m.tokens[userID] = append(m.tokens[userID], token)
}

// Listing returns a stored listing
func (m *MemoryStore) Listing(id string) (models.Listing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	return l, ok
}

// Notifications returns a copy of every stored notification
func (m *MemoryStore) Notifications() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Notification(nil), m.notifications...)
}

// DailyAnalytics returns a stored analytics record
func (m *MemoryStore) DailyAnalytics(id string) (models.DailyAnalytics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analytics[id]
	return a, ok
}

func (m *MemoryStore) GetListing(_ context.Context, id string) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	l, ok := m.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

// GetListings returns the stored listings among ids, in the order given.
// Unknown ids are left out.
func (m *MemoryStore) GetListings(_ context.Context, ids []string) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := m.listings[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetRequest(_ context.Context, id string) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) FindMatchingRequests(_ context.Context, listing *models.Listing) ([]models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	var out []models.Request
	for _, r := range m.requests {
		if r.Active &&
			r.TransactionType == listing.TransactionType &&
			r.PropertyType == listing.PropertyType &&
			r.Accepts(listing.Price) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) FindMatchingListings(_ context.Context, request *models.Request) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	var out []models.Listing
	for _, l := range m.listings {
		if l.IsActive() &&
			l.TransactionType == request.TransactionType &&
			l.PropertyType == request.PropertyType &&
			request.Accepts(l.Price) {
			out = append(out, l)
		}
	}
	sortListings(out)
	return out, nil
}

func (m *MemoryStore) ListActiveListings(_ context.Context) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	var out []models.Listing
	for _, l := range m.listings {
		if l.IsActive() {
			out = append(out, l)
		}
	}
	sortListings(out)
	return out, nil
}

// SaveMatches applies the whole batch under one lock
func (m *MemoryStore) SaveMatches(_ context.Context, matches []models.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	now := m.now()
	for _, match := range matches {
		match.MatchedAt = now
		m.matches[match.Key()] = match
	}
	return nil
}

func (m *MemoryStore) ListMatches(_ context.Context, requestID string) ([]models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	var out []models.Match
	for _, match := range m.matches {
		if match.RequestID == requestID {
			out = append(out, match)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListingID < out[j].ListingID })
	return out, nil
}

func (m *MemoryStore) ListPushTokens(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]string(nil), m.tokens[userID]...), nil
}

func (m *MemoryStore) RemovePushTokens(_ context.Context, userID string, tokens []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	drop := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		drop[t] = true
	}
	kept := m.tokens[userID][:0]
	for _, t := range m.tokens[userID] {
		if !drop[t] {
			kept = append(kept, t)
		}
	}
	m.tokens[userID] = kept
	return nil
}

func (m *MemoryStore) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = m.now()
	}
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) TouchUserActivity(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastActive = &at
	m.users[id] = u
	return nil
}

func (m *MemoryStore) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Participants = append([]string(nil), c.Participants...)
	return &c, nil
}

func (m *MemoryStore) FindStaleListings(_ context.Context, status models.ListingStatus, before time.Time) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	var out []models.Listing
	for _, l := range m.listings {
		if l.Status == status && l.UpdatedAt.Before(before) {
			out = append(out, l)
		}
	}
	sortListings(out)
	return out, nil
}

// MarkListingsExpired leaves UpdatedAt untouched, like the SQL backends
func (m *MemoryStore) MarkListingsExpired(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}

	var n int64
	for _, id := range ids {
		l, ok := m.listings[id]
		if !ok || l.Status == models.ListingStatusExpired {
			continue
		}
		l.Status = models.ListingStatusExpired
		m.listings[id] = l
		n++
	}
	return n, nil
}

// CountCreatedBetween counts records with from <= createdAt < to
func (m *MemoryStore) CountCreatedBetween(_ context.Context, coll models.Collection, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if _, err := tableFor(coll); err != nil {
		return 0, err
	}

	in := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }
	var n int64
	switch coll {
	case models.CollectionUsers:
		for _, u := range m.users {
			if in(u.CreatedAt) {
				n++
			}
		}
	case models.CollectionListings:
		for _, l := range m.listings {
			if in(l.CreatedAt) {
				n++
			}
		}
	case models.CollectionRequests:
		for _, r := range m.requests {
			if in(r.CreatedAt) {
				n++
			}
		}
	}
	return n, nil
}

func (m *MemoryStore) SaveDailyAnalytics(_ context.Context, a *models.DailyAnalytics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.analytics[a.ID] = *a
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func sortListings(ls []models.Listing) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].ID < ls[j].ID })
}
