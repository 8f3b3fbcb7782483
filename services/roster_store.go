package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// RosterStore persists registered holder endpoints. ListHolders returns
// endpoints in registration order: the roster is an ordered collection
// and the coordinator's peer lists derive from it.
type RosterStore interface {
	SaveHolder(endpoint string) error
	DeleteHolder(endpoint string) error
	ListHolders() ([]string, error)
	Close() error
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// PostgresStore implements RosterStore with PostgreSQL persistence, so a
// registry restart does not lose the roster.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects, pings and migrates the schema.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS registered_holders (
		endpoint VARCHAR(512) PRIMARY KEY,
		registered_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_holders_registered ON registered_holders(registered_at);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveHolder upserts a holder endpoint, keeping its original
// registration order on re-registration.
func (s *PostgresStore) SaveHolder(endpoint string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO registered_holders (endpoint)
	VALUES ($1)
	ON CONFLICT (endpoint) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query, endpoint)
	return err
}

// DeleteHolder removes a holder endpoint.
func (s *PostgresStore) DeleteHolder(endpoint string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "DELETE FROM registered_holders WHERE endpoint = $1", endpoint)
	return err
}

// ListHolders returns all holder endpoints in registration order.
func (s *PostgresStore) ListHolders() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT endpoint FROM registered_holders ORDER BY registered_at, endpoint
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holders []string
	for rows.Next() {
		var endpoint string
		if err := rows.Scan(&endpoint); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		holders = append(holders, endpoint)
	}

	return holders, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InMemoryStore implements RosterStore without persistence, for tests
// and single-process demos.
type InMemoryStore struct {
	mu       sync.Mutex
	order    []string
	presence map[string]struct{}
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{presence: make(map[string]struct{})}
}

// SaveHolder records an endpoint, preserving first-registration order.
func (s *InMemoryStore) SaveHolder(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.presence[endpoint]; exists {
		return nil
	}
	s.presence[endpoint] = struct{}{}
	s.order = append(s.order, endpoint)
	return nil
}

// DeleteHolder removes an endpoint.
func (s *InMemoryStore) DeleteHolder(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.presence[endpoint]; !exists {
		return nil
	}
	delete(s.presence, endpoint)
	for i, e := range s.order {
		if e == endpoint {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListHolders returns endpoints in registration order.
func (s *InMemoryStore) ListHolders() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}
