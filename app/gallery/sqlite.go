package gallery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

// SQLite keeps the gallery in a sqlite database. Only generated mockups are stored, never the edit history.
type SQLite struct {
	db *sqlx.DB
}

type mockupRow struct {
	ID          string `db:"id"`
	SessionID   string `db:"session_id"`
	BatchID     string `db:"batch_id"`
	Variation   int    `db:"variation"`
	MimeType    string `db:"mime_type"`
	Image       []byte `db:"image"`
	CreatedAt   int64  `db:"created_at"`
	PublishedAt int64  `db:"published_at"`
	Product     string `db:"product"`
	Size        string `db:"size"`
	Background  string `db:"background"`
	Finish      string `db:"finish"`
	Material    string `db:"material"`
	BodyColor   string `db:"body_color"`
	CapColor    string `db:"cap_color"`
	Prompt      string `db:"prompt"`
}

// NewSQLite opens (and creates if needed) the gallery database
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initialize(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS mockups (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			batch_id TEXT NOT NULL,
			variation INTEGER NOT NULL DEFAULT 0,
			mime_type TEXT NOT NULL,
			image BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			published_at INTEGER NOT NULL,
			product TEXT,
			size TEXT,
			background TEXT,
			finish TEXT,
			material TEXT,
			body_color TEXT,
			cap_color TEXT,
			prompt TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mockups_session ON mockups(session_id, published_at)`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Publish stores the whole batch in a single transaction
func (s *SQLite) Publish(ctx context.Context, sessionID string, mockups []Mockup) error {
	if err := checkBatch(sessionID, mockups); err != nil {
		return fmt.Errorf("can't publish: %w", err)
	}
	if len(mockups) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	publishedAt := time.Now().UnixNano()
	for _, m := range mockups {
		row := toRow(sessionID, m)
		row.PublishedAt = publishedAt
		_, err := tx.NamedExecContext(ctx, `INSERT INTO mockups
			(id, session_id, batch_id, variation, mime_type, image, created_at, published_at,
			 product, size, background, finish, material, body_color, cap_color, prompt)
			VALUES (:id, :session_id, :batch_id, :variation, :mime_type, :image, :created_at, :published_at,
			 :product, :size, :background, :finish, :material, :body_color, :cap_color, :prompt)`, row)
		if err != nil {
			return fmt.Errorf("failed to save mockup %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Printf("[DEBUG] published %d mockups for session %s", len(mockups), sessionID)
	return nil
}

// List returns session mockups, newest batch first, without image data
func (s *SQLite) List(ctx context.Context, sessionID string) ([]Mockup, error) {
	rows := []mockupRow{}
	err := s.db.SelectContext(ctx, &rows, `SELECT id, session_id, batch_id, variation, mime_type, created_at,
		published_at, product, size, background, finish, material, body_color, cap_color, prompt
		FROM mockups WHERE session_id = ? ORDER BY published_at DESC, variation ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mockups: %w", err)
	}
	res := make([]Mockup, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.toMockup())
	}
	return res, nil
}

// Get returns mockup with its image
func (s *SQLite) Get(ctx context.Context, sessionID, id string) (Mockup, error) {
	row := mockupRow{}
	err := s.db.GetContext(ctx, &row, `SELECT * FROM mockups WHERE session_id = ? AND id = ?`, sessionID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Mockup{}, fmt.Errorf("mockup %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Mockup{}, fmt.Errorf("failed to get mockup %s: %w", id, err)
	}
	return row.toMockup(), nil
}

// Clear removes all session mockups and returns how many were removed
func (s *SQLite) Clear(ctx context.Context, sessionID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mockups WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear gallery: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

func toRow(sessionID string, m Mockup) mockupRow {
	return mockupRow{
		ID:         m.ID,
		SessionID:  sessionID,
		BatchID:    m.BatchID,
		Variation:  m.Variation,
		MimeType:   m.MimeType,
		Image:      m.Image,
		CreatedAt:  m.CreatedAt.UnixNano(),
		Product:    m.Config.Product,
		Size:       m.Config.Size,
		Background: m.Config.Background,
		Finish:     m.Config.Finish,
		Material:   m.Config.Material,
		BodyColor:  m.Config.BodyColor,
		CapColor:   m.Config.CapColor,
		Prompt:     m.Config.Prompt,
	}
}

func (r mockupRow) toMockup() Mockup {
	return Mockup{
		ID:          r.ID,
		BatchID:     r.BatchID,
		Variation:   r.Variation,
		MimeType:    r.MimeType,
		Image:       r.Image,
		CreatedAt:   time.Unix(0, r.CreatedAt),
		PublishedAt: time.Unix(0, r.PublishedAt),
		Config: Config{
			Product:    r.Product,
			Size:       r.Size,
			Background: r.Background,
			Finish:     r.Finish,
			Material:   r.Material,
			BodyColor:  r.BodyColor,
			CapColor:   r.CapColor,
			Prompt:     r.Prompt,
		},
	}
}
