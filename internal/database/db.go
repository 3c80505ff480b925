package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jgoulah/powercompare/internal/logging"
	"github.com/jgoulah/powercompare/pkg/models"
	_ "modernc.org/sqlite"
)

var (
	// ErrNoActiveUser is returned when a Store has no user bound to it.
	// This is a programming error, not a retryable condition.
	ErrNoActiveUser = errors.New("no active user bound to store")

	// ErrMalformedBatch is returned when an ingested day does not carry
	// exactly 24 hourly values. Nothing is written.
	ErrMalformedBatch = errors.New("malformed usage batch")

	// ErrDuplicateRecord is returned when an ingested (date, hour) already
	// exists for the user. The whole ingest is rolled back.
	ErrDuplicateRecord = errors.New("duplicate usage record")
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	// weekday is derived from date at ingest time (Monday=0 .. Sunday=6)
	// and kept only so aggregation queries can group without date math.
	schema := `
	CREATE TABLE IF NOT EXISTS user_data (
		user_id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS usage_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date INTEGER NOT NULL,
		weekday INTEGER NOT NULL,
		hour INTEGER NOT NULL,
		value REAL NOT NULL,
		published INTEGER DEFAULT 0,
		UNIQUE(user_id, date, hour),
		FOREIGN KEY (user_id) REFERENCES user_data (user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_usage_user_date ON usage_data(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_usage_published ON usage_data(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// ForUser returns a Store bound to the given user, creating the user row on
// first use.
func (db *DB) ForUser(username string) (*Store, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	if _, err := db.conn.Exec(
		`INSERT OR IGNORE INTO user_data (username) VALUES (?)`, username,
	); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	var userID int64
	err := db.conn.QueryRow(
		`SELECT user_id FROM user_data WHERE username = ?`, username,
	).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	return &Store{db: db, userID: userID, username: username}, nil
}

// Store is a handle on one user's usage history. Construct it via
// DB.ForUser; a zero-value Store fails every operation with ErrNoActiveUser.
type Store struct {
	db       *DB
	userID   int64
	username string
}

// Username returns the user this store is bound to
func (s *Store) Username() string {
	return s.username
}

func (s *Store) active() error {
	if s == nil || s.db == nil || s.userID == 0 {
		return ErrNoActiveUser
	}
	return nil
}

// dateOrdinal converts a date to days since the Unix epoch, ignoring the
// time of day and location.
func dateOrdinal(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// ordinalDate is the inverse of dateOrdinal
func ordinalDate(ord int64) time.Time {
	return time.Unix(ord*86400, 0).UTC()
}

// LastRecordedDate returns the most recent date with any stored usage for
// the user. ok is false when the user has no records at all.
func (s *Store) LastRecordedDate() (date time.Time, ok bool, err error) {
	if err := s.active(); err != nil {
		return time.Time{}, false, err
	}

	var ord sql.NullInt64
	err = s.db.conn.QueryRow(
		`SELECT MAX(date) FROM usage_data WHERE user_id = ?`, s.userID,
	).Scan(&ord)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying last recorded date: %w", err)
	}
	if !ord.Valid {
		return time.Time{}, false, nil
	}

	return ordinalDate(ord.Int64), true, nil
}

// Ingest writes the given days of hourly usage in a single transaction.
// Every day must carry exactly 24 values or the call fails with
// ErrMalformedBatch before anything is written. A (date, hour) that already
// exists fails the whole call with ErrDuplicateRecord; readers never see a
// partial day.
func (s *Store) Ingest(days []models.DayUsage) error {
	if err := s.active(); err != nil {
		return err
	}

	for _, day := range days {
		if len(day.Values) != models.HoursPerDay {
			return fmt.Errorf("%w: %s has %d values, want %d",
				ErrMalformedBatch, day.Date.Format("2006-01-02"), len(day.Values), models.HoursPerDay)
		}
	}

	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO usage_data (user_id, date, weekday, hour, value) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, day := range days {
		ord := dateOrdinal(day.Date)
		weekday := models.WeekdayIndex(day.Date.Weekday())
		for hour, value := range day.Values {
			if _, err := stmt.Exec(s.userID, ord, weekday, hour, value); err != nil {
				if strings.Contains(err.Error(), "UNIQUE constraint failed") {
					return fmt.Errorf("%w: %s hour %d",
						ErrDuplicateRecord, day.Date.Format("2006-01-02"), hour)
				}
				return fmt.Errorf("inserting usage data: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ingest: %w", err)
	}

	logging.Logger.Debug("ingested usage",
		zap.String("user", s.username),
		zap.Int("days", len(days)))
	return nil
}

// AverageUsageGrid returns average kWh per (weekday, hour) bucket over
// records with start < date < end. It returns (nil, nil) unless every one of
// the 168 buckets has at least one contributing record; a short history
// legitimately yields no grid, which is "insufficient data" rather than an
// error.
//
// Both bounds are exclusive, so the boundary dates themselves are dropped.
// That is at odds with the inclusive ranges retrieval uses; kept as-is for
// now pending a product decision, callers pre-adjust by a day when they need
// inclusive bounds.
func (s *Store) AverageUsageGrid(start, end time.Time) (*models.UsageGrid, error) {
	if err := s.active(); err != nil {
		return nil, err
	}

	rows, err := s.db.conn.Query(
		`SELECT AVG(value), weekday, hour
		FROM usage_data
		WHERE user_id = ? AND date > ? AND date < ?
		GROUP BY weekday, hour
		ORDER BY weekday ASC, hour ASC`,
		s.userID, dateOrdinal(start), dateOrdinal(end),
	)
	if err != nil {
		return nil, fmt.Errorf("querying average usage: %w", err)
	}
	defer rows.Close()

	var grid models.UsageGrid
	buckets := 0
	for rows.Next() {
		var avg float64
		var weekday, hour int
		if err := rows.Scan(&avg, &weekday, &hour); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if weekday < 0 || weekday > 6 || hour < 0 || hour >= models.HoursPerDay {
			return nil, fmt.Errorf("corrupt usage row: weekday %d hour %d", weekday, hour)
		}
		grid[weekday][hour] = avg
		buckets++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	if buckets != 7*models.HoursPerDay {
		return nil, nil
	}

	return &grid, nil
}

// AverageUsageByHour returns average kWh per hour of day over records with
// start < date < end, averaged across whatever weekdays are present. It
// returns (nil, nil) only when no records match at all; unlike
// AverageUsageGrid it does not require full weekday coverage.
func (s *Store) AverageUsageByHour(start, end time.Time) ([]float64, error) {
	if err := s.active(); err != nil {
		return nil, err
	}

	rows, err := s.db.conn.Query(
		`SELECT AVG(value), hour
		FROM usage_data
		WHERE user_id = ? AND date > ? AND date < ?
		GROUP BY hour
		ORDER BY hour ASC`,
		s.userID, dateOrdinal(start), dateOrdinal(end),
	)
	if err != nil {
		return nil, fmt.Errorf("querying hourly usage: %w", err)
	}
	defer rows.Close()

	values := make([]float64, models.HoursPerDay)
	matched := 0
	for rows.Next() {
		var avg float64
		var hour int
		if err := rows.Scan(&avg, &hour); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if hour < 0 || hour >= models.HoursPerDay {
			return nil, fmt.Errorf("corrupt usage row: hour %d", hour)
		}
		values[hour] = avg
		matched++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	if matched == 0 {
		return nil, nil
	}

	return values, nil
}

// RecordCount returns the number of stored hourly records for the user
func (s *Store) RecordCount() (int, error) {
	if err := s.active(); err != nil {
		return 0, err
	}

	var count int
	err := s.db.conn.QueryRow(
		`SELECT COUNT(*) FROM usage_data WHERE user_id = ?`, s.userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// DailyTotal is one day's summed usage
type DailyTotal struct {
	Date time.Time
	KWh  float64
}

// DailyTotals returns per-day usage sums, most recent first. A limit of 0
// returns every stored day.
func (s *Store) DailyTotals(limit int) ([]DailyTotal, error) {
	if err := s.active(); err != nil {
		return nil, err
	}

	query := `SELECT date, SUM(value)
	FROM usage_data
	WHERE user_id = ?
	GROUP BY date
	ORDER BY date DESC`
	args := []any{s.userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying daily totals: %w", err)
	}
	defer rows.Close()

	var results []DailyTotal
	for rows.Next() {
		var total DailyTotal
		var ord int64
		if err := rows.Scan(&ord, &total.KWh); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		total.Date = ordinalDate(ord)
		results = append(results, total)
	}

	return results, rows.Err()
}

// UnpublishedRecords retrieves the user's hourly records not yet exported,
// ordered by date then hour
func (s *Store) UnpublishedRecords() ([]models.UsageRecord, error) {
	if err := s.active(); err != nil {
		return nil, err
	}

	rows, err := s.db.conn.Query(
		`SELECT id, date, hour, value
		FROM usage_data
		WHERE user_id = ? AND published = 0
		ORDER BY date ASC, hour ASC`,
		s.userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unpublished usage: %w", err)
	}
	defer rows.Close()

	var results []models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		var ord int64
		if err := rows.Scan(&rec.ID, &ord, &rec.Hour, &rec.KWh); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec.Date = ordinalDate(ord)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// MarkPublished marks a usage record as exported
func (s *Store) MarkPublished(id int) error {
	if err := s.active(); err != nil {
		return err
	}

	_, err := s.db.conn.Exec(`UPDATE usage_data SET published = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking record as published: %w", err)
	}
	return nil
}
