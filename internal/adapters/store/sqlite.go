// Package store archives extracted records in SQLite. It doubles as a
// pipeline sink, so every tweet a scan produces is queryable afterwards.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"tweetlens/internal/domain"
)

//go:embed schema.sql
var schema string

// Store is a SQLite-backed archive of tweets and threads.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// OnTweetExtracted upserts a tweet keyed by its derived identity, so a
// rescan of the same page refreshes the row instead of duplicating it.
func (s *Store) OnTweetExtracted(ctx context.Context, rec *domain.TweetRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode tweet %s: %w", rec.ID, err)
	}

	inThread := 0
	if rec.Thread.IsPartOfThread {
		inThread = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tweets (id, id_tier, author_handle, author_name, text, posted_at, source_url, in_thread, payload, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			id_tier = excluded.id_tier,
			text = excluded.text,
			in_thread = excluded.in_thread,
			payload = excluded.payload,
			captured_at = excluded.captured_at`,
		rec.ID, rec.IDTier.String(), rec.Author.Handle, rec.Author.Name,
		rec.Text, rec.Timestamp, rec.SourceURL, inThread,
		string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save tweet %s: %w", rec.ID, err)
	}
	return nil
}

// OnThreadExtracted stores a reconstructed thread keyed by its first
// tweet, replacing any earlier, shorter reconstruction.
func (s *Store) OnThreadExtracted(ctx context.Context, rec *domain.ThreadRecord) error {
	if len(rec.Tweets) == 0 {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode thread: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (id, first_tweet, author_handle, size, payload, captured_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(first_tweet) DO UPDATE SET
			size = excluded.size,
			payload = excluded.payload,
			captured_at = excluded.captured_at`,
		uuid.NewString(), rec.Tweets[0].ID, rec.Author(),
		len(rec.Tweets), string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save thread %s: %w", rec.Tweets[0].ID, err)
	}
	return nil
}

// GetTweet returns an archived tweet by identity.
func (s *Store) GetTweet(ctx context.Context, id string) (*domain.TweetRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM tweets WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTweetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load tweet %s: %w", id, err)
	}
	return decodeTweet(payload)
}

// RecentTweets returns the most recently captured tweets, newest first.
func (s *Store) RecentTweets(ctx context.Context, limit int) ([]*domain.TweetRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM tweets ORDER BY captured_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tweets: %w", err)
	}
	defer rows.Close()

	var out []*domain.TweetRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan tweet row: %w", err)
		}
		rec, err := decodeTweet(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetThread returns the archived thread that starts at the given tweet.
func (s *Store) GetThread(ctx context.Context, firstTweetID string) (*domain.ThreadRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM threads WHERE first_tweet = ?`, firstTweetID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTweetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load thread %s: %w", firstTweetID, err)
	}
	var rec domain.ThreadRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", firstTweetID, err)
	}
	return &rec, nil
}

func decodeTweet(payload string) (*domain.TweetRecord, error) {
	var rec domain.TweetRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode tweet: %w", err)
	}
	return &rec, nil
}
