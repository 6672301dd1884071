package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Melodex/model"
)

// SongRepository defines the interface for song data operations.
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) error
	GetSongByID(ctx context.Context, id string) (*model.Song, error)
	GetAllSongs(ctx context.Context) ([]*model.Song, error)
	GetRandomSongs(ctx context.Context, limit int) ([]*model.Song, error)
	DeleteSong(ctx context.Context, id string) error
	CountSongs(ctx context.Context) (int64, error)
	CountDistinctArtists(ctx context.Context) (int64, error)
}

// mysqlSongRepository implements SongRepository for MySQL.
type mysqlSongRepository struct {
	db *sql.DB
}

// NewMySQLSongRepository creates a new mysqlSongRepository.
func NewMySQLSongRepository(db *sql.DB) SongRepository {
	return &mysqlSongRepository{db: db}
}

const songColumns = `id, title, artist, album_id, duration, audio_url, image_url, created_at, updated_at`

func scanSong(scanner interface{ Scan(...any) error }) (*model.Song, error) {
	song := &model.Song{}
	var albumID sql.NullString
	err := scanner.Scan(&song.ID, &song.Title, &song.Artist, &albumID, &song.Duration,
		&song.AudioURL, &song.ImageURL, &song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if albumID.Valid {
		song.AlbumID = &albumID.String
	}
	return song, nil
}

// CreateSong adds a new song to the database.
func (r *mysqlSongRepository) CreateSong(ctx context.Context, song *model.Song) error {
	query := `INSERT INTO songs (id, title, artist, album_id, duration, audio_url, image_url, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var albumID sql.NullString
	if song.AlbumID != nil {
		albumID = sql.NullString{String: *song.AlbumID, Valid: true}
	}

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query, song.ID, song.Title, song.Artist, albumID,
		song.Duration, song.AudioURL, song.ImageURL, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute CreateSong: %w", err)
	}
	return nil
}

// GetSongByID retrieves a song by its ID.
func (r *mysqlSongRepository) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ?`
	song, err := scanSong(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Song not found
		}
		return nil, fmt.Errorf("failed to scan song by ID %s: %w", id, err)
	}
	return song, nil
}

// GetAllSongs retrieves all songs, newest first.
func (r *mysqlSongRepository) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	return collectSongs(rows)
}

// GetRandomSongs retrieves a random sample of songs.
// 对应 made-for-you / trending / featured 三类推荐列表
func (r *mysqlSongRepository) GetRandomSongs(ctx context.Context, limit int) ([]*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs ORDER BY RAND() LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query random songs: %w", err)
	}
	defer rows.Close()

	return collectSongs(rows)
}

// DeleteSong removes a song by its ID.
func (r *mysqlSongRepository) DeleteSong(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteSong for ID %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for DeleteSong: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountSongs counts all songs.
func (r *mysqlSongRepository) CountSongs(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return count, nil
}

// CountDistinctArtists counts the number of distinct song artists.
func (r *mysqlSongRepository) CountDistinctArtists(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT artist) FROM songs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count distinct artists: %w", err)
	}
	return count, nil
}

func collectSongs(rows *sql.Rows) ([]*model.Song, error) {
	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song row: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during song rows iteration: %w", err)
	}
	return songs, nil
}
