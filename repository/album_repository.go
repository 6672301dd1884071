package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Melodex/model"
)

// AlbumRepository defines the interface for album data operations.
type AlbumRepository interface {
	CreateAlbum(ctx context.Context, album *model.Album) error
	GetAlbumByID(ctx context.Context, id string) (*model.AlbumWithSongs, error)
	GetAllAlbums(ctx context.Context) ([]*model.Album, error)
	DeleteAlbum(ctx context.Context, id string) error
	CountAlbums(ctx context.Context) (int64, error)
}

// mysqlAlbumRepository implements AlbumRepository for MySQL.
type mysqlAlbumRepository struct {
	db *sql.DB
}

// NewMySQLAlbumRepository creates a new mysqlAlbumRepository.
func NewMySQLAlbumRepository(db *sql.DB) AlbumRepository {
	return &mysqlAlbumRepository{db: db}
}

// CreateAlbum 创建专辑
func (r *mysqlAlbumRepository) CreateAlbum(ctx context.Context, album *model.Album) error {
	query := `INSERT INTO albums (id, title, artist, image_url, release_year, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query, album.ID, album.Title, album.Artist,
		album.ImageURL, album.ReleaseYear, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute CreateAlbum: %w", err)
	}
	return nil
}

// GetAlbumByID 根据ID获取专辑及其歌曲
func (r *mysqlAlbumRepository) GetAlbumByID(ctx context.Context, id string) (*model.AlbumWithSongs, error) {
	query := `SELECT id, title, artist, image_url, release_year, created_at, updated_at
	           FROM albums WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	result := &model.AlbumWithSongs{}
	err := row.Scan(&result.ID, &result.Title, &result.Artist, &result.ImageURL,
		&result.ReleaseYear, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Album not found
		}
		return nil, fmt.Errorf("failed to scan album by ID %s: %w", id, err)
	}

	songsQuery := `SELECT ` + songColumns + ` FROM songs WHERE album_id = ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, songsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs for album %s: %w", id, err)
	}
	defer rows.Close()

	songs, err := collectSongs(rows)
	if err != nil {
		return nil, err
	}
	result.Songs = songs
	for _, song := range songs {
		result.TrackIDs = append(result.TrackIDs, song.ID)
	}
	return result, nil
}

// GetAllAlbums 获取所有专辑（含歌曲ID列表）
func (r *mysqlAlbumRepository) GetAllAlbums(ctx context.Context) ([]*model.Album, error) {
	query := `SELECT id, title, artist, image_url, release_year, created_at, updated_at
	           FROM albums ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	albums := make([]*model.Album, 0)
	byID := make(map[string]*model.Album)
	for rows.Next() {
		album := &model.Album{}
		err := rows.Scan(&album.ID, &album.Title, &album.Artist, &album.ImageURL,
			&album.ReleaseYear, &album.CreatedAt, &album.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan album row: %w", err)
		}
		album.TrackIDs = make([]string, 0)
		albums = append(albums, album)
		byID[album.ID] = album
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during album rows iteration: %w", err)
	}

	// 一次查询填充所有专辑的歌曲ID
	idRows, err := r.db.QueryContext(ctx,
		`SELECT id, album_id FROM songs WHERE album_id IS NOT NULL ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query album track ids: %w", err)
	}
	defer idRows.Close()

	for idRows.Next() {
		var songID, albumID string
		if err := idRows.Scan(&songID, &albumID); err != nil {
			return nil, fmt.Errorf("failed to scan album track id row: %w", err)
		}
		if album, ok := byID[albumID]; ok {
			album.TrackIDs = append(album.TrackIDs, songID)
		}
	}
	if err := idRows.Err(); err != nil {
		return nil, fmt.Errorf("error during album track id iteration: %w", err)
	}

	return albums, nil
}

// DeleteAlbum 删除专辑
// 引用该专辑的歌曲不被级联删除，album_id 会被数据库置空（ON DELETE SET NULL）
func (r *mysqlAlbumRepository) DeleteAlbum(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteAlbum for ID %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for DeleteAlbum: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAlbums 统计专辑总数
func (r *mysqlAlbumRepository) CountAlbums(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM albums`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count albums: %w", err)
	}
	return count, nil
}
