package model

import "time"

// Song represents an audio track in the catalog.
type Song struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	// AlbumID 为空表示单曲；专辑删除后该字段被置空（见 AlbumRepository.DeleteAlbum）
	AlbumID  *string `json:"albumId"`
	Duration float64 `json:"durationSeconds"` // Duration in seconds
	AudioURL string  `json:"audioUrl"`
	ImageURL string  `json:"imageUrl"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
