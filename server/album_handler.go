package server

import (
	"errors"
	"net/http"
	"strconv"

	"Melodex/logger"
	"Melodex/model"
	"Melodex/repository"
	"Melodex/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// GetAlbumsHandler 获取所有专辑
func (h *APIHandler) GetAlbumsHandler(w http.ResponseWriter, r *http.Request) {
	albums, err := h.albumRepo.GetAllAlbums(r.Context())
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, albums)
}

// GetAlbumHandler 根据ID获取专辑及其歌曲
func (h *APIHandler) GetAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	album, err := h.albumRepo.GetAlbumByID(r.Context(), id)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	if album == nil {
		respondMessage(w, http.StatusNotFound, "Album not found")
		return
	}
	respondJSON(w, http.StatusOK, album)
}

// CreateAlbumHandler 管理端创建专辑
// multipart表单字段：title, artist, releaseYear, imageFile
func (h *APIHandler) CreateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondMessage(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	if title == "" || artist == "" {
		respondMessage(w, http.StatusBadRequest, "title and artist are required")
		return
	}
	releaseYear, _ := strconv.Atoi(r.FormValue("releaseYear"))

	imageFile, imageHeader, err := r.FormFile("imageFile")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Missing 'imageFile' in form")
		return
	}
	defer imageFile.Close()

	albumID := uuid.NewString()
	imageURL, err := h.stageAndUpload(r, albumID, imageFile, imageHeader, storage.UploadCover)
	if err != nil {
		h.respondServerError(w, err)
		return
	}

	album := &model.Album{
		ID:          albumID,
		Title:       title,
		Artist:      artist,
		ImageURL:    imageURL,
		ReleaseYear: releaseYear,
		TrackIDs:    []string{},
	}
	if err := h.albumRepo.CreateAlbum(r.Context(), album); err != nil {
		h.respondServerError(w, err)
		return
	}

	h.catalogCache.InvalidateCatalog(r.Context())
	logger.Info("[Albums] 专辑已创建",
		logger.String("albumId", album.ID),
		logger.String("title", album.Title))
	respondJSON(w, http.StatusCreated, album)
}

// DeleteAlbumHandler 管理端删除专辑
// 专辑下的歌曲不会被删除，其 album_id 由数据库置空（外键 ON DELETE SET NULL）
func (h *APIHandler) DeleteAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.albumRepo.DeleteAlbum(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "Album not found")
			return
		}
		h.respondServerError(w, err)
		return
	}

	h.catalogCache.InvalidateCatalog(r.Context())
	logger.Info("[Albums] 专辑已删除", logger.String("albumId", id))
	respondMessage(w, http.StatusOK, "Album deleted successfully")
}
