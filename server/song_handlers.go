package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"Melodex/logger"
	"Melodex/model"
	"Melodex/repository"
	"Melodex/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// GetSongsHandler 获取全部歌曲（按创建时间倒序）
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songRepo.GetAllSongs(r.Context())
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, songs)
}

// GetSongHandler 根据ID获取单曲（播放页直达链接使用）
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	song, err := h.songRepo.GetSongByID(r.Context(), id)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	if song == nil {
		respondMessage(w, http.StatusNotFound, "Song not found")
		return
	}
	respondJSON(w, http.StatusOK, song)
}

// 推荐列表分类，同时作为缓存键
const (
	categoryMadeForYou = "made-for-you"
	categoryTrending   = "trending"
	categoryFeatured   = "featured"
)

// GetMadeForYouSongsHandler 个性推荐
func (h *APIHandler) GetMadeForYouSongsHandler(w http.ResponseWriter, r *http.Request) {
	h.serveSongCategory(w, r, categoryMadeForYou, h.cfg.MadeForYouN)
}

// GetTrendingSongsHandler 热门歌曲
func (h *APIHandler) GetTrendingSongsHandler(w http.ResponseWriter, r *http.Request) {
	h.serveSongCategory(w, r, categoryTrending, h.cfg.TrendingN)
}

// GetFeaturedSongsHandler 精选歌曲
func (h *APIHandler) GetFeaturedSongsHandler(w http.ResponseWriter, r *http.Request) {
	h.serveSongCategory(w, r, categoryFeatured, h.cfg.FeaturedN)
}

// serveSongCategory 推荐列表的统一出口：先查缓存，未命中再随机采样
func (h *APIHandler) serveSongCategory(w http.ResponseWriter, r *http.Request, category string, limit int) {
	if cached, err := h.catalogCache.GetSongList(r.Context(), category); err != nil {
		logger.Warn("[Songs] 读取歌曲列表缓存失败",
			logger.String("category", category),
			logger.ErrorField(err))
	} else if cached != nil {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	songs, err := h.songRepo.GetRandomSongs(r.Context(), limit)
	if err != nil {
		h.respondServerError(w, err)
		return
	}

	if err := h.catalogCache.SetSongList(r.Context(), category, songs); err != nil {
		logger.Warn("[Songs] 写入歌曲列表缓存失败",
			logger.String("category", category),
			logger.ErrorField(err))
	}
	respondJSON(w, http.StatusOK, songs)
}

// CreateSongHandler 管理端上传新歌曲
// multipart表单字段：title, artist, albumId(可选), duration, audioFile, imageFile
func (h *APIHandler) CreateSongHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		respondMessage(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	if title == "" || artist == "" {
		respondMessage(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)

	var albumID *string
	if v := r.FormValue("albumId"); v != "" {
		album, err := h.albumRepo.GetAlbumByID(r.Context(), v)
		if err != nil {
			h.respondServerError(w, err)
			return
		}
		if album == nil {
			respondMessage(w, http.StatusBadRequest, "Album not found")
			return
		}
		albumID = &v
	}

	audioFile, audioHeader, err := r.FormFile("audioFile")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Missing 'audioFile' in form")
		return
	}
	defer audioFile.Close()

	imageFile, imageHeader, err := r.FormFile("imageFile")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Missing 'imageFile' in form")
		return
	}
	defer imageFile.Close()

	songID := uuid.NewString()

	audioURL, err := h.stageAndUpload(r, songID, audioFile, audioHeader, storage.UploadAudio)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	imageURL, err := h.stageAndUpload(r, songID, imageFile, imageHeader, storage.UploadCover)
	if err != nil {
		h.respondServerError(w, err)
		return
	}

	song := &model.Song{
		ID:       songID,
		Title:    title,
		Artist:   artist,
		AlbumID:  albumID,
		Duration: duration,
		AudioURL: audioURL,
		ImageURL: imageURL,
	}
	if err := h.songRepo.CreateSong(r.Context(), song); err != nil {
		h.respondServerError(w, err)
		return
	}

	h.catalogCache.InvalidateCatalog(r.Context())
	logger.Info("[Songs] 歌曲已创建",
		logger.String("songId", song.ID),
		logger.String("title", song.Title))
	respondJSON(w, http.StatusCreated, song)
}

// stageAndUpload 先落盘到暂存目录再上传对象存储
// 暂存文件不在这里删除，由定时清理任务回收
func (h *APIHandler) stageAndUpload(
	r *http.Request,
	id string,
	file multipart.File,
	header *multipart.FileHeader,
	upload func(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error),
) (string, error) {
	if err := os.MkdirAll(h.cfg.TempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	objectName := id + filepath.Ext(header.Filename)
	tempPath := filepath.Join(h.cfg.TempDir, objectName)

	tempFile, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tempFile.Close()

	size, err := io.Copy(tempFile, file)
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind temp file: %w", err)
	}

	return upload(r.Context(), objectName, tempFile, size, header.Header.Get("Content-Type"))
}

// DeleteSongHandler 管理端删除歌曲
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.songRepo.DeleteSong(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "Song not found")
			return
		}
		h.respondServerError(w, err)
		return
	}

	h.catalogCache.InvalidateCatalog(r.Context())
	logger.Info("[Songs] 歌曲已删除", logger.String("songId", id))
	respondMessage(w, http.StatusOK, "Song deleted successfully")
}
