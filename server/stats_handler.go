package server

import (
	"net/http"

	"Melodex/logger"
	"Melodex/model"
)

// GetStatsHandler 返回目录统计信息
// 统计量由四个计数查询组成，结果通过Redis缓存降低首页读压力
func (h *APIHandler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if cached, err := h.catalogCache.GetStats(r.Context()); err != nil {
		logger.Warn("[Stats] 读取统计缓存失败", logger.ErrorField(err))
	} else if cached != nil {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	ctx := r.Context()

	totalSongs, err := h.songRepo.CountSongs(ctx)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	totalAlbums, err := h.albumRepo.CountAlbums(ctx)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	totalUsers, err := h.userRepo.CountUsers(ctx)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	totalArtists, err := h.songRepo.CountDistinctArtists(ctx)
	if err != nil {
		h.respondServerError(w, err)
		return
	}

	stats := &model.Stats{
		TotalSongs:   totalSongs,
		TotalAlbums:  totalAlbums,
		TotalUsers:   totalUsers,
		TotalArtists: totalArtists,
	}

	if err := h.catalogCache.SetStats(r.Context(), stats); err != nil {
		logger.Warn("[Stats] 写入统计缓存失败", logger.ErrorField(err))
	}
	respondJSON(w, http.StatusOK, stats)
}
