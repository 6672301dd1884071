package server

import (
	"net/http"
)

// GetCurrentUserHandler 返回会话令牌对应的用户记录
func (h *APIHandler) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	if user == nil {
		// 令牌有效但用户记录已不存在
		respondMessage(w, http.StatusNotFound, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// GetUsersHandler 返回除当前用户外的所有用户（用于联系人/在线列表）
func (h *APIHandler) GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	users, err := h.userRepo.ListUsersExcept(r.Context(), userID)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}
