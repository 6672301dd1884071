package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"Melodex/core/auth"
	"Melodex/core/identity"
	"Melodex/logger"
)

// AuthCallbackRequest 外部身份提供方回调的请求体
// 令牌校验由上游完成，这里只消费已验证的身份断言字段
type AuthCallbackRequest struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl"`
	// Email 不落库，只进入会话令牌用于管理员判定
	Email string `json:"email,omitempty"`
}

// AuthCallbackHandler handles the identity-provider callback during session
// bootstrap. Provisioning is idempotent: repeated callbacks for the same
// external identity succeed without creating duplicates.
func (h *APIHandler) AuthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var req AuthCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("[AuthCallback] 解析请求体失败", logger.ErrorField(err))
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.provisioner.Provision(r.Context(), req.ID, req.FirstName, req.LastName, req.ImageURL)
	if err != nil {
		if errors.Is(err, identity.ErrEmptyExternalID) {
			respondMessage(w, http.StatusBadRequest, "id is required")
			return
		}
		h.respondServerError(w, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, req.Email)
	if err != nil {
		h.respondServerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    user,
	})
}
