package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"Melodex/cache"
	"Melodex/config"
	"Melodex/core/auth"
	"Melodex/core/identity"
	"Melodex/core/presence"
	"Melodex/logger"
	"Melodex/repository"
)

type contextKey string

const (
	ctxKeyUserID contextKey = "userID"
	ctxKeyEmail  contextKey = "email"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	songRepo     repository.SongRepository
	albumRepo    repository.AlbumRepository
	userRepo     repository.UserRepository
	provisioner  *identity.Provisioner
	catalogCache *cache.CatalogCache
	hub          *presence.Hub
	cfg          *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	songRepo repository.SongRepository,
	albumRepo repository.AlbumRepository,
	userRepo repository.UserRepository,
	provisioner *identity.Provisioner,
	catalogCache *cache.CatalogCache,
	hub *presence.Hub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		songRepo:     songRepo,
		albumRepo:    albumRepo,
		userRepo:     userRepo,
		provisioner:  provisioner,
		catalogCache: catalogCache,
		hub:          hub,
		cfg:          cfg,
	}
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logger.Error("[HTTP] 写入响应失败", logger.ErrorField(err))
		}
	}
}

// respondMessage 统一的错误/提示响应体，客户端依赖其中的 message 字段
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondServerError 集中的5xx出口
// 生产环境只返回通用消息，开发环境透出原始错误便于排查
func (h *APIHandler) respondServerError(w http.ResponseWriter, err error) {
	logger.Error("[HTTP] 服务器内部错误", logger.ErrorField(err))
	if h.cfg.IsProduction() {
		respondMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondMessage(w, http.StatusInternalServerError, err.Error())
}

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondMessage(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondMessage(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxKeyEmail, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// AdminMiddleware 在认证基础上要求管理员邮箱
func (h *APIHandler) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		email, err := GetEmailFromContext(r.Context())
		if err != nil || !h.isAdmin(email) {
			respondMessage(w, http.StatusForbidden, "Unauthorized - you must be an admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *APIHandler) isAdmin(email string) bool {
	if email == "" {
		return false
	}
	for _, admin := range h.cfg.AdminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(ctxKeyUserID).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetEmailFromContext extracts the user email from the request context
func GetEmailFromContext(ctx context.Context) (string, error) {
	email, ok := ctx.Value(ctxKeyEmail).(string)
	if !ok {
		return "", fmt.Errorf("email not found in context")
	}
	return email, nil
}

// CheckAdminHandler 供前端判断当前用户是否管理员
func (h *APIHandler) CheckAdminHandler(w http.ResponseWriter, r *http.Request) {
	email, _ := GetEmailFromContext(r.Context())
	respondJSON(w, http.StatusOK, map[string]bool{"admin": h.isAdmin(email)})
}
