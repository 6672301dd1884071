package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Melodex/cache"
	"Melodex/config"
	"Melodex/core/auth"
	"Melodex/core/cleanup"
	"Melodex/core/identity"
	"Melodex/core/presence"
	"Melodex/db"
	"Melodex/logger"
	"Melodex/model"
	"Melodex/repository"
	"Melodex/storage"

	"github.com/gorilla/mux"
)

// Start initializes dependencies and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	// 初始化日志系统
	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	})
	defer logger.Sync()

	auth.Init(cfg.JWTSecret)

	// 设置服务器超时
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("[Server] MinIO初始化失败", logger.ErrorField(err))
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("[Server] 数据库连接失败", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("[Server] 数据库初始化失败", logger.ErrorField(err))
	}

	// 用户表走 GORM，自动迁移
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("[Server] GORM连接失败", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.User{}); err != nil {
		logger.Fatal("[Server] 数据库迁移失败", logger.ErrorField(err))
	}

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("[Server] Redis连接失败", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	songRepo := repository.NewMySQLSongRepository(db.DB)
	albumRepo := repository.NewMySQLAlbumRepository(db.DB)
	userRepo := repository.NewGormUserRepository(db.GormDB)

	provisioner := identity.NewProvisioner(userRepo)
	catalogCache := cache.NewDefaultCatalogCache(cfg.CacheTTL)

	// 在线状态 Hub
	hub := presence.NewHub()
	go hub.Run()
	defer hub.Stop()

	// 定期清理上传暂存目录
	sweeper := cleanup.NewSweeper(cfg.TempDir, cfg.SweepEvery, cfg.SweepMaxAge)
	sweeper.Start()
	defer sweeper.Stop()

	// 初始化处理器
	apiHandler := NewAPIHandler(songRepo, albumRepo, userRepo, provisioner, catalogCache, hub, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/callback", apiHandler.AuthCallbackHandler).Methods(http.MethodPost)

	// 目录浏览相关的API端点
	router.HandleFunc("/api/albums", apiHandler.GetAlbumsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/albums/{id}", apiHandler.GetAlbumHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", apiHandler.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/made-for-you", apiHandler.GetMadeForYouSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/trending", apiHandler.GetTrendingSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/featured", apiHandler.GetFeaturedSongsHandler).Methods(http.MethodGet)
	// 注册在分类路由之后，避免 {id} 吃掉 made-for-you 等字面路径
	router.HandleFunc("/api/songs/{id}", apiHandler.GetSongHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", apiHandler.GetStatsHandler).Methods(http.MethodGet)

	// 当前用户与用户列表（排除自己）
	router.HandleFunc("/api/users/me", apiHandler.AuthMiddleware(apiHandler.GetCurrentUserHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/users", apiHandler.AuthMiddleware(apiHandler.GetUsersHandler)).Methods(http.MethodGet)

	// 管理端API，需要管理员邮箱
	router.HandleFunc("/api/admin/check", apiHandler.AuthMiddleware(apiHandler.CheckAdminHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/songs", apiHandler.AdminMiddleware(apiHandler.CreateSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/songs/{id}", apiHandler.AdminMiddleware(apiHandler.DeleteSongHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/admin/albums", apiHandler.AdminMiddleware(apiHandler.CreateAlbumHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/albums/{id}", apiHandler.AdminMiddleware(apiHandler.DeleteAlbumHandler)).Methods(http.MethodDelete)

	// WebSocket 在线状态
	router.HandleFunc("/ws", apiHandler.WebSocketHandler)

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		logger.Info("[Server] 服务启动", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("[Server] 服务启动失败", logger.ErrorField(err))
		}
	}()

	// 等待中断信号
	<-stop
	logger.Info("[Server] 收到退出信号，开始关闭")

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("[Server] 强制关闭", logger.ErrorField(err))
	}

	logger.Info("[Server] 已停止")
}
