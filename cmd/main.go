package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sage-backend/internal/config"
	"sage-backend/internal/enrichment"
	"sage-backend/internal/gateway"
	"sage-backend/internal/handler"
	"sage-backend/internal/knowledge"
	"sage-backend/internal/service"
	"sage-backend/internal/storage"
	"sage-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// 初始化存储
	store := newStorage(cfg)

	// 初始化服务
	gw := gateway.NewMistralClient(cfg.Mistral, cfg.Assistant.MaxOptions)
	tagService := knowledge.NewService(store)
	pipeline := enrichment.NewPipeline(gw, tagService)
	chatService := service.NewChatService(store, gw, pipeline, tagService, cfg.Assistant.OptionClickDelay)
	quizService := service.NewQuizService(gw, pipeline)

	// 初始化处理器
	chatHandler := handler.NewChatHandler(chatService, pipeline)
	knowledgeHandler := handler.NewKnowledgeHandler(tagService, quizService)

	// 创建路由
	router := setupRouter(cfg, chatHandler, knowledgeHandler)

	// 创建HTTP服务器
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// 启动服务器
	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	if err := server.Close(); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	if err := store.Close(); err != nil {
		logger.Errorf("存储关闭失败: %v", err)
	}
	logger.Info("服务器已关闭")
}

func newStorage(cfg *config.Config) storage.Storage {
	var store storage.Storage

	if cfg.Storage.Type == "disk" {
		store = storage.NewDiskStorage(cfg.Storage.DataDir)
	} else {
		store = storage.NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize storage: %v", err)
		store = storage.NewMemoryStorage()
		store.Init()
	}

	return store
}

func setupRouter(cfg *config.Config, chatHandler *handler.ChatHandler, knowledgeHandler *handler.KnowledgeHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS配置
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// API路由
	api := router.Group("/api")
	{
		chat := api.Group("/chat")
		{
			chat.POST("/send", chatHandler.Send)
			chat.POST("/option", chatHandler.ClickOption)
			chat.POST("/retry/:message_id", chatHandler.Retry)
			chat.GET("/messages", chatHandler.GetState)
			chat.GET("/enrichments", chatHandler.GetEnrichments)
			chat.POST("/clear", chatHandler.Clear)
			chat.GET("/events", chatHandler.Events)
		}

		know := api.Group("/knowledge")
		{
			know.GET("/tags", knowledgeHandler.ListTags)
			know.POST("/tags", knowledgeHandler.AddTag)
			know.PUT("/tags/:id", knowledgeHandler.EditTag)
			know.DELETE("/tags/:id", knowledgeHandler.DeleteTag)
			know.GET("/stats", knowledgeHandler.GetStats)
			know.POST("/suggestions/accept", knowledgeHandler.AcceptSuggestion)

			know.GET("/quiz", knowledgeHandler.GetQuiz)
			know.POST("/quiz/start", knowledgeHandler.StartQuiz)
			know.POST("/quiz/message", knowledgeHandler.QuizMessage)
			know.POST("/quiz/reset", knowledgeHandler.ResetQuiz)
		}
	}

	return router
}
