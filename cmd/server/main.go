// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edu-agent-go/internal/config"
	"edu-agent-go/internal/handler"
	"edu-agent-go/internal/middleware"
	"edu-agent-go/internal/model"
	"edu-agent-go/internal/pipeline"
	"edu-agent-go/internal/repository"
	"edu-agent-go/internal/service"
	"edu-agent-go/pkg/database"
	"edu-agent-go/pkg/embedding"
	"edu-agent-go/pkg/es"
	"edu-agent-go/pkg/kafka"
	"edu-agent-go/pkg/llm"
	"edu-agent-go/pkg/log"
	"edu-agent-go/pkg/storage"
	"edu-agent-go/pkg/tika"
	"edu-agent-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化基础设施：MySQL、Redis、MinIO、ES、Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.AutoMigrate(
		&model.Agent{},
		&model.SourceDocument{},
		&model.Chunk{},
		&model.Conversation{},
		&model.Message{},
		&model.AmbiguityEvent{},
	)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducers(cfg.Kafka)

	// 4. 初始化 Repository
	agentRepo := repository.NewAgentRepository(database.DB)
	docRepo := repository.NewDocumentRepository(database.DB)
	chunkRepo := repository.NewChunkRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.DB, database.RDB)
	ambiguityRepo := repository.NewAmbiguityRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	processor := pipeline.NewProcessor(
		tikaClient,
		embeddingClient,
		cfg.MinIO,
		cfg.Ingest,
		docRepo,
		chunkRepo,
	)

	retrievalService := service.NewRetrievalService(chunkRepo, cfg.Retrieval)
	answerService := service.NewAnswerService(llmClient, cfg.LLM)
	insightService := service.NewInsightService(cfg.Elasticsearch.InsightIndex)
	agentService := service.NewAgentService(agentRepo)
	documentService := service.NewDocumentService(agentRepo, docRepo, chunkRepo, processor, cfg.MinIO)
	chatService := service.NewChatService(
		agentRepo,
		docRepo,
		chunkRepo,
		conversationRepo,
		ambiguityRepo,
		embeddingClient,
		retrievalService,
		answerService,
		insightService,
		service.ThresholdsFromConfig(cfg.Retrieval),
	)

	// 6. 启动后台 Kafka 消费者：文档摄取 + 洞察落 ES
	go kafka.StartIngestConsumer(cfg.Kafka, processor)
	go kafka.StartInsightConsumer(cfg.Kafka, &service.ESInsightSink{IndexName: cfg.Elasticsearch.InsightIndex})

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 8. 注册路由
	agentHandler := handler.NewAgentHandler(agentService)
	documentHandler := handler.NewDocumentHandler(documentService)
	chatHandler := handler.NewChatHandler(chatService)
	insightHandler := handler.NewInsightHandler(insightService)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(jwtManager))
	{
		agents := apiV1.Group("/agents")
		{
			agents.GET("", agentHandler.ListAgents)
			agents.GET("/:agentId/sources", documentHandler.ListSources)
			agents.GET("/:agentId/sources/:docId/download", documentHandler.GenerateDownloadURL)
			agents.POST("/:agentId/ask", chatHandler.Ask)
			agents.POST("/:agentId/resolve", chatHandler.Resolve)
			agents.GET("/:agentId/insights", insightHandler.ListRecentInsights)

			// 配置与知识库的变更仅限管理员
			adminOnly := agents.Group("")
			adminOnly.Use(middleware.AdminAuthMiddleware())
			{
				adminOnly.POST("", agentHandler.CreateAgent)
				adminOnly.PUT("/:agentId", agentHandler.UpdateAgent)
				adminOnly.POST("/:agentId/sources", documentHandler.CreateSource)
				adminOnly.DELETE("/:agentId/sources/:docId", documentHandler.DeleteSource)
			}
		}
	}

	// 9. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者在进程退出时随循环自然结束，无需手动关闭
	log.Info("服务已优雅关闭")
}
