// zabbix-incident-backend 진입점
//
// 기동 순서:
//  1. .env 로드 후 설정 읽기
//  2. Postgres 풀 생성 및 스키마 보장
//  3. RabbitMQ 연결, exchange/queue/binding 선언
//  4. 웹소켓 허브 및 consumer 고루틴 시작
//  5. HTTP 라우터 구성 후 서비스 시작
package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/zabbix-incident/backend/internal/broker"
	"github.com/zabbix-incident/backend/internal/config"
	"github.com/zabbix-incident/backend/internal/db"
	"github.com/zabbix-incident/backend/internal/handler"
	"github.com/zabbix-incident/backend/internal/service"
	"github.com/zabbix-incident/backend/internal/ws"
)

func main() {
	// .env는 로컬 개발 편의용. 없으면 환경변수만 사용
	if err := godotenv.Load(); err != nil {
		log.Printf("[Main] No .env file loaded: %v", err)
	}

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("[Main] Postgres init failed: %v", err)
	}
	defer pool.Close()

	store := &db.Postgres{Pool: pool}
	if err := store.EnsureIncidentSchema(ctx); err != nil {
		log.Fatalf("[Main] Schema migration failed: %v", err)
	}

	conn, pubCh, err := broker.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("[Main] RabbitMQ init failed: %v", err)
	}
	defer conn.Close()

	if err := broker.DeclareTopology(pubCh, cfg.RabbitMQ); err != nil {
		log.Fatalf("[Main] RabbitMQ topology declare failed: %v", err)
	}

	// consumer는 prefetch 설정이 발행 채널과 섞이지 않도록 전용 채널 사용
	consumeCh, err := conn.Channel()
	if err != nil {
		log.Fatalf("[Main] RabbitMQ consume channel open failed: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	notifications := service.NewNotificationService(hub)
	publisher := broker.NewPublisher(pubCh, cfg.RabbitMQ)

	// consumer가 죽어도 HTTP 서비스는 유지. 연결이 살아있는 동안은 채널을
	// 다시 열어 소비를 재개하고, 연결 자체가 끊기면 실시간 알림만 포기한다
	go func() {
		consumer := broker.NewConsumer(consumeCh, cfg.RabbitMQ, notifications)
		for {
			err := consumer.Run(ctx)
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Main] Consumer stopped: %v", err)

			time.Sleep(5 * time.Second)
			if conn.IsClosed() {
				log.Printf("[Main] RabbitMQ connection closed, live notifications disabled")
				return
			}
			ch, err := conn.Channel()
			if err != nil {
				log.Printf("[Main] Failed to reopen consume channel: %v", err)
				continue
			}
			consumer = broker.NewConsumer(ch, cfg.RabbitMQ, notifications)
			log.Printf("[Main] Consumer restarting")
		}
	}()

	incidents := service.NewIncidentService(store, publisher, notifications)
	incidentHandler := handler.NewIncidentHandler(incidents)

	router := gin.Default()
	router.Use(handler.CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.Health)
	router.GET(cfg.WebSocket.Path, handler.IncidentStream(hub))

	api := router.Group("/api")
	{
		api.POST("/incidents", incidentHandler.CreateIncident)
		api.GET("/incidents", incidentHandler.ListIncidents)
		api.GET("/incidents/:id", incidentHandler.GetIncident)
		api.PUT("/incidents/:id/status", incidentHandler.UpdateIncidentStatus)
		api.DELETE("/incidents/:id", incidentHandler.DeleteIncident)
		// :id 와일드카드와 충돌하지 않도록 별도 prefix 사용
		api.GET("/zabbix/incidents/:zabbixEventId", incidentHandler.GetIncidentByZabbixEventID)
	}

	log.Printf("[Main] Starting server on :%s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("[Main] Server stopped: %v", err)
	}
}
