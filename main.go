package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Stormrider66/hockey-hub-sub043/global"
	"github.com/Stormrider66/hockey-hub-sub043/logger"
	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	"github.com/Stormrider66/hockey-hub-sub043/service/gateway/handlers"
	"github.com/Stormrider66/hockey-hub-sub043/service/kafka"
	"github.com/Stormrider66/hockey-hub-sub043/service/natsx"
	"github.com/Stormrider66/hockey-hub-sub043/service/storage"
	safe "github.com/Stormrider66/hockey-hub-sub043/tools/safe"
)

func main() {
	global.ConfigAll()
	cfg := global.Config()

	verifier, err := global.ConfigVerifier()
	if err != nil {
		logger.Errorf("[main] verifier init failed: %v", err)
		os.Exit(1)
	}

	mgr := gateway.NewConnManager(cfg.GatewayNodeID)
	mgr.SetPresenceMirror(storage.NewPresenceMirror(cfg.GatewayNodeID, 0))

	activity := storage.NewActivityCache(storage.DefaultActivityCap)
	fanout := gateway.NewFanout(cfg.FanoutWorkers, 4096)
	bcast := gateway.NewBroadcaster(mgr, fanout, activity)

	srv := gateway.NewServer(cfg.GatewayNodeID, verifier, mgr, bcast, activity)
	handlers.RegisterAll(srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var natsClient *natsx.Client
	if len(cfg.NatsServers) > 0 {
		natsClient, err = natsx.NewClient(natsx.Config{
			Servers:  cfg.NatsServers,
			Name:     cfg.GatewayNodeID,
			Username: cfg.NatsUsername,
			Password: cfg.NatsPassword,
		})
		if err != nil {
			logger.Warnf("[main] nats unavailable: %v", err)
		} else if err := natsx.NewIngress(natsClient, bcast).Start(); err != nil {
			logger.Warnf("[main] nats ingress failed: %v", err)
		}
	}

	var kafkaClient *kafka.Client
	if len(cfg.KafkaBrokers) > 0 {
		kcfg := kafka.DefaultConfig()
		kcfg.Brokers = cfg.KafkaBrokers
		kcfg.GroupID = cfg.KafkaGroupID
		kafkaClient, err = kafka.NewClient(kcfg)
		if err != nil {
			logger.Warnf("[main] kafka unavailable: %v", err)
			kafkaClient = nil
		} else {
			topics := []string{gateway.TopicActivity, gateway.TopicGatewayEvents}
			if err := kafkaClient.EnsureTopics(topics); err != nil {
				logger.Warnf("[main] ensure topics: %v", err)
			}
			producer, perr := kafkaClient.NewAsyncProducer()
			if perr != nil {
				logger.Warnf("[main] kafka producer: %v", perr)
			} else {
				srv.SetProducer(producer)
			}
			kafka.RegisterActivityIngest(bcast)
			safe.Go(func() {
				if err := kafkaClient.StartConsumerGroup(ctx, []string{gateway.TopicActivity}); err != nil {
					logger.Warnf("[main] kafka consumer: %v", err)
				}
			})
		}
	}

	r := gin.Default()
	r.GET("/ws", srv.HandleWS)
	r.GET("/healthz", srv.HandleHealth)
	r.GET("/stats", srv.HandleStats)
	r.POST("/api/broadcast", srv.HandleBroadcast)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Infof("[main] gateway %s listening on %s", cfg.GatewayNodeID, cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[main] http server: %v", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Info("[main] shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	cancel()
	mgr.Close()
	fanout.Stop()
	if natsClient != nil {
		_ = natsClient.Close()
	}
	if kafkaClient != nil {
		_ = kafkaClient.Close()
	}
	storage.CloseRedis()
	verifier.Close()
	logger.Info("[main] bye")
}
