package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chat-client/internal/api"
	"chat-client/internal/config"
	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/session"
	"chat-client/internal/telemetry"
	"chat-client/internal/ui"
)

func main() {
	cfg := config.Load()

	if cfg.AMQPURL != "" {
		publisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("amqp unavailable, running without event publishing: %v", err)
		} else {
			observability.SetPublisher(publisher)
			defer publisher.Close()
		}
	}

	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.InitTracing(context.Background(), cfg.OTLPEndpoint, "chat-client")
		if err != nil {
			log.Printf("tracing unavailable: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("tracer shutdown: %v", err)
				}
			}()
		}
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Printf("metrics listener error: %v", err)
			}
		}()
	}

	client := api.New(cfg.ServerURL, cfg.Token)

	opts := ui.Options{
		Viewer:    models.User{ID: cfg.UserID, Username: cfg.Username},
		WSBaseURL: cfg.WSBaseURL(),
		Token:     cfg.Token,
		Reconnect: session.ReconnectPolicy{
			Enabled:         cfg.ReconnectEnabled,
			InitialInterval: cfg.ReconnectInterval,
			MaxInterval:     30 * time.Second,
			MaxAttempts:     cfg.ReconnectMaxAttempts,
		},
	}

	if err := ui.Run(client, opts); err != nil {
		log.Fatalf("client error: %v", err)
	}
}
