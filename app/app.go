// Package app wires configuration, storage and services together for the
// server and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"school-payment-service/config"
	"school-payment-service/db"
	"school-payment-service/http/handlers"
	"school-payment-service/logger"
	"school-payment-service/repository"
	"school-payment-service/services"
	"school-payment-service/services/gateway"
	"school-payment-service/services/kafka"
	"school-payment-service/services/webhook"
)

const consumerGroup = "payment-notifier"

// drainTimeout bounds how long Close waits for background publishes.
const drainTimeout = 10 * time.Second

type App struct {
	Config         *config.Config
	DB             *sql.DB
	Producer       *kafka.Producer
	Consumer       *kafka.Consumer
	Audit          *services.AuditService
	Reconciliation *services.ReconciliationService
	Webhooks       *services.WebhookService
	Transactions   *services.TransactionService
	Payments       *services.PaymentService
}

// New connects to Postgres and builds every service. Kafka and SMTP are
// optional and degrade to no-ops when unconfigured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	conn, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	orders := repository.NewOrderRepository(conn)
	logs := repository.NewWebhookLogRepository(conn)
	view := repository.NewTransactionRepository(conn)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	var events services.EventPublisher
	if producer.Enabled() {
		if err := producer.EnsureTopic(ctx); err != nil {
			logger.Warn("could not ensure topic %s: %v", cfg.Kafka.Topic, err)
		}
		events = producer
	}

	audit := services.NewAuditService(logs)
	recon := services.NewReconciliationService(orders, events)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, consumerGroup)
	if mailer := services.NewSMTPMailer(cfg); mailer != nil {
		notifier := services.NewReceiptNotifier(mailer, orders)
		if consumer.Enabled() {
			consumer.Handle(kafka.EventPaymentReconciled, notifier.HandleReconciled)
		} else {
			recon.OnSuccess(notifier.Notify)
		}
	}

	gateways := []services.CollectGateway{
		gateway.NewEdvironClient(gateway.EdvironConfig{
			BaseURL:  cfg.Edviron.BaseURL,
			APIKey:   cfg.Edviron.APIKey,
			SchoolID: cfg.Edviron.SchoolID,
		}, gateway.NewJWTSigner(cfg.Edviron.PGKey)),
	}
	if cfg.Razorpay.KeyID != "" && cfg.Razorpay.KeySecret != "" {
		gateways = append(gateways, gateway.NewRazorpayClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret))
	}

	return &App{
		Config:         cfg,
		DB:             conn,
		Producer:       producer,
		Consumer:       consumer,
		Audit:          audit,
		Reconciliation: recon,
		Webhooks:       services.NewWebhookService(audit, webhook.NewNormalizer(), recon),
		Transactions:   services.NewTransactionService(view, orders),
		Payments: services.NewPaymentService(orders, events, services.PaymentConfig{
			SchoolID:    cfg.Edviron.SchoolID,
			CallbackURL: cfg.Edviron.CallbackURL,
		}, gateways...),
	}, nil
}

// Handler exposes the services to the HTTP layer.
func (a *App) Handler() *handlers.Handler {
	return &handlers.Handler{
		Webhooks:     a.Webhooks,
		Audit:        a.Audit,
		Transactions: a.Transactions,
		Payments:     a.Payments,
		DB:           a.DB,
	}
}

// Close waits up to drainTimeout for background publishes, then releases
// Kafka clients and the database pool. Publishes still pending after the
// timeout fail once the producer closes.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := a.Reconciliation.Drain(ctx); err != nil {
		logger.Warn("Abandoning pending reconciliation events: %v", err)
	}
	if err := a.Payments.Drain(ctx); err != nil {
		logger.Warn("Abandoning pending payment events: %v", err)
	}

	if err := a.Consumer.Close(); err != nil {
		logger.Error("Error closing Kafka consumer: %v", err)
	}
	if err := a.Producer.Close(); err != nil {
		logger.Error("Error closing Kafka producer: %v", err)
	}
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("error closing database: %w", err)
	}
	return nil
}
