// Worker consumes OTP notification events from Kafka and delivers them by
// mail. Set KAFKA_BROKERS, NOTIFICATION_KAFKA_TOPIC, KAFKA_GROUP_ID, and the
// SMTP_* settings.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"user-auth-service/internal/config"
	"user-auth-service/internal/notification"
	"user-auth-service/internal/notification/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.SMTPAddr == "" || cfg.SMTPFrom == "" {
		log.Fatal("worker: SMTP_ADDR and SMTP_FROM are required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.NotificationKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	m := mailer.New(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s), mailing via %s", cfg.NotificationKafkaTopic, cfg.KafkaGroupID, cfg.SMTPAddr)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		var event notification.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("worker: bad event payload: %v", err)
			continue
		}
		// Delivery is best-effort: a failed send is logged, never retried.
		// The recipient can request a resend.
		if err := m.Send(&event); err != nil {
			log.Printf("worker: send %s to %s: %v", event.Name, event.Email, err)
		}
	}
}
