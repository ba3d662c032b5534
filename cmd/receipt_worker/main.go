// Command receipt_worker consumes billing email jobs from RabbitMQ, renders
// them, sends them via Mailgun and archives a copy of each receipt to GCS.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/prasetya/cardvault/config"
	"github.com/prasetya/cardvault/pkg/helpers"
	"github.com/prasetya/cardvault/pkg/mailer"
	mailtpl "github.com/prasetya/cardvault/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if !cfg.MailSendEnabled {
		log.Println("MAIL_SEND_ENABLED=false; receipt worker disabled (no emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQReceiptQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	if _, err := ch.QueueDeclare(cfg.RabbitMQReceiptQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQReceiptQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx := context.Background()
	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)

	// Receipt archive is optional; without a bucket we only send email.
	var archive *receiptArchive
	if cfg.GCSReceiptBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("gcs client: %v", err)
		}
		defer func() { _ = gcs.Close() }()
		archive = &receiptArchive{client: gcs, bucket: cfg.GCSReceiptBucket}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			var job mailer.EmailJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				log.Printf("bad message: %v", err)
				_ = msg.Nack(false, false)
				continue
			}

			html, err := mailtpl.RenderHTML(job.Template, job.Data)
			if err != nil {
				log.Printf("render %s failed: %v", job.Template, err)
				_ = msg.Nack(false, false)
				continue
			}
			subject := job.Subject
			if subject == "" {
				subject = mailtpl.Subject(job.Template)
			}

			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			if err := mg.Send(c, job.To, subject, "", html); err != nil {
				cancel()
				log.Printf("send failed: %v", err)
				_ = msg.Nack(false, true)
				continue
			}
			cancel()

			if archive != nil && job.Template == mailer.TemplateReceipt {
				if err := archive.store(ctx, job, html); err != nil {
					// archive is best-effort; the email already went out
					log.Printf("archive failed: %v", err)
				}
			}
			_ = msg.Ack(false)
		}
		close(done)
	}()

	log.Printf("receipt worker listening on queue=%s", cfg.RabbitMQReceiptQueue)
	<-stop
	log.Printf("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// receiptArchive keeps a copy of every receipt in a GCS bucket, keyed by
// customer and payment reference.
type receiptArchive struct {
	client *storage.Client
	bucket string
}

func (a *receiptArchive) store(ctx context.Context, job mailer.EmailJob, html string) error {
	customer := fmt.Sprintf("%v", job.Data["CustomerID"])
	ref := fmt.Sprintf("%v", job.Data["Reference"])
	if customer == "" || ref == "" {
		return fmt.Errorf("receipt job missing customer or reference")
	}
	object := fmt.Sprintf("receipts/%s/%s.html", customer, ref)
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := helpers.UploadObject(c, a.client, a.bucket, object, "text/html", strings.NewReader(html))
	return err
}
