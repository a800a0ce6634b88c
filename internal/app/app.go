// Package app builds the partnership services from configuration and shares
// them between the HTTP router, the background sweeper and the cron endpoint.
package app

import (
	"fmt"
	"time"

	"showroom-backend/internal/application/access"
	"showroom-backend/internal/application/attachments"
	"showroom-backend/internal/application/candidatures"
	"showroom-backend/internal/application/emails"
	"showroom-backend/internal/application/ledger"
	"showroom-backend/internal/application/listings"
	"showroom-backend/internal/application/notifications"
	"showroom-backend/internal/application/paymentrequests"
	"showroom-backend/internal/application/placements"
	"showroom-backend/internal/application/sweeper"
	"showroom-backend/internal/config"
	"showroom-backend/internal/pkg/clock"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Services is the wired application layer.
type Services struct {
	DB    *gorm.DB
	Redis *redis.Client

	Access          access.Checker
	Ledger          *ledger.Service
	Listings        *listings.Service
	Candidatures    *candidatures.Service
	Placements      *placements.Service
	PaymentRequests *paymentrequests.Service
	Attachments     *attachments.Service
	Inbox           *notifications.ListSink
	Publisher       *notifications.Publisher
	Sweeper         *sweeper.Runner
}

// NewServices wires every service over db and rdb. rdb may be nil (no inbox, no sweep lease).
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Services, error) {
	resolver, err := AttachmentResolver(cfg)
	if err != nil {
		return nil, err
	}
	clk := clock.System()
	checker := &access.GormChecker{DB: db}
	inbox := &notifications.ListSink{Client: rdb}
	publisher := &notifications.Publisher{
		Sink:  notificationSink(cfg, db, inbox),
		Async: cfg.Env != "test",
	}
	led := &ledger.Service{DB: db}
	lst := &listings.Service{DB: db}
	att := &attachments.Service{Resolver: resolver}

	cands := &candidatures.Service{
		DB:       db,
		Ledger:   led,
		Access:   checker,
		Listings: lst,
		Clock:    clk,
		Notifier: publisher,
		Expiry:   cfg.CandidatureExpiry,
	}
	return &Services{
		DB:           db,
		Redis:        rdb,
		Access:       checker,
		Ledger:       led,
		Listings:     lst,
		Candidatures: cands,
		Placements: &placements.Service{
			DB:          db,
			Access:      checker,
			Clock:       clk,
			Notifier:    publisher,
			DefaultRate: cfg.DefaultCommissionRate,
		},
		PaymentRequests: &paymentrequests.Service{
			DB:          db,
			Access:      checker,
			Attachments: att,
			Clock:       clk,
			Notifier:    publisher,
		},
		Attachments: att,
		Inbox:       inbox,
		Publisher:   publisher,
		Sweeper: &sweeper.Runner{
			Sweeper:  cands,
			Redis:    rdb,
			Interval: cfg.SweepInterval,
			LeaseTTL: 2 * time.Minute,
		},
	}, nil
}

// AttachmentResolver picks the storage backend for payment request attachments.
func AttachmentResolver(cfg *config.Config) (attachments.Resolver, error) {
	switch cfg.AttachmentBackend {
	case "", "supabase":
		return &attachments.SupabaseResolver{
			BaseURL:   cfg.SupabaseURL,
			SecretKey: cfg.SupabaseSecretKey,
			Bucket:    cfg.AttachmentBucket,
		}, nil
	case "s3":
		return attachments.NewS3Resolver(attachments.S3Config{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.AWSS3Bucket,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Endpoint:        cfg.AWSS3Endpoint,
		})
	default:
		return nil, fmt.Errorf("attachments: unknown backend %q", cfg.AttachmentBackend)
	}
}

// notificationSink fans events out to the log, the Redis inbox and, with a Brevo key, email.
func notificationSink(cfg *config.Config, db *gorm.DB, inbox *notifications.ListSink) notifications.Sink {
	sinks := notifications.Multi{notifications.LogSink{}}
	if inbox.Client != nil {
		sinks = append(sinks, inbox)
	}
	if cfg.SendinblueAPIKey != "" {
		sinks = append(sinks, &notifications.MailSink{
			Sender:    &emails.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom},
			Directory: &notifications.GormDirectory{DB: db},
		})
	} else {
		log.Info().Msg("SENDINBLUE_API_KEY not set, partnership emails disabled")
	}
	return sinks
}
