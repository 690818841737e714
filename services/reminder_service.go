// services/reminder_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	appconfig "elms-backend/config"
	"elms-backend/models"
	"elms-backend/utils"

	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SMSSender delivers one text message and returns the provider's message id.
type SMSSender interface {
	Send(to, body string) (string, error)
}

type twilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(cfg appconfig.RemindersConfig) SMSSender {
	return &twilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		}),
		from: cfg.TwilioFromNumber,
	}
}

func (t *twilioSender) Send(to, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

// ReminderService texts tenants whose invoices just became overdue.
type ReminderService struct {
	db      *gorm.DB
	billing *BillingService
	sender  SMSSender
	logger  *zap.Logger
	Clock   Clock
}

func NewReminderService(db *gorm.DB, billing *BillingService, sender SMSSender, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		db:      db,
		billing: billing,
		sender:  sender,
		logger:  logger.Named("reminders"),
	}
}

// StartScheduler runs the overdue sweep on schedule until the returned cron is stopped.
func (s *ReminderService) StartScheduler(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.RunOverdueSweep(context.Background()); err != nil {
			s.logger.Error("overdue sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}

	c.Start()
	s.logger.Info("reminder scheduler started", zap.String("schedule", schedule))
	return c, nil
}

// RunOverdueSweep flips past-due invoices to OVERDUE and reminds each tenant once.
// It returns the number of invoices that flipped.
func (s *ReminderService) RunOverdueSweep(ctx context.Context) (int, error) {
	s.logger.Info("starting overdue sweep")

	flipped, err := s.billing.SweepOverdue(ctx)
	if err != nil {
		return 0, err
	}

	for i := range flipped {
		if err := s.remind(ctx, &flipped[i]); err != nil {
			s.logger.Error("reminder not logged",
				zap.String("invoice", flipped[i].InvoiceNumber),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("overdue sweep completed", zap.Int("invoices", len(flipped)))
	return len(flipped), nil
}

func (s *ReminderService) remind(ctx context.Context, invoice *models.Invoice) error {
	var tenancy models.Tenancy
	if err := s.db.WithContext(ctx).Preload("User").First(&tenancy, "id = ?", invoice.TenancyID).Error; err != nil {
		return err
	}
	if tenancy.User == nil {
		return errors.New("tenancy has no user")
	}

	now := s.Clock.now()
	message := fmt.Sprintf("Hello %s, invoice %s for %s is %d day(s) overdue. Outstanding balance: %s. Please pay as soon as possible.",
		tenancy.User.FullName(),
		invoice.InvoiceNumber,
		invoice.Month.Format("January 2006"),
		utils.DaysBetween(invoice.DueDate, now),
		invoice.Balance.StringFixed(2),
	)

	entry := models.NotificationLog{
		InvoiceID: invoice.ID,
		UserID:    tenancy.UserID,
		Channel:   "sms",
		Message:   message,
		SentAt:    now,
	}

	switch {
	case tenancy.User.Phone == "":
		entry.Status = "skipped"
		entry.ErrorMessage = "tenant has no phone number"
	default:
		sid, err := s.sender.Send(tenancy.User.Phone, message)
		if err != nil {
			s.logger.Warn("failed to send reminder", zap.String("invoice", invoice.InvoiceNumber), zap.Error(err))
			entry.Status = "failed"
			entry.ErrorMessage = err.Error()
		} else {
			s.logger.Info("reminder sent", zap.String("invoice", invoice.InvoiceNumber), zap.String("sid", sid))
			entry.Status = "sent"
		}
	}

	return s.db.WithContext(ctx).Create(&entry).Error
}

// RecentLogs returns the latest reminder attempts, newest first.
func (s *ReminderService) RecentLogs(ctx context.Context, limit int) ([]models.NotificationLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []models.NotificationLog
	err := s.db.WithContext(ctx).Order("sent_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
