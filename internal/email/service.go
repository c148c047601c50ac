package email

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/qline/booking-api/pkg/logger"
)

type Service interface {
	SendConfirmation(ctx context.Context, to, name, code string, scheduledAt time.Time) error
	SendCancellation(ctx context.Context, to, name, code, reason string) error
	SendReschedule(ctx context.Context, to, name, code string, previous, scheduledAt time.Time) error
	SendReminder(ctx context.Context, to, name, code string, scheduledAt time.Time) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type service struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewService(cfg Config, logger *logger.Logger) Service {
	return &service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (s *service) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (s *service) SendConfirmation(_ context.Context, to, name, code string, scheduledAt time.Time) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour booking is confirmed for %s.\nConfirmation code: %s\n\nShow this code (or your QR) at the branch to check in.",
		name, scheduledAt.Format("Monday, 2 January 2006 at 15:04"), code,
	)
	return s.send(to, "Booking confirmed: "+code, body)
}

func (s *service) SendCancellation(_ context.Context, to, name, code, reason string) error {
	body := fmt.Sprintf("Hello %s,\n\nYour booking %s has been cancelled.", name, code)
	if reason != "" {
		body += "\nReason: " + reason
	}
	return s.send(to, "Booking cancelled: "+code, body)
}

func (s *service) SendReschedule(_ context.Context, to, name, code string, previous, scheduledAt time.Time) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour booking %s has been moved.\nPrevious time: %s\nNew time: %s",
		name, code,
		previous.Format("Monday, 2 January 2006 at 15:04"),
		scheduledAt.Format("Monday, 2 January 2006 at 15:04"),
	)
	return s.send(to, "Booking rescheduled: "+code, body)
}

func (s *service) SendReminder(_ context.Context, to, name, code string, scheduledAt time.Time) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nThis is a reminder for your booking tomorrow at %s.\nConfirmation code: %s",
		name, scheduledAt.Format("15:04"), code,
	)
	return s.send(to, "Booking reminder: "+code, body)
}
