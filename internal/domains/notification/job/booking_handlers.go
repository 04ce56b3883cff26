package job

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"cleaning-backend/internal/infrastructure/email"
	"cleaning-backend/internal/infrastructure/sms"
	"cleaning-backend/internal/shared"
)

// ============================================
// Customer booking confirmation
// ============================================

type CustomerConfirmedHandler struct {
	emailService email.EmailService
}

func NewCustomerConfirmedHandler(emailService email.EmailService) *CustomerConfirmedHandler {
	return &CustomerConfirmedHandler{emailService: emailService}
}

func (h *CustomerConfirmedHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := decode(task)
	if err != nil {
		return err
	}

	if payload.CustomerEmail == "" {
		log.Warn().Str("order_id", payload.OrderID).Msg("Booking has no customer email, skipping confirmation")
		return nil
	}

	msg := email.Message{
		To:      []string{payload.CustomerEmail},
		Subject: fmt.Sprintf("Your cleaning is booked (#%s)", payload.OrderNumber),
		Body:    customerBody(payload),
	}
	if err := h.emailService.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("order_id", payload.OrderID).Msg("Failed to send booking confirmation")
		return fmt.Errorf("send booking confirmation: %w", err)
	}

	log.Info().
		Str("order_id", payload.OrderID).
		Str("email", payload.CustomerEmail).
		Msg("Booking confirmation sent")
	return nil
}

// ============================================
// Company new-booking alert
// ============================================

type CompanyNewBookingHandler struct {
	emailService email.EmailService
	smsService   sms.SMSService
	companyEmail string
	companyPhone string
}

func NewCompanyNewBookingHandler(emailService email.EmailService, smsService sms.SMSService, companyEmail, companyPhone string) *CompanyNewBookingHandler {
	return &CompanyNewBookingHandler{
		emailService: emailService,
		smsService:   smsService,
		companyEmail: companyEmail,
		companyPhone: companyPhone,
	}
}

// ProcessTask sends the SMS best-effort; only an email failure is retried.
func (h *CompanyNewBookingHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := decode(task)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("New booking #%s: %s on %s, %s",
		payload.OrderNumber, payload.ServiceTypeName,
		payload.ScheduledAt.Format("Jan 2 15:04"), payload.Total)
	if _, err := h.smsService.SendSMS(ctx, h.companyPhone, text); err != nil {
		log.Warn().Err(err).Str("order_id", payload.OrderID).Msg("Failed to send new booking SMS")
	}

	msg := email.Message{
		To:      []string{h.companyEmail},
		Subject: fmt.Sprintf("New booking #%s", payload.OrderNumber),
		Body:    companyBody(payload),
	}
	if err := h.emailService.Send(ctx, msg); err != nil {
		return fmt.Errorf("send new booking email: %w", err)
	}

	log.Info().Str("order_id", payload.OrderID).Msg("Company notified of new booking")
	return nil
}

func decode(task *asynq.Task) (shared.BookingNotificationPayload, error) {
	var payload shared.BookingNotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Str("type", task.Type()).Msg("Failed to unmarshal booking payload")
		// malformed payloads never succeed on retry
		return payload, fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	return payload, nil
}

func customerBody(p shared.BookingNotificationPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", p.CustomerName)
	fmt.Fprintf(&b, "Your %s is confirmed for %s.\n", p.ServiceTypeName, p.ScheduledAt.Format("Monday, Jan 2 2006 at 15:04"))
	fmt.Fprintf(&b, "Address: %s\n", p.Address)
	fmt.Fprintf(&b, "Estimated duration: %d minutes with %d cleaner(s)\n", p.DurationMinutes, p.MaidsCount)
	fmt.Fprintf(&b, "Total charged: %s %s\n\n", p.Total, strings.ToUpper(p.Currency))
	b.WriteString("Thank you for booking with us.")
	return b.String()
}

func companyBody(p shared.BookingNotificationPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order: %s (%s)\n", p.OrderNumber, p.OrderID)
	fmt.Fprintf(&b, "Customer: %s <%s> %s\n", p.CustomerName, p.CustomerEmail, p.CustomerPhone)
	fmt.Fprintf(&b, "Service: %s\n", p.ServiceTypeName)
	fmt.Fprintf(&b, "When: %s\n", p.ScheduledAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Where: %s\n", p.Address)
	fmt.Fprintf(&b, "Duration: %d min, maids: %d\n", p.DurationMinutes, p.MaidsCount)
	fmt.Fprintf(&b, "Total: %s %s\n", p.Total, strings.ToUpper(p.Currency))
	return b.String()
}
