package main

import (
	"github.com/hibiken/asynq"

	notificationJob "cleaning-backend/internal/domains/notification/job"
	orderJob "cleaning-backend/internal/domains/order/job"
	"cleaning-backend/internal/infrastructure/email"
	"cleaning-backend/internal/infrastructure/sms"
	"cleaning-backend/internal/shared"
	"cleaning-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	// Notification handlers
	customerConfirmed *notificationJob.CustomerConfirmedHandler
	companyNewBooking *notificationJob.CompanyNewBookingHandler

	// Payment maintenance
	reconcilePayments *orderJob.ReconcilePendingPaymentsHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	cfg := c.Config

	emailSvc := email.NewSMTPEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
	smsSvc := sms.NewLogSMSService()

	return &HandlerRegistry{
		customerConfirmed: notificationJob.NewCustomerConfirmedHandler(emailSvc),
		companyNewBooking: notificationJob.NewCompanyNewBookingHandler(
			emailSvc,
			smsSvc,
			cfg.App.CompanyEmail,
			cfg.App.CompanyPhone,
		),
		reconcilePayments: orderJob.NewReconcilePendingPaymentsHandler(
			c.OrderService,
			cfg.Jobs.ReconcileMinAge,
			cfg.Jobs.ReconcileBatch,
		),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeNotifyCustomerBookingConfirmed, h.customerConfirmed.ProcessTask)
	mux.HandleFunc(shared.TypeNotifyCompanyNewBooking, h.companyNewBooking.ProcessTask)

	mux.HandleFunc(shared.TypeReconcilePendingPayments, h.reconcilePayments.ProcessTask)
}
