package sms

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// SegmentLength is the GSM-7 payload of one SMS part.
const SegmentLength = 160

var ErrNoRecipient = errors.New("sms has no recipient")

type SMSService interface {
	SendSMS(ctx context.Context, to, message string) (messageID string, err error)
}

// LogSMSService stands in for a carrier: it logs the message instead of
// sending it. The worker uses it until a provider is configured.
type LogSMSService struct {
	sent atomic.Int64
}

func NewLogSMSService() *LogSMSService {
	return &LogSMSService{}
}

func (s *LogSMSService) SendSMS(ctx context.Context, to, message string) (string, error) {
	if to == "" {
		return "", ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	n := s.sent.Add(1)
	log.Info().
		Str("to", maskPhone(to)).
		Int("segments", Segments(message)).
		Msg("SMS logged (no carrier configured)")

	return fmt.Sprintf("log-sms-%d", n), nil
}

// Sent reports how many messages went through.
func (s *LogSMSService) Sent() int64 {
	return s.sent.Load()
}

// Segments is the number of SMS parts message is billed as.
func Segments(message string) int {
	n := len([]rune(message))
	if n == 0 {
		return 1
	}
	return (n + SegmentLength - 1) / SegmentLength
}

func maskPhone(phone string) string {
	r := []rune(phone)
	if len(r) <= 4 {
		return "****"
	}
	return "****" + string(r[len(r)-4:])
}
