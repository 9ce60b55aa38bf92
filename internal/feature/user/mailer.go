package user

import (
	"context"

	"go.uber.org/zap"
)

type Mailer interface {
	SendConfirmation(ctx context.Context, email, link string) error
}

// LogMailer 开发环境：确认链接直接打到日志
type LogMailer struct{ Log *zap.Logger }

func (m LogMailer) SendConfirmation(_ context.Context, email, link string) error {
	m.Log.Info("confirmation mail", zap.String("to", email), zap.String("link", link))
	return nil
}
