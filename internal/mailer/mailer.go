// Package mailer реализует отправку писем через Postmark.
// Без настроенного server token возвращается Noop-мейлер: отправка
// превращается в тихий no-op и считается успехом, чтобы логика
// контента и доступа не зависела от почтового провайдера.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"

	"github.com/bookinsights/insights-backend/internal/config"
)

// ErrSendFailed возвращается при ошибке почтового провайдера.
var ErrSendFailed = errors.New("failed to send email")

// Mailer описывает интерфейс отправки писем.
type Mailer interface {
	// Send отправляет одно письмо списку получателей.
	Send(ctx context.Context, to []string, subject, htmlBody string) error
	// Enabled сообщает, настроен ли реальный провайдер.
	Enabled() bool
}

// New возвращает Postmark-мейлер или Noop, если токен не задан.
func New(cfg config.Email) Mailer {
	if cfg.PostmarkServerToken == "" {
		return Noop{}
	}
	return &PostmarkMailer{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:   cfg.EmailFrom,
	}
}

// PostmarkMailer отправляет письма через Postmark API.
type PostmarkMailer struct {
	client *postmark.Client
	from   string
}

// Send отправляет письмо. Несколько получателей передаются одним
// запросом, адреса через запятую.
func (m *PostmarkMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return nil
	}
	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:     m.from,
		To:       strings.Join(to, ","),
		Subject:  subject,
		HTMLBody: htmlBody,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

// Enabled всегда true для настроенного провайдера.
func (m *PostmarkMailer) Enabled() bool { return true }

// Noop — мейлер-заглушка: отправка всегда успешна и ничего не делает.
type Noop struct{}

func (Noop) Send(_ context.Context, _ []string, _, _ string) error { return nil }

func (Noop) Enabled() bool { return false }
