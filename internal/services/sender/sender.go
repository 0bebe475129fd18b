// Package services содержит отправку писем жизненного цикла грейс-периода.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/sl"
	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/smtp"
	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
)

// SenderRepository читает аккаунты для резолва адресата.
type SenderRepository interface {
	GetAccount(ctx context.Context, userUID string) (*models.Account, error)
}

// SenderService отправляет письма о выдаче и истечении грейс-периода.
type SenderService struct {
	repo      SenderRepository
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(repo SenderRepository, transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		repo:      repo,
		transport: transport,
		log:       log,
	}
}

// SendGraceGrantedNotice отправляет письмо о выдаче грейс-периода.
// В событии нет адреса, поэтому аккаунт читается из хранилища.
func (s *SenderService) SendGraceGrantedNotice(body []byte) error {
	var message models.GraceGrant
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	account, err := s.repo.GetAccount(context.Background(), message.UserUID)
	if err != nil {
		s.log.Error("failed to read account for notice",
			slog.String("user_uid", message.UserUID), sl.Err(err))
		return err
	}

	to := []string{account.Email}
	subject := "Ваша подписка отменена: контент остаётся доступным до конца грейс-периода"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\n"+
		"Ваша подписка отменена, но весь загруженный контент останется публичным до %s.\n"+
		"После этой даты треки сверх лимита бесплатного тарифа станут приватными.\n\n"+
		"Чтобы сохранить полный доступ, продлите подписку заранее.",
		account.Username, message.GracePeriodEnds.Format("02.01.2006"))

	return s.sendEmail(to, subject, bodyText)
}

// SendGraceExpiredNotice отправляет письмо об истечении грейс-периода.
func (s *SenderService) SendGraceExpiredNotice(body []byte) error {
	var message models.GraceNotice
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Грейс-период завершён: часть треков скрыта"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\n"+
		"Грейс-период после отмены подписки завершился %s.\n"+
		"Публичными остались %d треков, %d треков переведены в приватные.\n\n"+
		"Возобновите подписку, чтобы снова открыть весь контент.",
		message.Username, message.GracePeriodEnds.Format("02.01.2006"),
		message.PublicTracks, message.PrivateTracks)

	return s.sendEmail(to, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			s.log.Error("failed to close SMTP client", sl.Err(err))
		}
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
