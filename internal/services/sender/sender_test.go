package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/smtp"
	"github.com/magabrotheeeer/storage-quota-engine/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetAccount(ctx context.Context, userUID string) (*models.Account, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	return m.Called(from).Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	return m.Called(to).Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	return m.Called().Error(0)
}

func (m *MockSMTPClient) Quit() error {
	return m.Called().Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
	written []byte
}

func (m *MockSMTPWriter) Write(p []byte) (int, error) {
	m.written = append(m.written, p...)
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	return m.Called().Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func setupHappySMTP(transport *MockTransport, client *MockSMTPClient, writer *MockSMTPWriter, rcpt string) {
	transport.On("GetSMTPUser").Return("noreply@example.com")
	transport.On("Connect").Return(client, nil).Once()
	client.On("Mail", "noreply@example.com").Return(nil).Once()
	client.On("Rcpt", rcpt).Return(nil).Once()
	client.On("Data").Return(writer, nil).Once()
	writer.On("Write", mock.Anything).Return(0, nil)
	writer.On("Close").Return(nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()
}

func TestSenderService_SendGraceExpiredNotice(t *testing.T) {
	transport := new(MockTransport)
	client := new(MockSMTPClient)
	writer := new(MockSMTPWriter)
	svc := NewSenderService(new(MockRepository), transport, newNoopLogger())

	setupHappySMTP(transport, client, writer, "creator@example.com")

	notice := models.GraceNotice{
		Email:           "creator@example.com",
		Username:        "creator",
		GracePeriodEnds: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		PrivateTracks:   3,
		PublicTracks:    7,
	}
	body, err := json.Marshal(notice)
	assert.NoError(t, err)

	err = svc.SendGraceExpiredNotice(body)
	assert.NoError(t, err)

	text := string(writer.written)
	assert.Contains(t, text, "To: creator@example.com")
	assert.Contains(t, text, "creator")
	assert.Contains(t, text, "01.06.2026")

	transport.AssertExpectations(t)
	client.AssertExpectations(t)
	writer.AssertExpectations(t)
}

func TestSenderService_SendGraceGrantedNotice(t *testing.T) {
	repo := new(MockRepository)
	transport := new(MockTransport)
	client := new(MockSMTPClient)
	writer := new(MockSMTPWriter)
	svc := NewSenderService(repo, transport, newNoopLogger())

	repo.On("GetAccount", mock.Anything, "uid-1").Return(&models.Account{
		UserUID:  "uid-1",
		Username: "creator",
		Email:    "creator@example.com",
	}, nil).Once()
	setupHappySMTP(transport, client, writer, "creator@example.com")

	grant := models.GraceGrant{
		UserUID:         "uid-1",
		GracePeriodEnds: time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
	}
	body, err := json.Marshal(grant)
	assert.NoError(t, err)

	err = svc.SendGraceGrantedNotice(body)
	assert.NoError(t, err)
	assert.Contains(t, string(writer.written), "15.09.2026")

	repo.AssertExpectations(t)
	transport.AssertExpectations(t)
}

func TestSenderService_SendGraceGrantedNotice_AccountLookupFails(t *testing.T) {
	repo := new(MockRepository)
	transport := new(MockTransport)
	svc := NewSenderService(repo, transport, newNoopLogger())

	repo.On("GetAccount", mock.Anything, "uid-1").
		Return(nil, errors.New("db unreachable")).Once()

	body, err := json.Marshal(models.GraceGrant{UserUID: "uid-1"})
	assert.NoError(t, err)

	err = svc.SendGraceGrantedNotice(body)
	assert.Error(t, err)

	repo.AssertExpectations(t)
	transport.AssertNotCalled(t, "Connect")
}

func TestSenderService_InvalidPayload(t *testing.T) {
	svc := NewSenderService(new(MockRepository), new(MockTransport), newNoopLogger())

	err := svc.SendGraceExpiredNotice([]byte("{not json"))
	assert.Error(t, err)

	err = svc.SendGraceGrantedNotice([]byte("{not json"))
	assert.Error(t, err)
}
