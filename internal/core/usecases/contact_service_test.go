package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/core/usecases"
)

// --- Mock MailSender ---

type mockMail struct {
	sendFn func(ctx context.Context, msg *domain.ContactMessage) error
}

func (m *mockMail) Send(ctx context.Context, msg *domain.ContactMessage) error {
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return nil
}

func validMessage() *domain.ContactMessage {
	return &domain.ContactMessage{
		Name:  "Juan Pérez",
		Email: "juan@example.com",
		Phone: "342-5551234",
		Body:  "¿A qué hora sale el último colectivo?",
	}
}

func TestContactSend_Valid(t *testing.T) {
	var sent *domain.ContactMessage
	mail := &mockMail{
		sendFn: func(ctx context.Context, msg *domain.ContactMessage) error {
			sent = msg
			return nil
		},
	}

	svc := usecases.NewContactService(mail)
	if err := svc.Send(context.Background(), validMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent == nil || sent.Name != "Juan Pérez" {
		t.Errorf("expected the message handed to the sender, got %+v", sent)
	}
}

func TestContactSend_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		msg  *domain.ContactMessage
	}{
		{"no name", &domain.ContactMessage{Email: "a@b.com", Body: "hola"}},
		{"no email", &domain.ContactMessage{Name: "Ana", Body: "hola"}},
		{"no body", &domain.ContactMessage{Name: "Ana", Email: "a@b.com"}},
		{"bad email", &domain.ContactMessage{Name: "Ana", Email: "not-an-email", Body: "hola"}},
	}

	mail := &mockMail{
		sendFn: func(ctx context.Context, msg *domain.ContactMessage) error {
			t.Error("invalid messages must never reach the sender")
			return nil
		},
	}
	svc := usecases.NewContactService(mail)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Send(context.Background(), tc.msg)
			var verr *usecases.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestContactSend_ProviderFailure(t *testing.T) {
	mail := &mockMail{
		sendFn: func(ctx context.Context, msg *domain.ContactMessage) error {
			return errors.New("resend HTTP 500")
		},
	}

	svc := usecases.NewContactService(mail)
	err := svc.Send(context.Background(), validMessage())
	if err == nil {
		t.Fatal("expected an error")
	}

	var verr *usecases.ValidationError
	if errors.As(err, &verr) {
		t.Error("a provider failure must not look like a validation error")
	}
}

func TestContactSend_OptionalFieldsMayBeEmpty(t *testing.T) {
	svc := usecases.NewContactService(&mockMail{})

	msg := &domain.ContactMessage{Name: "Ana", Email: "a@b.com", Body: "hola"}
	if err := svc.Send(context.Background(), msg); err != nil {
		t.Errorf("phone and subject are optional, got %v", err)
	}
}
