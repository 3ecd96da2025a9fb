package usecases

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/core/ports"
)

// ContactService validates contact-form submissions and hands them to the
// mail provider.
type ContactService struct {
	mail     ports.MailSender
	validate *validator.Validate
}

// NewContactService creates a new ContactService.
func NewContactService(mail ports.MailSender) *ContactService {
	return &ContactService{
		mail:     mail,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Send validates the message and dispatches it. Validation failures are
// returned as ValidationError so the HTTP layer can map them to 400.
func (s *ContactService) Send(ctx context.Context, msg *domain.ContactMessage) error {
	if err := s.validate.Struct(msg); err != nil {
		return &ValidationError{cause: err}
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send contact mail: %w", err)
	}
	return nil
}

// ValidationError wraps a validator error on a contact submission.
type ValidationError struct {
	cause error
}

func (e *ValidationError) Error() string { return "invalid contact message: " + e.cause.Error() }
func (e *ValidationError) Unwrap() error { return e.cause }
