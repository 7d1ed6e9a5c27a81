package service

import (
	"context"
	"log"
	"time"

	"github.com/aspire-solutions/councilkb/internal/domain"
	"github.com/google/uuid"
)

// ContactRepository defines the persistence interface for contact submissions.
type ContactRepository interface {
	Create(ctx context.Context, submission *domain.ContactSubmission) error
}

// Mailer sends transactional notification emails.
type Mailer interface {
	SendContactNotification(ctx context.Context, submission *domain.ContactSubmission) error
	SendCouncilRequest(ctx context.Context, request *domain.CouncilRequest) error
}

// UUIDGenerator generates unique identifiers
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator generates UUIDs using google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// ContactInput is a new website contact-form submission.
type ContactInput struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// ContactService stores contact submissions and dispatches notification
// emails. The stored submission is the source of truth; email delivery is a
// courtesy and its failure never fails the submission.
type ContactService struct {
	repo   ContactRepository
	mailer Mailer
	uuid   UUIDGenerator
	now    func() time.Time
}

// NewContactService creates a new ContactService instance
func NewContactService(repo ContactRepository, mailer Mailer, uuidGen UUIDGenerator) *ContactService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &ContactService{
		repo:   repo,
		mailer: mailer,
		uuid:   uuidGen,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores the submission and sends the notification email in the
// background.
func (s *ContactService) Submit(ctx context.Context, input ContactInput) (*domain.ContactSubmission, error) {
	submission := &domain.ContactSubmission{
		ID:        s.uuid.NewString(),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Message:   input.Message,
		Status:    "new",
		CreatedAt: s.now(),
	}

	if err := domain.ValidateContactSubmission(submission); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid contact submission", err)
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store contact submission", err)
	}

	if s.mailer != nil {
		go func(sub domain.ContactSubmission) {
			sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.mailer.SendContactNotification(sendCtx, &sub); err != nil {
				log.Printf("contact notification email failed (background): %v", err)
			}
		}(*submission)
	}

	return submission, nil
}

// DispatchCouncilRequest validates and sends a structured council request
// email synchronously so delivery errors surface to the calling agent.
func (s *ContactService) DispatchCouncilRequest(ctx context.Context, request *domain.CouncilRequest) error {
	if err := domain.ValidateCouncilRequest(request); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid council request", err)
	}

	if s.mailer == nil {
		return domain.NewDomainError(domain.ErrCodeInvalidOperation, "mailer not configured")
	}

	if err := s.mailer.SendCouncilRequest(ctx, request); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "email delivery failed", err)
	}

	return nil
}
