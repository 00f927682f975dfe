package brokerapp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"realestate/internal/domain"
	"realestate/internal/pkg/referral"
	"realestate/internal/pkg/validator"
	"realestate/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	EventSubmitted = "application.submitted"
	EventApproved  = "application.approved"
	EventClosed    = "application.closed"
	EventRejected  = "application.rejected"
)

type ApproveOutcome string

const (
	OutcomePromoted ApproveOutcome = "promoted"
	OutcomeCreated  ApproveOutcome = "created"
)

const (
	MessagePromoted = "existing user promoted"
	MessageCreated  = "new broker created"
)

const maxReferralCodeAttempts = 5

type ApproveResult struct {
	Outcome     ApproveOutcome
	Message     string
	Application *domain.BrokerApplication
	User        *domain.User
	// PasswordReset is set for created accounts when a token could be issued.
	PasswordReset *domain.PasswordReset
}

type Service struct {
	apps       ApplicationRepository
	users      UserRepository
	tx         TxManager
	events     EventPublisher
	resets     PasswordResetIssuer
	maxRetries int

	newReferralCode func() (string, error)
	newPlaceholder  func() (string, error)
}

func NewService(
	apps ApplicationRepository,
	users UserRepository,
	tx TxManager,
	events EventPublisher,
	resets PasswordResetIssuer,
	maxRetries int,
) *Service {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Service{
		apps:            apps,
		users:           users,
		tx:              tx,
		events:          events,
		resets:          resets,
		maxRetries:      maxRetries,
		newReferralCode: referral.NewCode,
		newPlaceholder:  placeholderCredential,
	}
}

// -------------------- Submit --------------------

func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.BrokerApplication, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.ReferralCodeUsed = strings.TrimSpace(in.ReferralCodeUsed)
	in.Locations = trimLocations(in.Locations)

	if err := validateSubmission(in); err != nil {
		return nil, err
	}

	exists, err := s.apps.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, storageError(ctx, err)
	}
	if exists {
		return nil, ErrDuplicateSubmission
	}

	app := &domain.BrokerApplication{
		FullName:    in.FullName,
		DateOfBirth: in.DateOfBirth,
		Phone:       in.Phone,
		Email:       in.Email,
		Experience:  in.Experience,
		Locations:   in.Locations,
		Message:     in.Message,
		Status:      domain.ApplicationPending,
	}
	if in.ReferralCodeUsed != "" {
		code := in.ReferralCodeUsed
		app.ReferralCodeUsed = &code
	}

	if err := s.apps.Create(ctx, app); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateSubmission
		}
		return nil, storageError(ctx, err)
	}

	log.Printf("broker_application action=submit id=%d referral=%t", app.ID, app.ReferralCodeUsed != nil)
	s.publish(EventSubmitted, app)

	return app, nil
}

func validateSubmission(in SubmitInput) error {
	fields := validator.Validate(in)
	if fields == nil {
		fields = map[string]string{}
	}

	if in.DateOfBirth.IsZero() {
		fields["DateOfBirth"] = "required"
	}

	if len(fields) > 0 {
		return &FieldError{Fields: fields}
	}
	return nil
}

func trimLocations(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// -------------------- List Pending --------------------

// ListPending returns pending applications, oldest first. Authorization is
// checked before the store is touched.
func (s *Service) ListPending(ctx context.Context, caller *domain.Caller) ([]domain.BrokerApplication, error) {
	if err := authorizeAdmin(caller); err != nil {
		return nil, err
	}

	apps, err := s.apps.ListByStatus(ctx, domain.ApplicationPending)
	if err != nil {
		return nil, storageError(ctx, err)
	}
	return apps, nil
}

// -------------------- Approve --------------------

// Approve promotes the applicant's account to broker, or creates one, and
// closes the application in the same transaction. When the applicant already
// holds admin or broker the application is committed as rejected and
// ErrAlreadyPrivileged is returned.
func (s *Service) Approve(ctx context.Context, caller *domain.Caller, id int64) (*ApproveResult, error) {
	if err := authorizeAdmin(caller); err != nil {
		return nil, err
	}

	var (
		result *ApproveResult
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = s.approveOnce(ctx, caller.ID, id)
		if err == nil || attempt >= s.maxRetries || ctx.Err() != nil || !repository.IsTransient(err) {
			break
		}
		log.Printf("broker_application action=approve id=%d attempt=%d retry=true error=%q", id, attempt+1, err.Error())
	}

	if err != nil {
		err = classifyApproveError(ctx, err)
		log.Printf("broker_application action=approve id=%d admin_id=%d outcome=error error=%q", id, caller.ID, err.Error())
		return nil, err
	}

	if result.Application.Status == domain.ApplicationRejected {
		log.Printf("broker_application action=approve id=%d admin_id=%d outcome=closed reason=already_privileged", id, caller.ID)
		s.publish(EventClosed, result.Application)
		return nil, ErrAlreadyPrivileged
	}

	log.Printf("broker_application action=approve id=%d admin_id=%d outcome=%s user_id=%d", id, caller.ID, result.Outcome, result.User.ID)
	s.publish(EventApproved, result.Application)

	if result.Outcome == OutcomeCreated {
		result.PasswordReset = s.issuePasswordReset(ctx, result.User.ID)
	}

	return result, nil
}

// issuePasswordReset runs after commit. A failure leaves the approval in
// place; an admin can issue a new token later.
func (s *Service) issuePasswordReset(ctx context.Context, userID int64) *domain.PasswordReset {
	if s.resets == nil {
		return nil
	}
	reset, err := s.resets.IssuePasswordReset(ctx, userID)
	if err != nil {
		log.Printf("broker_application action=issue_password_reset user_id=%d outcome=error error=%q", userID, err.Error())
		return nil
	}
	return reset
}

func (s *Service) approveOnce(ctx context.Context, adminID, id int64) (*ApproveResult, error) {
	var result *ApproveResult
	err := s.tx.WithinTx(ctx, func(apps ApplicationRepository, users UserRepository) error {
		var err error
		result, err = s.approveTx(ctx, adminID, id, apps, users)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) approveTx(ctx context.Context, adminID, id int64, apps ApplicationRepository, users UserRepository) (*ApproveResult, error) {
	app, err := apps.GetByIDForUpdate(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !app.IsPending() {
		return nil, ErrAlreadyResolved
	}

	referrer, err := findReferrer(ctx, users, app.ReferralCodeUsed)
	if err != nil {
		return nil, err
	}

	user, err := users.GetByEmail(ctx, app.Email)
	switch {
	case err == nil:
		if user.Role.IsPrivileged() {
			if err := closeApplication(ctx, apps, app, domain.ApplicationRejected, adminID); err != nil {
				return nil, err
			}
			return &ApproveResult{Application: app, User: user}, nil
		}
		return s.promote(ctx, apps, users, app, user, referrer, adminID)
	case repository.IsNotFound(err):
		return s.createBroker(ctx, apps, users, app, referrer, adminID)
	default:
		return nil, err
	}
}

// findReferrer resolves the referral code. An unknown or malformed code is
// not an error.
func findReferrer(ctx context.Context, users UserRepository, code *string) (*domain.User, error) {
	if code == nil || !referral.IsWellFormed(*code) {
		return nil, nil
	}
	referrer, err := users.GetByReferralCode(ctx, *code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return referrer, nil
}

func (s *Service) promote(
	ctx context.Context,
	apps ApplicationRepository,
	users UserRepository,
	app *domain.BrokerApplication,
	user *domain.User,
	referrer *domain.User,
	adminID int64,
) (*ApproveResult, error) {
	user.Role = domain.RoleBroker

	// referred_by is set once and never rewritten
	if user.ReferredBy == nil && referrer != nil && referrer.ID != user.ID {
		refID := referrer.ID
		user.ReferredBy = &refID
	}

	if user.ReferralCode == nil {
		code, err := s.uniqueReferralCode(ctx, users)
		if err != nil {
			return nil, err
		}
		user.ReferralCode = &code
	}

	if err := users.Update(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrConcurrentApprovalConflict
		}
		return nil, err
	}

	if err := closeApplication(ctx, apps, app, domain.ApplicationApproved, adminID); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &ApproveResult{
		Outcome:     OutcomePromoted,
		Message:     MessagePromoted,
		Application: app,
		User:        user,
	}, nil
}

func (s *Service) createBroker(
	ctx context.Context,
	apps ApplicationRepository,
	users UserRepository,
	app *domain.BrokerApplication,
	referrer *domain.User,
	adminID int64,
) (*ApproveResult, error) {
	code, err := s.uniqueReferralCode(ctx, users)
	if err != nil {
		return nil, err
	}

	hash, err := s.newPlaceholder()
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:                  app.FullName,
		Email:                 app.Email,
		Phone:                 app.Phone,
		PasswordHash:          hash,
		Role:                  domain.RoleBroker,
		ReferralCode:          &code,
		PasswordResetRequired: true,
	}
	if referrer != nil {
		refID := referrer.ID
		user.ReferredBy = &refID
	}

	if err := users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrConcurrentApprovalConflict
		}
		return nil, err
	}

	if err := closeApplication(ctx, apps, app, domain.ApplicationApproved, adminID); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &ApproveResult{
		Outcome:     OutcomeCreated,
		Message:     MessageCreated,
		Application: app,
		User:        user,
	}, nil
}

func closeApplication(ctx context.Context, apps ApplicationRepository, app *domain.BrokerApplication, status domain.ApplicationStatus, adminID int64) error {
	if err := apps.UpdateStatus(ctx, app.ID, status, adminID); err != nil {
		return err
	}
	now := time.Now()
	app.Status = status
	app.ResolvedBy = &adminID
	app.ResolvedAt = &now
	return nil
}

func (s *Service) uniqueReferralCode(ctx context.Context, users UserRepository) (string, error) {
	for i := 0; i < maxReferralCodeAttempts; i++ {
		code, err := s.newReferralCode()
		if err != nil {
			return "", err
		}
		taken, err := users.ExistsByReferralCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free referral code after %d attempts", maxReferralCodeAttempts)
}

// placeholderCredential hashes a random UUIDv4 nobody ever sees. The account
// is flagged for a password reset, so the secret only has to be unguessable.
func placeholderCredential() (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func classifyApproveError(ctx context.Context, err error) error {
	for _, known := range []error{
		ErrNotFound,
		ErrAlreadyResolved,
		ErrConcurrentApprovalConflict,
	} {
		if errors.Is(err, known) {
			return known
		}
	}
	if repository.IsUniqueViolation(err) {
		return ErrConcurrentApprovalConflict
	}
	return storageError(ctx, err)
}

// -------------------- Reject --------------------

// Reject deletes the application outright. Unlike the rejection inside
// Approve it leaves no record behind.
func (s *Service) Reject(ctx context.Context, caller *domain.Caller, id int64) error {
	if err := authorizeAdmin(caller); err != nil {
		return err
	}

	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return storageError(ctx, err)
	}

	if err := s.apps.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return storageError(ctx, err)
	}

	log.Printf("broker_application action=reject id=%d admin_id=%d", id, caller.ID)
	s.publish(EventRejected, app)

	return nil
}

// -------------------- helpers --------------------

func authorizeAdmin(caller *domain.Caller) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func storageError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

func (s *Service) publish(kind string, app *domain.BrokerApplication) {
	if s.events == nil {
		return
	}
	s.events.PublishApplicationEvent(kind, app)
}
