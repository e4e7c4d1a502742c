// Package tickets implements the support ticket workflow. Ticket priority is
// derived from the opener's effective tier, and attachment bytes count
// against the opener's storage quota.
package tickets

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/attachstore"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
	"github.com/plexdev/plexaddons-api/internal/pkg/quota"
)

var (
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrTicketClosed         = errors.New("ticket no longer accepts replies")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
)

// PriorityForTier maps the opener's effective tier to the starting priority.
// Urgent is reserved for admins.
func PriorityForTier(tier entitlements.Tier) string {
	switch tier {
	case entitlements.TierPremium:
		return models.TICKET_PRIORITY_HIGH
	case entitlements.TierPro:
		return models.TICKET_PRIORITY_NORMAL
	default:
		return models.TICKET_PRIORITY_LOW
	}
}

type Service struct {
	tickets  repository.TicketRepository
	enforcer *quota.Enforcer
	store    *attachstore.Store
	now      func() time.Time
}

func NewService(repos *repository.Repositories, enforcer *quota.Enforcer, store *attachstore.Store) *Service {
	return &Service{
		tickets:  repos.Ticket,
		enforcer: enforcer,
		store:    store,
		now:      time.Now,
	}
}

// Open creates a ticket with an initial message. Priority comes from the
// opener's effective tier at creation time and does not change when the tier
// does.
func (s *Service) Open(user *models.User, subject, category, content string) (*models.Ticket, error) {
	if category == "" {
		category = models.TICKET_CATEGORY_GENERAL
	}

	ticket := &models.Ticket{
		UserID:   user.ID,
		Subject:  subject,
		Category: category,
		Priority: PriorityForTier(user.EffectiveTier(s.now())),
		Status:   models.TICKET_STATUS_OPEN,
	}
	if err := ticket.Validate(); err != nil {
		return nil, fmt.Errorf("ticket validation failed: %w", err)
	}
	if err := s.tickets.Create(ticket); err != nil {
		return nil, fmt.Errorf("ticket create failed: %w", err)
	}

	if content != "" {
		if _, err := s.Reply(ticket, &user.ID, content, false); err != nil {
			return nil, err
		}
	}
	return ticket, nil
}

// Reply appends a message to an open ticket.
func (s *Service) Reply(ticket *models.Ticket, authorID *uint, content string, staff bool) (*models.TicketMessage, error) {
	if !ticket.IsOpen() {
		return nil, ErrTicketClosed
	}

	message := &models.TicketMessage{
		TicketID:     ticket.ID,
		AuthorID:     authorID,
		Content:      content,
		IsStaffReply: staff,
	}
	if err := s.tickets.AddMessage(message); err != nil {
		return nil, fmt.Errorf("ticket message create failed: %w", err)
	}

	// A staff reply moves a fresh ticket into in-progress.
	if staff && ticket.Status == models.TICKET_STATUS_OPEN {
		ticket.Status = models.TICKET_STATUS_IN_PROGRESS
		if err := s.tickets.Update(ticket); err != nil {
			return nil, fmt.Errorf("ticket status update failed: %w", err)
		}
	}
	return message, nil
}

// Attach stores an uploaded file and registers it on a ticket message. The
// file's bytes count against the ticket owner's storage quota.
func (s *Service) Attach(ticket *models.Ticket, owner *models.User, message *models.TicketMessage, r io.Reader, filename string, declaredSize int64) (*models.TicketAttachment, error) {
	if !ticket.IsOpen() {
		return nil, ErrTicketClosed
	}

	tier := owner.EffectiveTier(s.now())
	ok, err := s.enforcer.CheckStorageQuota(owner.ID, tier, declaredSize, 0)
	if err != nil {
		return nil, fmt.Errorf("storage quota check failed: %w", err)
	}
	if !ok {
		return nil, ErrStorageQuotaExceeded
	}

	saved, err := s.store.Save(r, filename)
	if err != nil {
		return nil, fmt.Errorf("attachment store failed: %w", err)
	}

	// The declared size from the multipart header can lie; re-check with
	// the actual byte count before registering.
	if saved.Size != declaredSize {
		ok, err = s.enforcer.CheckStorageQuota(owner.ID, tier, saved.Size, 0)
		if err != nil || !ok {
			_ = s.store.Delete(saved.FilePath, saved.ObjectKey)
			if err != nil {
				return nil, fmt.Errorf("storage quota check failed: %w", err)
			}
			return nil, ErrStorageQuotaExceeded
		}
	}

	attachment := &models.TicketAttachment{
		MessageID:        message.ID,
		FilePath:         saved.FilePath,
		OriginalFilename: filename,
		FileSize:         saved.Size,
		S3ObjectKey:      saved.ObjectKey,
	}
	if err := s.tickets.AddAttachment(attachment); err != nil {
		_ = s.store.Delete(saved.FilePath, saved.ObjectKey)
		return nil, fmt.Errorf("attachment register failed: %w", err)
	}

	if _, err := s.enforcer.SyncStorageCounter(owner.ID); err != nil {
		return nil, fmt.Errorf("storage counter sync failed: %w", err)
	}
	return attachment, nil
}

// Resolve marks a ticket resolved.
func (s *Service) Resolve(ticket *models.Ticket) error {
	now := s.now()
	ticket.Status = models.TICKET_STATUS_RESOLVED
	ticket.ResolvedAt = &now
	return s.tickets.Update(ticket)
}

// Close closes a ticket. Closed tickets reject further replies.
func (s *Service) Close(ticket *models.Ticket) error {
	now := s.now()
	ticket.Status = models.TICKET_STATUS_CLOSED
	ticket.ClosedAt = &now
	return s.tickets.Update(ticket)
}

// Get loads a ticket by ID.
func (s *Service) Get(id uint) (*models.Ticket, error) {
	ticket, err := s.tickets.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}
