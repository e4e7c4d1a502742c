package repository

import (
	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
)

// ticketRepository implements the TicketRepository interface
type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ticket repository instance
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

// Create creates a new ticket in the database
func (r *ticketRepository) Create(ticket *models.Ticket) error {
	return r.db.Create(ticket).Error
}

// GetByID retrieves a ticket with its messages and attachments
func (r *ticketRepository) GetByID(id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("ticket_messages.created_at ASC")
	}).Preload("Messages.Attachments").First(&ticket, id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListByUser retrieves a paginated list of tickets opened by a user
func (r *ticketRepository) ListByUser(userID uint, offset, limit int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&tickets).Error
	return tickets, err
}

// ListByStatus retrieves a paginated list of tickets filtered by status
func (r *ticketRepository) ListByStatus(status string, offset, limit int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	query := r.db.Order("created_at DESC").Offset(offset).Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&tickets).Error
	return tickets, err
}

// Update updates an existing ticket in the database
func (r *ticketRepository) Update(ticket *models.Ticket) error {
	return r.db.Save(ticket).Error
}

// AddMessage appends a message to a ticket
func (r *ticketRepository) AddMessage(message *models.TicketMessage) error {
	return r.db.Create(message).Error
}

// AddAttachment registers an attachment on a ticket message
func (r *ticketRepository) AddAttachment(attachment *models.TicketAttachment) error {
	return r.db.Create(attachment).Error
}

// SumAttachmentBytesByTicketOwner sums attachment sizes across all tickets
// opened by the user.
func (r *ticketRepository) SumAttachmentBytesByTicketOwner(userID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.TicketAttachment{}).
		Select("COALESCE(SUM(ticket_attachments.file_size), 0)").
		Joins("JOIN ticket_messages ON ticket_attachments.message_id = ticket_messages.id").
		Joins("JOIN tickets ON ticket_messages.ticket_id = tickets.id").
		Where("tickets.user_id = ?", userID).
		Scan(&total).Error
	return total, err
}
