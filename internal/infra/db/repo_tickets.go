package db

import (
	"context"
	"errors"
	"time"

	"backoffice/internal/domain"

	"gorm.io/gorm"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if ticket.BrokerID == "" || ticket.UserID == "" {
		return errors.New("broker_id and user_id are required")
	}
	if ticket.Subject == "" {
		return errors.New("subject is required")
	}
	if ticket.ID == "" {
		ticket.ID = newUUID()
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketOpen
	}
	now := time.Now().UTC()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	model := ticketToModel(ticket)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model TicketModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	ticket := modelToTicket(model)
	return &ticket, nil
}

func (r *TicketRepository) ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *TicketRepository) ListByBroker(ctx context.Context, brokerID string) ([]domain.Ticket, error) {
	return r.list(ctx, "broker_id = ?", brokerID)
}

func (r *TicketRepository) list(ctx context.Context, query string, arg any) ([]domain.Ticket, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []TicketModel
	if err := r.db.WithContext(ctx).Where(query, arg).Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, len(models))
	for i, model := range models {
		tickets[i] = modelToTicket(model)
	}
	return tickets, nil
}

// AddReply appends to the thread and moves the ticket status in the same
// transaction. Staff replies mark the ticket answered, client replies
// reopen it. Replies to a closed ticket are rejected.
func (r *TicketRepository) AddReply(ctx context.Context, reply *domain.TicketReply) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if reply.TicketID == "" || reply.AuthorID == "" {
		return errors.New("ticket_id and author_id are required")
	}
	if reply.Body == "" {
		return errors.New("body is required")
	}
	if reply.ID == "" {
		reply.ID = newUUID()
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket TicketModel
		if err := tx.First(&ticket, "id = ?", reply.TicketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if ticket.Status == string(domain.TicketClosed) {
			return errors.New("ticket is closed")
		}
		model := TicketReplyModel{
			ID:        reply.ID,
			TicketID:  reply.TicketID,
			AuthorID:  reply.AuthorID,
			Body:      reply.Body,
			FromStaff: reply.FromStaff,
			CreatedAt: reply.CreatedAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		status := string(domain.TicketOpen)
		if reply.FromStaff {
			status = string(domain.TicketAnswered)
		}
		return tx.Model(&TicketModel{}).Where("id = ?", reply.TicketID).Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
	})
}

func (r *TicketRepository) ListReplies(ctx context.Context, ticketID string) ([]domain.TicketReply, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []TicketReplyModel
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	replies := make([]domain.TicketReply, len(models))
	for i, model := range models {
		replies[i] = domain.TicketReply{
			ID:        model.ID,
			TicketID:  model.TicketID,
			AuthorID:  model.AuthorID,
			Body:      model.Body,
			FromStaff: model.FromStaff,
			CreatedAt: model.CreatedAt,
		}
	}
	return replies, nil
}

func (r *TicketRepository) Close(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Model(&TicketModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(domain.TicketClosed),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func ticketToModel(ticket *domain.Ticket) TicketModel {
	return TicketModel{
		ID:        ticket.ID,
		BrokerID:  ticket.BrokerID,
		UserID:    ticket.UserID,
		Subject:   ticket.Subject,
		Body:      ticket.Body,
		Status:    string(ticket.Status),
		CreatedAt: ticket.CreatedAt,
		UpdatedAt: ticket.UpdatedAt,
	}
}

func modelToTicket(model TicketModel) domain.Ticket {
	return domain.Ticket{
		ID:        model.ID,
		BrokerID:  model.BrokerID,
		UserID:    model.UserID,
		Subject:   model.Subject,
		Body:      model.Body,
		Status:    domain.TicketStatus(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
