package repository

import (
	"fmt"

	"gorm.io/gorm"

	"netqa/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// ListByUserID returns the user's full conversation, oldest first. Ties on
// created_at are broken by id so the order is stable.
func (r *MessageRepository) ListByUserID(userID uint) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}
