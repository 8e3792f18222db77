package models

import "github.com/google/uuid"

const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

// Actor - инициатор операции. Покупатель и продавец определяются
// относительно конкретного заказа, а не ролью.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// SystemActor используется фоновыми задачами.
var SystemActor = Actor{Role: RoleSystem}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

// HistoryUserID возвращает автора записи истории; для системы - nil.
func (a Actor) HistoryUserID() *uuid.UUID {
	if a.IsSystem() || a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
