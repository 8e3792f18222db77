package common

import "errors"

// Базовые ошибки хранилища. Ошибки конкретных сущностей оборачивают их,
// так что errors.Is(err, ErrNotFound) работает для любого репозитория.
var (
	ErrNotFound      = errors.New("запись не найдена")
	ErrAlreadyExists = errors.New("запись уже существует")
	ErrConflict      = errors.New("запись изменена параллельно")
)
