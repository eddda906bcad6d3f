package models

import "time"

// User представляет администратора, работающего с заявками.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	Username     string    // Имя пользователя (уникальное)
	Email        string    // Электронная почта
	PasswordHash string    // Хэш пароля пользователя
	Role         string    // Роль пользователя, admin или manager
	CreatedAt    time.Time // Дата создания учётной записи
}

// DummyLogin данные формы входа администратора.
type DummyLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// DummyRegister данные формы регистрации нового администратора.
type DummyRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}
