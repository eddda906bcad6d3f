// Package repository реализует хранилище данных на основе PostgreSQL
// для управления заявками на пробный доступ и расчёт цены. Предоставляет
// методы создания, чтения, обновления и агрегирования записей, пакетный
// перевод просроченных записей в статус expired, а также работу с
// административными пользователями.
//
// Уникальный индекс по trial_username — авторитетная защита от
// дублирования имён: проверка существования перед вставкой лишь
// быстрый путь, гонка check-then-insert завершится ошибкой вставки.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с заявками и пользователями.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'trials'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table trials missing or query error: %w", err)
	}
	return nil
}
