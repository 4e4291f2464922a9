// Package models содержит доменные структуры сервиса: пользователей,
// подписки, события платежей и контент (инсайты и живые занятия).
package models

import "time"

// Роли пользователей.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID             string    // Уникальный идентификатор пользователя
	Email           string    // Электронная почта (уникальная)
	Name            string    // Отображаемое имя
	PasswordHash    string    // Хэш пароля; пустой для федеративного входа
	Role            string    // Роль пользователя, USER или ADMIN
	DailyEmailOptIn bool      // Согласие на ежедневную рассылку
	CreatedAt       time.Time // Дата регистрации
}
