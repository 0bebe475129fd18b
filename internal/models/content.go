package models

import "time"

// ContentItem аудиотрек криэйтора. Движок квот меняет только видимость,
// сами файлы никогда не удаляются.
type ContentItem struct {
	ID            string     // Уникальный идентификатор трека
	OwnerUID      string     // Аккаунт-владелец
	Title         string     // Название трека
	FileSizeBytes int64      // Размер файла в байтах
	PlayCount     int64      // Количество прослушиваний
	CreatedAt     time.Time  // Дата загрузки
	DeletedAt     *time.Time // Маркер мягкого удаления
	IsPublic      bool       // Видимость трека
}

// Post пост криэйтора в ленте. Прямой связи с треками нет,
// поэтому свипер применяет к постам только грубое решение на весь аккаунт.
type Post struct {
	ID        string
	OwnerUID  string
	IsPrivate bool
	DeletedAt *time.Time
}
