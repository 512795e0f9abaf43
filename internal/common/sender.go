package common

import "context"

// Sender отправляет текстовое сообщение в чат. Реализуется ботом,
// обработчики модулей зависят только от этого интерфейса.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string)
}

// PhotoSender дополнительно умеет отправлять фото по file_id Telegram.
type PhotoSender interface {
	Sender
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string)
}
