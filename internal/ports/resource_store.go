package ports

import (
	"context"
	"io"
)

// Slot — фиксированное имя ресурса. Каждый цикл перезаписывает слот целиком.
type Slot string

const (
	SlotRecording Slot = "recording.wav"
	SlotVoiced    Slot = "voicedby.wav"
)

// ResourceStore хранит ровно два бинарных ресурса: последнюю запись и последний озвученный ответ.
type ResourceStore interface {
	// Put атомарно заменяет содержимое слота: читатель видит либо старые, либо новые байты.
	Put(ctx context.Context, slot Slot, data []byte) error
	// Open возвращает поток и точный размер. ErrNotFound, если слот ещё не записывался.
	Open(ctx context.Context, slot Slot) (io.ReadCloser, int64, error)
}
