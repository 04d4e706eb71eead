package pipeline

import "sync"

// Readiness — флаг «озвученный ответ последнего цикла готов к скачиванию».
// Опрашивается клиентом, чтение состояние не меняет.
type Readiness struct {
	mu    sync.RWMutex
	ready bool
}

func (r *Readiness) Set(ready bool) {
	r.mu.Lock()
	r.ready = ready
	r.mu.Unlock()
}

func (r *Readiness) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}
