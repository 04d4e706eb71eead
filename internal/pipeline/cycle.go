package pipeline

import (
	"sync"
	"time"
)

type State string

const (
	StateIdle         State = "idle"
	StateIngesting    State = "ingesting"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateSynthesizing State = "synthesizing"
	StateReady        State = "ready"
	StateFailed       State = "failed"
)

type Source string

const (
	SourceAudio Source = "audio"
	SourceText  Source = "text"
)

// Cycle — одна попытка пройти путь от входа (аудио или текст) до озвученного ответа.
type Cycle struct {
	ID          string     `json:"id"`
	Source      Source     `json:"source"`
	State       State      `json:"state"`
	FailedStage State      `json:"failedStage,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Transcript  string     `json:"transcript,omitempty"`
	Reply       string     `json:"reply,omitempty"`
	AudioBytes  int        `json:"audioBytes,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// registry держит последние limit циклов в памяти для выдачи по ID.
type registry struct {
	mu     sync.RWMutex
	limit  int
	order  []string
	cycles map[string]*Cycle
}

func newRegistry(limit int) *registry {
	if limit <= 0 {
		limit = 1
	}
	return &registry{limit: limit, cycles: make(map[string]*Cycle, limit)}
}

func (r *registry) add(c *Cycle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cycles[c.ID] = c
	r.order = append(r.order, c.ID)
	for len(r.order) > r.limit {
		delete(r.cycles, r.order[0])
		r.order = r.order[1:]
	}
}

// update применяет fn и возвращает копию цикла после изменения.
func (r *registry) update(id string, fn func(*Cycle)) Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cycles[id]
	if !ok {
		return Cycle{ID: id}
	}
	fn(c)
	return *c
}

func (r *registry) get(id string) (Cycle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cycles[id]
	if !ok {
		return Cycle{}, false
	}
	return *c, true
}

func (r *registry) latest() (Cycle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return Cycle{}, false
	}
	return *r.cycles[r.order[len(r.order)-1]], true
}
