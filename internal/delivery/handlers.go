package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voice_roundtrip/internal/pipeline"
	"github.com/Vovarama1992/voice_roundtrip/internal/ports"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

type Pipeline interface {
	Ingest(ctx context.Context, audio []byte) (pipeline.Cycle, error)
	SubmitText(ctx context.Context, text string) (pipeline.Cycle, error)
	Ready() bool
	Cycle(id string) (pipeline.Cycle, bool)
	Latest() (pipeline.Cycle, bool)
}

type VoiceHandler struct {
	pipeline  Pipeline
	store     ports.ResourceStore
	log       *logger.ZapLogger
	maxUpload int64
}

func NewVoiceHandler(p Pipeline, store ports.ResourceStore, log *logger.ZapLogger, maxUpload int64) *VoiceHandler {
	return &VoiceHandler{
		pipeline:  p,
		store:     store,
		log:       log,
		maxUpload: maxUpload,
	}
}

// UploadAudio — POST /uploadAudio. Отвечает транскриптом, озвучка идёт в фоне.
func (h *VoiceHandler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	audio, err := h.readAudio(w, r)
	if tooLarge := new(http.MaxBytesError); errors.As(err, &tooLarge) {
		http.Error(w, fmt.Sprintf("Audio exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "failed to read audio body", Service: "delivery", Error: err})
		http.Error(w, "Error receiving audio data", http.StatusBadRequest)
		return
	}

	c, err := h.pipeline.Ingest(r.Context(), audio)
	if err != nil {
		h.writeError(w, err, "No audio data received")
		return
	}

	w.Header().Set("X-Cycle-ID", c.ID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, c.Transcript)
}

// CheckVariable — GET /checkVariable.
func (h *VoiceHandler) CheckVariable(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ready": h.pipeline.Ready()})
}

// BroadcastAudio — GET /broadcastAudio: последний озвученный ответ.
func (h *VoiceHandler) BroadcastAudio(w http.ResponseWriter, r *http.Request) {
	rc, size, err := h.store.Open(r.Context(), ports.SlotVoiced)
	if errors.Is(err, ports.ErrNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "failed to open voiced audio", Service: "delivery", Error: err})
		http.Error(w, "Error reading audio", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", fmt.Sprint(size))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "audio stream interrupted", Service: "delivery", Error: err})
	}
}

// SendText — POST /sendText {"text": "..."}.
func (h *VoiceHandler) SendText(w http.ResponseWriter, r *http.Request) {
	text, err := readText(r)
	if err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.pipeline.SubmitText(r.Context(), text)
	if err != nil {
		h.writeError(w, err, "Text input required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"response":   c.Reply,
		"audioReady": c.State == pipeline.StateReady,
		"cycleId":    c.ID,
	})
}

// GetCycle — GET /cycles/{id}.
func (h *VoiceHandler) GetCycle(w http.ResponseWriter, r *http.Request) {
	c, ok := h.pipeline.Cycle(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "cycle not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// LatestCycle — GET /cycles/latest.
func (h *VoiceHandler) LatestCycle(w http.ResponseWriter, _ *http.Request) {
	c, ok := h.pipeline.Latest()
	if !ok {
		http.Error(w, "no cycles yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// writeError переводит ошибки пайплайна в статусы; детали провайдеров наружу не уходят.
func (h *VoiceHandler) writeError(w http.ResponseWriter, err error, emptyMsg string) {
	var serr *pipeline.StageError

	switch {
	case errors.Is(err, ports.ErrEmptyInput):
		http.Error(w, emptyMsg, http.StatusBadRequest)
	case errors.Is(err, pipeline.ErrBusy):
		w.Header().Set("Retry-After", "5")
		http.Error(w, "Another request is being processed, retry later", http.StatusServiceUnavailable)
	case errors.As(err, &serr) && serr.Retryable:
		w.Header().Set("Retry-After", "5")
		http.Error(w, serr.Reason(), http.StatusServiceUnavailable)
	case errors.Is(err, pipeline.ErrRecognition):
		http.Error(w, "Speech recognition failed", http.StatusInternalServerError)
	case errors.Is(err, pipeline.ErrGeneration):
		http.Error(w, "Error processing request: response generation failed", http.StatusInternalServerError)
	case errors.Is(err, pipeline.ErrSynthesis):
		http.Error(w, "Error processing request: speech synthesis failed", http.StatusInternalServerError)
	case errors.Is(err, pipeline.ErrIngestion):
		http.Error(w, "Error saving audio file", http.StatusInternalServerError)
	default:
		h.log.Log(logger.LogEntry{Level: "error", Message: "unexpected pipeline error", Service: "delivery", Error: err})
		http.Error(w, "Error processing request", http.StatusInternalServerError)
	}
}

// readAudio принимает и сырое тело, и multipart (поле audio или первый файл).
func (h *VoiceHandler) readAudio(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, fmt.Errorf("invalid multipart: %w", err)
	}
	fh := pickFile(r.MultipartForm)
	if fh == nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func pickFile(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	if files := form.File["audio"]; len(files) > 0 {
		return files[0]
	}
	for _, files := range form.File {
		if len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func readText(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		return r.FormValue("text"), nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return "", fmt.Errorf("invalid json: %w", err)
	}
	return req.Text, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
