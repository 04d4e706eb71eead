package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

func RegisterRoutes(
	r chi.Router,
	h *VoiceHandler,
	metrics http.Handler,
	requestsPerMinute int,
) {
	r.Group(func(pr chi.Router) {
		pr.Use(httputil.RecoverMiddleware)

		// --- цикл ---
		pr.Group(func(lr chi.Router) {
			if requestsPerMinute > 0 {
				lr.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))
			}
			lr.Post("/uploadAudio", h.UploadAudio)
			lr.Post("/sendText", h.SendText)
		})

		// --- опрос ---
		pr.Get("/checkVariable", h.CheckVariable)
		pr.Get("/broadcastAudio", h.BroadcastAudio)
		pr.Get("/cycles/latest", h.LatestCycle)
		pr.Get("/cycles/{id}", h.GetCycle)
	})

	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("pong"))
	})

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
}
