package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// NewRouter builds the full HTTP surface. rules may be nil when no database is
// configured.
func NewRouter(h *NarrationHandler, rules *TextRuleHandler, rateLimit int) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	r.Use(middleware.StripSlashes)

	RegisterRoutes(r, h, rateLimit)

	if rules != nil {
		r.With(httputil.RecoverMiddleware).Get("/text-rules", rules.List)
	}

	r.With(httputil.RecoverMiddleware).Get("/ping", Ping)
	return r
}

// RegisterRoutes mounts the narration endpoints. rateLimit is requests per
// minute per client IP on the pipeline endpoints, 0 disables limiting.
func RegisterRoutes(r chi.Router, h *NarrationHandler, rateLimit int) {
	r.Group(func(pr chi.Router) {
		pr.Use(httputil.RecoverMiddleware)

		// --- пайплайн ---
		pr.Group(func(lr chi.Router) {
			if rateLimit > 0 {
				lr.Use(httprate.LimitByIP(rateLimit, time.Minute))
			}
			lr.Get("/describe-ip-camera", h.DescribeCamera)
			lr.Post("/describe-image", h.DescribeImage)
			lr.Post("/process_image", h.ProcessImage)
		})

		// --- аудио ---
		pr.Get("/get-audio", h.GetAudio)
		pr.Get("/get-audio/{id}", h.GetAudioByID)
	})
}

func Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
