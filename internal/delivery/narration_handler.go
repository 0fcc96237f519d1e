package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"

	"github.com/Vovarama1992/scene_narrator/internal/audio"
	"github.com/Vovarama1992/scene_narrator/internal/domain"
)

const (
	maxUploadBytes = 20 << 20

	msgUnsupportedType = "Only JPEG or PNG files are supported."
	msgAudioNotFound   = "Audio file not found."
)

type Narrator interface {
	DescribeCamera(ctx context.Context, opts domain.Options) (*domain.Result, error)
	DescribeUpload(ctx context.Context, blob *domain.ImageBlob, opts domain.Options) (*domain.Result, error)
	ProcessUpload(ctx context.Context, blob *domain.ImageBlob, voice string) (*domain.Result, error)
}

type AudioIndex interface {
	Latest() (*audio.Artifact, bool)
	Get(id string) (*audio.Artifact, bool)
}

type NarrationHandler struct {
	narrator Narrator
	audio    AudioIndex
	delivery domain.Delivery
	log      *logger.ZapLogger
}

// NewNarrationHandler: delivery is the strategy used by the describe endpoints.
func NewNarrationHandler(narrator Narrator, audio AudioIndex, delivery domain.Delivery, log *logger.ZapLogger) *NarrationHandler {
	return &NarrationHandler{
		narrator: narrator,
		audio:    audio,
		delivery: delivery,
		log:      log,
	}
}

// GET /describe-ip-camera/
func (h *NarrationHandler) DescribeCamera(w http.ResponseWriter, r *http.Request) {
	res, err := h.narrator.DescribeCamera(r.Context(), domain.Options{
		Voice:    r.URL.Query().Get("voice"),
		Delivery: h.delivery,
	})
	if err != nil {
		h.fail(w, "Error processing the IP camera image: ", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /describe-image/
func (h *NarrationHandler) DescribeImage(w http.ResponseWriter, r *http.Request) {
	blob, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	res, err := h.narrator.DescribeUpload(r.Context(), blob, domain.Options{
		Voice:    r.URL.Query().Get("voice"),
		Delivery: h.delivery,
	})
	if err != nil {
		h.fail(w, "Error processing the image: ", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /process_image/
func (h *NarrationHandler) ProcessImage(w http.ResponseWriter, r *http.Request) {
	blob, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	res, err := h.narrator.ProcessUpload(r.Context(), blob, r.URL.Query().Get("voice"))
	if err != nil {
		h.fail(w, "An error occurred: ", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /get-audio/
func (h *NarrationHandler) GetAudio(w http.ResponseWriter, r *http.Request) {
	a, ok := h.audio.Latest()
	if !ok {
		writeDetail(w, http.StatusNotFound, msgAudioNotFound)
		return
	}
	h.serveAudio(w, r, a)
}

// GET /get-audio/{id}
func (h *NarrationHandler) GetAudioByID(w http.ResponseWriter, r *http.Request) {
	a, ok := h.audio.Get(chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, msgAudioNotFound)
		return
	}
	h.serveAudio(w, r, a)
}

func (h *NarrationHandler) serveAudio(w http.ResponseWriter, r *http.Request, a *audio.Artifact) {
	f, err := os.Open(a.Path)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "audio artifact missing on disk", Error: err})
		writeDetail(w, http.StatusNotFound, msgAudioNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `attachment; filename="description.mp3"`)
	http.ServeContent(w, r, "description.mp3", a.CreatedAt, f)
}

// readUpload parses the multipart "file" part. Spill files of the form are
// removed before it returns.
func (h *NarrationHandler) readUpload(w http.ResponseWriter, r *http.Request) (*domain.ImageBlob, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "invalid multipart", Error: err})
		writeDetail(w, http.StatusBadRequest, "invalid multipart: "+err.Error())
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "missing file", Error: err})
		writeDetail(w, http.StatusBadRequest, "missing file: "+err.Error())
		return nil, false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := domain.CheckContentType(contentType); err != nil {
		writeDetail(w, http.StatusBadRequest, msgUnsupportedType)
		return nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "failed to read file: "+err.Error())
		return nil, false
	}

	return &domain.ImageBlob{
		Data:        data,
		ContentType: contentType,
		Source:      domain.SourceUpload,
	}, true
}

func (h *NarrationHandler) fail(w http.ResponseWriter, prefix string, err error) {
	status := statusFor(err)
	level := "error"
	if status < http.StatusInternalServerError {
		level = "warn"
	}
	h.log.Log(logger.LogEntry{Level: level, Message: "narration request failed", Service: "scene_narrator", Error: err})

	if errors.Is(err, domain.ErrInvalidInput) {
		writeDetail(w, status, msgUnsupportedType)
		return
	}
	writeDetail(w, status, fmt.Sprintf("%s%v", prefix, err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
