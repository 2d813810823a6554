package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/metrics"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/queue"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/separation"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/storage"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	msgInvalidStems = "Invalid number of stems. Only 2 or 5 stems are supported."
	msgNoFilePart   = "No file part"
	msgNoSelected   = "No selected file"

	defaultMaxUpload = 100 << 20
)

type API struct {
	Storage        storage.Storage
	Separator      separation.Separator
	Events         queue.Publisher // optional
	MaxUploadBytes int64
}

type separateResponse struct {
	Status      string                 `json:"status"`
	OutputPaths separation.StemFileMap `json:"output_paths"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) RegisterRoutes(r chi.Router) {
	r.Post("/separate", a.SeparateHandler)
}

// SeparateHandler stages an uploaded file, runs the separator on it and
// reports which stem files exist afterwards.
func (a *API) SeparateHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := a.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	parseErr := r.ParseMultipartForm(limit)
	var tooLarge *http.MaxBytesError
	if errors.As(parseErr, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds "+strconv.FormatInt(limit, 10)+" bytes")
		return
	}
	if errors.Is(parseErr, http.ErrNotMultipart) {
		parseErr = nil
	}

	// 1. stems
	count, err := separation.ParseStemCount(r.PostFormValue("stems"))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidStems)
		return
	}
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form: "+parseErr.Error())
		return
	}

	// 2. file part, 3. filename
	file, header, err := r.FormFile("file")
	if err != nil {
		// a part without a filename is parsed as a plain value
		if r.MultipartForm != nil && len(r.MultipartForm.Value["file"]) > 0 {
			writeError(w, http.StatusBadRequest, msgNoSelected)
			return
		}
		writeError(w, http.StatusBadRequest, msgNoFilePart)
		return
	}
	defer file.Close()

	name, err := storage.CleanFilename(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoSelected)
		return
	}

	inputPath, n, err := a.Storage.SaveUpload(file, name)
	if err != nil {
		log.Error().Err(err).Str("filename", name).Msg("save upload failed")
		writeError(w, http.StatusInternalServerError, "failed to save file: "+err.Error())
		return
	}
	metrics.UploadBytes.Observe(float64(n))

	stemsLabel := strconv.Itoa(int(count))
	metrics.SeparationsInFlight.Inc()
	start := time.Now()
	// a client hanging up must not kill spleeter halfway through output/<basename>/;
	// the separator's own timeout still applies
	workCtx := context.WithoutCancel(ctx)
	err = a.Separator.Separate(workCtx, inputPath, a.Storage.OutputDir(), count)
	took := time.Since(start)
	metrics.SeparationsInFlight.Dec()
	metrics.SeparationDuration.WithLabelValues(stemsLabel).Observe(took.Seconds())

	if err != nil {
		metrics.SeparationsTotal.WithLabelValues(stemsLabel, "failed").Inc()
		log.Error().Err(err).Str("input", inputPath).Int("stems", int(count)).Msg("separation failed")
		writeError(w, http.StatusInternalServerError, "Error separating file: "+err.Error())
		return
	}
	metrics.SeparationsTotal.WithLabelValues(stemsLabel, "success").Inc()

	paths := separation.ExistingStems(separation.OutputDir(a.Storage.OutputDir(), name), count)
	metrics.StemsReturned.WithLabelValues(stemsLabel).Observe(float64(len(paths)))

	if a.Events != nil {
		evt := queue.NewSeparationEvent(name, int(count), paths, took)
		if err := a.Events.PublishSeparation(workCtx, evt); err != nil {
			log.Error().Err(err).Str("event", evt.ID).Msg("failed to publish separation event")
		} else {
			log.Info().Str("event", evt.ID).Msg("published separation event")
		}
	}

	log.Info().Str("input", inputPath).Int64("size", n).Int("stems", len(paths)).Dur("took", took).Msg("separated file")
	writeJSON(w, http.StatusOK, separateResponse{Status: "success", OutputPaths: paths})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
