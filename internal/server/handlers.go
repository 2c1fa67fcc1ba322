package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/dataset"
	"github.com/raaihank/stt-pii-datagen/internal/noise"
	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

const (
	stageNoisy = "noisy"
	stageClean = "clean"

	defaultPreviewCount = 10
)

var errBadRequest = errors.New("bad request")

// SplitInfo describes one split's pools.
type SplitInfo struct {
	Name      string             `json:"name"`
	Templates int                `json:"templates"`
	Values    map[pool.Label]int `json:"values"`
}

// ExamplesResponse is the body of a preview request.
type ExamplesResponse struct {
	Split   string           `json:"split"`
	Seed    int64            `json:"seed"`
	Stage   string           `json:"stage"`
	Records []dataset.Record `json:"records"`
}

// NoisifyResponse is the body of a single value noisification.
type NoisifyResponse struct {
	Label pool.Label `json:"label"`
	Seed  int64      `json:"seed"`
	Value string     `json:"value"`
	Noisy string     `json:"noisy"`
}

func (s *Server) handleSplits(w http.ResponseWriter, r *http.Request) {
	names := s.provider.Splits()
	splits := make([]SplitInfo, 0, len(names))
	for _, name := range names {
		pools, templates, err := s.provider.Pools(name)
		if err != nil {
			s.logger.Error("Failed to read split pools", zap.String("split", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read pools")
			return
		}
		values := make(map[pool.Label]int, len(pools))
		for label, v := range pools {
			values[label] = len(v)
		}
		splits = append(splits, SplitInfo{Name: name, Templates: len(templates), Values: values})
	}
	writeJSON(w, http.StatusOK, map[string]any{"splits": splits})
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	req, err := s.parsePreview(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	src := s.newRecordSource(req)
	records := make([]dataset.Record, 0, req.count)
	for len(records) < req.count {
		rec, ok, err := src.next()
		if err != nil {
			s.logger.WithRequestID(getRequestID(r.Context())).Error("Preview generation failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "generation failed")
			return
		}
		if !ok {
			break
		}
		records = append(records, rec)
	}

	writeJSON(w, http.StatusOK, ExamplesResponse{
		Split:   req.split,
		Seed:    req.seed,
		Stage:   req.stage,
		Records: records,
	})
}

func (s *Server) handleNoisify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	label, err := pool.ParseLabel(q.Get("label"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	value := q.Get("value")
	if value == "" {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	seed, err := int64Param(q, "seed", 0)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NoisifyResponse{
		Label: label,
		Seed:  seed,
		Value: value,
		Noisy: s.generator.Noisify(noise.NewRand(seed), value, label),
	})
}

type previewRequest struct {
	split    string
	seed     int64
	count    int
	stage    string
	idOffset int
}

// parsePreview reads the split, seed, count and stage of a preview or stream
// request. The seed defaults to the configured seed of the split so a bare
// request shows the start of what generate would write.
func (s *Server) parsePreview(r *http.Request) (previewRequest, error) {
	req := previewRequest{split: mux.Vars(r)["split"], stage: stageNoisy}
	if _, _, err := s.provider.Pools(req.split); err != nil {
		return req, err
	}

	q := r.URL.Query()
	var defaultSeed int64
	if spec, ok := s.config.Generation.Spec(req.split); ok {
		defaultSeed = spec.Seed
		req.idOffset = spec.IDOffset
	}
	var err error
	if req.seed, err = int64Param(q, "seed", defaultSeed); err != nil {
		return req, err
	}

	maxCount := s.config.Server.MaxPreviewCount
	count, err := int64Param(q, "count", int64(min(defaultPreviewCount, maxCount)))
	if err != nil {
		return req, err
	}
	if count < 1 || count > int64(maxCount) {
		return req, fmt.Errorf("%w: count must be between 1 and %d", errBadRequest, maxCount)
	}
	req.count = int(count)

	if stage := q.Get("stage"); stage != "" {
		if stage != stageNoisy && stage != stageClean {
			return req, fmt.Errorf("%w: stage must be %s or %s", errBadRequest, stageNoisy, stageClean)
		}
		req.stage = stage
	}
	return req, nil
}

// recordSource yields preview records with the same id and attempt rules as
// the dataset writer.
type recordSource struct {
	server      *Server
	req         previewRequest
	rng         *rand.Rand
	attempt     int
	maxAttempts int
}

func (s *Server) newRecordSource(req previewRequest) *recordSource {
	return &recordSource{
		server:      s,
		req:         req,
		rng:         noise.NewRand(req.seed),
		maxAttempts: max(1, s.config.Generation.MaxAttemptFactor) * req.count,
	}
}

// next returns the next non-degenerate record. ok is false once the attempt
// budget is spent.
func (src *recordSource) next() (rec dataset.Record, ok bool, err error) {
	for src.attempt < src.maxAttempts {
		src.attempt++
		id := fmt.Sprintf("utt_%04d", src.attempt+src.req.idOffset)

		if src.req.stage == stageClean {
			sentence, err := src.server.assembler.Assemble(src.rng, src.req.split)
			if err != nil {
				return rec, false, err
			}
			if sentence.Text == "" || len(sentence.Entities) == 0 {
				continue
			}
			return dataset.NewCleanRecord(id, sentence), true, nil
		}

		ex, err := src.server.generator.Generate(src.rng, src.req.split, id)
		if err != nil {
			return rec, false, err
		}
		if ex.Degenerate() {
			continue
		}
		return dataset.NewRecord(ex), true, nil
	}
	return rec, false, nil
}

func int64Param(q url.Values, name string, fallback int64) (int64, error) {
	raw := q.Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return v, nil
}

func writeRequestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pool.ErrUnknownSplit):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
