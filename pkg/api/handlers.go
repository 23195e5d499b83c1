package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxBodyBytes     = 256 << 20
)

type listResponse struct {
	Collection model.Collection `json:"collection"`
	Total      int              `json:"total"`
	Offset     int              `json:"offset"`
	Limit      int              `json:"limit"`
	Records    []model.Record   `json:"records"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"collections": s.store.Stats(),
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return v, nil
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	c := collectionFrom(r)

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, total, err := s.store.List(r.Context(), c, offset, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}

	writeJSON(w, http.StatusOK, listResponse{
		Collection: c,
		Total:      total,
		Offset:     offset,
		Limit:      limit,
		Records:    records,
	})
}

// decodeDocument validates raw against the collection schema, when enabled,
// and decodes it into a record
func (s *Server) decodeDocument(c model.Collection, raw []byte) (model.Record, error) {
	if s.validator != nil {
		if err := s.validator.ValidateRaw(c, raw); err != nil {
			return nil, err
		}
	}
	return model.DecodeRecord(c, raw)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	c := collectionFrom(r)

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	rec, err := s.decodeDocument(c, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.Create(r.Context(), rec); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) batch(w http.ResponseWriter, r *http.Request) {
	c := collectionFrom(r)

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, status, err := s.insertBatch(r.Context(), c, raw)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// insertBatch decodes a JSON array of documents and inserts the valid ones.
// Documents that fail validation or decoding are reported by their index in
// the array alongside the store's own rejections. A non-nil error means the
// body as a whole was rejected, with the HTTP status to answer.
func (s *Server) insertBatch(ctx context.Context, c model.Collection, raw []byte) (*model.BatchResult, int, error) {
	var docs []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &docs); err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("request body must be a JSON array: %w", err)
	}
	if s.cfg.MaxBatchSize > 0 && len(docs) > s.cfg.MaxBatchSize {
		return nil, http.StatusRequestEntityTooLarge,
			fmt.Errorf("batch of %d records exceeds the limit of %d", len(docs), s.cfg.MaxBatchSize)
	}

	result := &model.BatchResult{}
	valid := make([]model.Record, 0, len(docs))
	positions := make([]int, 0, len(docs))

	for i, doc := range docs {
		rec, err := s.decodeDocument(c, doc)
		if err != nil {
			result.AddFailure(i, nil, err)
			continue
		}
		valid = append(valid, rec)
		positions = append(positions, i)
	}

	stored, err := s.store.BatchInsert(ctx, c, valid)
	if err != nil {
		return nil, statusFor(err), err
	}

	result.InsertedCount = stored.InsertedCount
	for _, f := range stored.FailedRecords {
		f.Index = positions[f.Index]
		result.FailedCount++
		result.FailedRecords = append(result.FailedRecords, f)
	}
	sort.SliceStable(result.FailedRecords, func(i, j int) bool {
		return result.FailedRecords[i].Index < result.FailedRecords[j].Index
	})

	if result.FailedCount > 0 {
		s.logger.Debug("Batch partially rejected",
			zap.String("collection", string(c)),
			zap.Int("inserted", result.InsertedCount),
			zap.Int("failed", result.FailedCount))
	}

	return result, http.StatusCreated, nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.Get(r.Context(), collectionFrom(r), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch map[string]interface{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	if len(patch) == 0 {
		writeError(w, http.StatusBadRequest, "patch is empty")
		return
	}

	rec, err := s.store.Update(r.Context(), collectionFrom(r), id, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.Delete(r.Context(), collectionFrom(r), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
