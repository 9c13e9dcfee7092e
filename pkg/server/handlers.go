package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/japaniel/morphan/pkg/analysis"
	"github.com/japaniel/morphan/pkg/db"
	"github.com/japaniel/morphan/pkg/format"
	"github.com/japaniel/morphan/pkg/morph"
)

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Text string `json:"text"`
	// POSTags overrides the server's tag set: a preset name or a comma list.
	POSTags string `json:"posTags,omitempty"`
}

// AnalysisDetail is the body of GET /api/analyses/{id}.
type AnalysisDetail struct {
	db.AnalysisSummary
	format.Response
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, CodeTooLarge, "request body too large")
			return
		}
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	tags := s.analyzer.Tags()
	if req.POSTags != "" {
		parsed, err := analysis.ParsePOSTagSet(req.POSTags)
		if err != nil {
			WriteError(w, http.StatusBadRequest, CodeInvalidConfig, err.Error())
			return
		}
		tags = parsed
	}

	res, err := s.analyzer.AnalyzeWithTags(r.Context(), req.Text, tags)
	if err != nil {
		var tokErr *morph.TokenizationError
		if errors.As(err, &tokErr) {
			s.logger.Warn("tokenization failed", "error", err, "request_id", GetRequestID(r.Context()))
			WriteError(w, http.StatusInternalServerError, CodeTokenization, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}

	resp := format.NewResponse(res, s.gloss)
	if s.db != nil {
		id, err := s.save(tags.String(), req.Text, res)
		if err != nil {
			s.logger.Error("save analysis", "error", err, "request_id", GetRequestID(r.Context()))
			WriteError(w, http.StatusInternalServerError, CodeInternal, "failed to save analysis")
			return
		}
		resp.AnalysisID = id
	}
	WriteJSON(w, resp, http.StatusOK)
}

func (s *Server) save(tags, text string, res analysis.Result) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()
	id, err := db.SaveAnalysis(tx, 0, tags, utf8.RuneCountInString(text), res)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		WriteError(w, http.StatusNotFound, CodeUnavailable, "history is not enabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	list, err := db.ListAnalyses(s.db, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	WriteJSON(w, list, http.StatusOK)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		WriteError(w, http.StatusNotFound, CodeUnavailable, "history is not enabled")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid analysis id")
		return
	}
	summary, res, err := db.GetAnalysis(s.db, id)
	if errors.Is(err, db.ErrNotFound) {
		WriteError(w, http.StatusNotFound, CodeNotFound, "analysis not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	resp := format.NewResponse(res, s.gloss)
	resp.AnalysisID = id
	WriteJSON(w, AnalysisDetail{AnalysisSummary: summary, Response: resp}, http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			WriteJSON(w, map[string]string{"status": "degraded", "db": err.Error()}, http.StatusServiceUnavailable)
			return
		}
		status["db"] = "ok"
	}
	WriteJSON(w, status, http.StatusOK)
}
