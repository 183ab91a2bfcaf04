package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"quizforge/internal/extract"
	"quizforge/internal/jobs"
	"quizforge/internal/pipeline"
	"quizforge/internal/quiz"
	"quizforge/internal/storage"
	"quizforge/internal/util"
	"quizforge/internal/vector"
)

const (
	multipartMemory  = 32 << 20
	multipartSlack   = 1 << 20
	snippetRunes     = 240
	defaultQueryTopK = 5
)

type Deps struct {
	Layout         *storage.Layout
	Registry       *jobs.Registry
	Intake         *pipeline.Intake
	Collections    *vector.Collections
	Generator      *quiz.Generator
	Evaluator      *quiz.Evaluator
	Decoders       *extract.Registry
	MaxUploadBytes int64
	LLMProviders   []string
}

type Server struct {
	layout      *storage.Layout
	registry    *jobs.Registry
	intake      *pipeline.Intake
	collections *vector.Collections
	generator   *quiz.Generator
	evaluator   *quiz.Evaluator
	decoders    *extract.Registry
	maxUpload   int64
	llmNames    []string
}

func NewServer(d Deps) *Server {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = pipeline.DefaultMaxUploadBytes
	}
	return &Server{
		layout:      d.Layout,
		registry:    d.Registry,
		intake:      d.Intake,
		collections: d.Collections,
		generator:   d.Generator,
		evaluator:   d.Evaluator,
		decoders:    d.Decoders,
		maxUpload:   d.MaxUploadBytes,
		llmNames:    d.LLMProviders,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /uploads", s.handleUpload)
	mux.HandleFunc("GET /jobs/{id}", s.handleJobStatus)
	mux.HandleFunc("DELETE /jobs/{id}", s.handleDeleteJob)
	mux.HandleFunc("GET /jobs/{id}/result", s.handleJobResult)
	mux.HandleFunc("GET /jobs/{id}/docsets", s.handleDocsets)
	mux.HandleFunc("POST /jobs/{id}/query", s.handleQuery)
	mux.HandleFunc("POST /quizzes", s.handleQuiz)
	mux.HandleFunc("POST /evaluate_short_answer", s.handleEvaluate)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"ok":                        true,
		"jobs":                      len(s.registry.List()),
		"llm_providers":             s.llmNames,
		"quiz_parse_failures":       s.generator.ParseFailures(),
		"evaluation_parse_failures": s.evaluator.ParseFailures(),
	}
	if s.decoders != nil {
		body["decoders"] = map[string]any{
			"extensions":  s.decoders.Extensions(),
			"unavailable": s.decoders.Missing(),
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, pipeline.ErrUploadTooLarge)
			return
		}
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = allFiles(r.MultipartForm.File)
	}
	uploads := make([]pipeline.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("open upload %s: %w", fh.Filename, err))
			return
		}
		defer f.Close()
		uploads = append(uploads, pipeline.Upload{Name: fh.Filename, Body: f})
	}

	acc, err := s.intake.Accept(r.Context(), uploads)
	if err != nil {
		writeError(w, err)
		return
	}
	names := make([]string, 0, len(acc.Files))
	for _, f := range acc.Files {
		names = append(names, f.Name)
	}
	w.Header().Set("Location", "/jobs/"+acc.JobID)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    acc.JobID,
		"filenames": names,
		"files":     acc.Files,
	})
}

// allFiles flattens every file field, ordered by field name.
func allFiles(m map[string][]*multipart.FileHeader) []*multipart.FileHeader {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []*multipart.FileHeader
	for _, k := range keys {
		out = append(out, m[k]...)
	}
	return out
}

type jobStatusResponse struct {
	Status        jobs.Status `json:"status"`
	Progress      int         `json:"progress"`
	ResultURL     *string     `json:"resultUrl"`
	Error         *string     `json:"error"`
	ChunksIndexed int         `json:"chunks_indexed"`
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	j, ok := s.registry.Get(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", pipeline.ErrJobNotFound, id))
		return
	}
	resp := jobStatusResponse{Status: j.Status, Progress: j.Progress, ChunksIndexed: j.ChunksIndexed}
	if j.ResultRef != "" {
		u := "/jobs/" + j.ID + "/result"
		resp.ResultURL = &u
	}
	if j.Status == jobs.StatusFailed {
		msg := j.Error
		resp.Error = &msg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	path, err := pipeline.ResultPath(s.registry, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, path)
}

// jobIndex returns the docset of a job id. Ids that intake could not have
// issued are reported as unknown jobs.
func (s *Server) jobIndex(id string) (*vector.Index, error) {
	if err := storage.ValidateJobID(id); err != nil {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrJobNotFound, err)
	}
	return s.collections.Index(id)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ix, err := s.jobIndex(id)
	if err != nil {
		writeError(w, err)
		return
	}
	dir, err := s.layout.JobDir(id)
	if err != nil {
		writeError(w, err)
		return
	}
	j, known := s.registry.Get(id)
	if known && !j.Status.Terminal() {
		writeErr(w, http.StatusConflict, fmt.Errorf("job %s is still %s", id, j.Status))
		return
	}
	chunks, err := ix.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if !known && chunks == 0 && !util.DirExists(dir) {
		writeError(w, fmt.Errorf("%w: %s", pipeline.ErrJobNotFound, id))
		return
	}
	if err := ix.DeleteCollection(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	if err := s.layout.Cleanup(id); err != nil {
		writeError(w, err)
		return
	}
	s.registry.Evict(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDocsets(w http.ResponseWriter, r *http.Request) {
	ix, err := s.jobIndex(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: limit must be a non-negative integer", util.ErrInvalidArgument))
			return
		}
		limit = n
	}
	texts, metas, err := ix.GetAll(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(texts) == 0 {
		writeErr(w, http.StatusNotFound, errors.New("docsets not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"docsets": texts, "metas": metas})
}

type queryHit struct {
	Source  string  `json:"source"`
	Chunk   int     `json:"chunk"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
	Text    string  `json:"text"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		TopK     int    `json:"topK"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: question is required", util.ErrInvalidArgument))
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultQueryTopK
	}
	ix, err := s.jobIndex(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	hits, err := ix.Query(r.Context(), req.Question, req.TopK)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]queryHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, queryHit{
			Source:  h.Metadata.Source,
			Chunk:   h.Metadata.Chunk,
			Score:   h.Score,
			Snippet: util.Snippet(h.Text, req.Question, snippetRunes),
			Text:    h.Text,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": out})
}

type quizRequest struct {
	JobID        string   `json:"jobId"`
	NumQuestions int      `json:"numQuestions"`
	Types        []string `json:"types"`
	TopicHint    string   `json:"topicHint"`
	Seed         *uint64  `json:"seed"`
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.JobID = strings.TrimSpace(req.JobID)
	if req.JobID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: jobId is required", util.ErrInvalidArgument))
		return
	}
	ix, err := s.jobIndex(req.JobID)
	if err != nil {
		writeError(w, err)
		return
	}
	types := make([]quiz.QuestionType, 0, len(req.Types))
	for _, t := range req.Types {
		types = append(types, quiz.QuestionType(strings.TrimSpace(t)))
	}
	q, err := s.generator.GenerateForDocset(r.Context(), ix, quiz.Request{
		NumQuestions: req.NumQuestions,
		Types:        types,
		TopicHint:    req.TopicHint,
		Seed:         req.Seed,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type evaluateRequest struct {
	UserAnswer       string         `json:"userAnswer"`
	LegacyUserAnswer string         `json:"user_answer"`
	Question         *quiz.Question `json:"question"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if req.Question == nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: question is required", util.ErrInvalidArgument))
		return
	}
	answer := req.UserAnswer
	if answer == "" {
		answer = req.LegacyUserAnswer
	}
	ev, err := s.evaluator.Evaluate(r.Context(), answer, *req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
