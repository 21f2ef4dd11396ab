package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/matzehuels/pipewright/pkg/cache"
	"github.com/matzehuels/pipewright/pkg/dag"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/observability"
	"github.com/matzehuels/pipewright/pkg/submit"
)

// Messages returned in {"error": ...} bodies.
const (
	errMissingPipeline = "Missing form field 'pipeline'"
	errInvalidJSON     = "Invalid JSON format for pipeline data"
)

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"Ping": "Pong"})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hooks := observability.Validation()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		hooks.OnParseError(ctx, "form")
		writeError(w, http.StatusBadRequest, "Could not read form data")
		return
	}
	raw, ok := r.PostForm[submit.FormField]
	if !ok || len(raw) == 0 {
		hooks.OnParseError(ctx, "missing_field")
		writeError(w, http.StatusUnprocessableEntity, errMissingPipeline)
		return
	}
	doc := []byte(raw[0])

	key := cache.ParseKey(doc)
	if res, ok := s.cached(ctx, key); ok {
		writeJSON(w, http.StatusOK, res)
		return
	}

	start := time.Now()
	p, err := graph.Unmarshal(doc)
	if err != nil {
		hooks.OnParseError(ctx, "invalid_json")
		s.logger.Debug("rejected pipeline", "err", err)
		writeError(w, http.StatusBadRequest, errInvalidJSON)
		return
	}
	res := Analyse(p)
	hooks.OnParse(ctx, res.NumNodes, res.NumEdges, res.IsDAG, time.Since(start))

	s.store(ctx, key, res)
	writeJSON(w, http.StatusOK, res)
}

// Analyse counts nodes and valid edges and checks the valid edges for a
// cycle. Edges whose source or target is not a node are ignored.
func Analyse(p graph.Pipeline) submit.Result {
	g, skipped := dag.FromPipeline(p)
	return submit.Result{
		NumNodes: len(p.Nodes),
		NumEdges: len(p.Edges) - skipped,
		IsDAG:    g.IsAcyclic(),
	}
}

func (s *Server) cached(ctx context.Context, key string) (submit.Result, bool) {
	hooks := observability.Cache()
	data, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", "err", err)
		return submit.Result{}, false
	}
	if !hit {
		hooks.OnCacheMiss(ctx, cache.KeyTypeParse)
		return submit.Result{}, false
	}
	var res submit.Result
	if err := json.Unmarshal(data, &res); err != nil {
		s.logger.Warn("dropping corrupt cache entry", "key", key, "err", err)
		_ = s.cache.Delete(ctx, key)
		return submit.Result{}, false
	}
	hooks.OnCacheHit(ctx, cache.KeyTypeParse)
	return res, true
}

func (s *Server) store(ctx context.Context, key string, res submit.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cache.KeyTypeParse, len(data))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
