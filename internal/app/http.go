package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"genekb/api/internal/archive"
	"genekb/api/internal/docstore"
	"genekb/api/internal/export"
	"genekb/api/internal/history"
	"genekb/api/internal/search"
	"genekb/api/internal/snapshot"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	searcher   *search.Service
	exporter   *export.Service
	snaps      *snapshot.Service
	artifacts  *archive.Store
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

// SetSearch wires the optional history search backend.
func (s *HTTPServer) SetSearch(searcher *search.Service) { s.searcher = searcher }

// SetExporter wires the history report renderer.
func (s *HTTPServer) SetExporter(exporter *export.Service) { s.exporter = exporter }

// SetSnapshots wires the per-gene snapshot archive.
func (s *HTTPServer) SetSnapshots(snaps *snapshot.Service) { s.snaps = snaps }

// SetArchive wires object storage for generated export artifacts.
func (s *HTTPServer) SetArchive(artifacts *archive.Store) { s.artifacts = artifacts }

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"docstore": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["docstore"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
		if s.searcher != nil {
			checks["search"] = map[string]any{"status": "ok", "meilisearch": s.searcher.MeiliHealthy()}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/genes" {
		symbols, err := s.service.ListGenes(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list genes", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"genes": symbols})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/genes" {
		var body struct {
			Symbol string `json:"symbol"`
			Editor string `json:"editor"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.Symbol) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "symbol is required", nil)
			return
		}
		gene, err := s.service.CreateGene(r.Context(), strings.TrimSpace(body.Symbol), body.Editor)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, gene)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search/history" {
		s.handleSearchHistory(w, r)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "genes" {
		symbol := parts[2]
		s.handleGene(w, r, symbol, parts)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleGene(w http.ResponseWriter, r *http.Request, symbol string, parts []string) {
	if len(parts) == 3 && r.Method == http.MethodGet {
		gene, err := s.service.GetGene(r.Context(), symbol)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, gene)
		return
	}

	if len(parts) == 4 && parts[3] == "review" && r.Method == http.MethodGet {
		result, err := s.service.ReviewTree(r.Context(), symbol)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if len(parts) == 5 && parts[3] == "review" && r.Method == http.MethodPost {
		verdict := parts[4]
		if verdict != "accept" && verdict != "reject" {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		var body struct {
			Admin string `json:"admin"`
			Selection
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.Admin) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "admin is required", nil)
			return
		}
		var err error
		if verdict == "accept" {
			err = s.service.AcceptChanges(r.Context(), symbol, body.Admin, body.Selection)
		} else {
			err = s.service.RejectChanges(r.Context(), symbol, body.Admin, body.Selection)
		}
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 4 && parts[3] == "fields" && r.Method == http.MethodPost {
		var body struct {
			Path   string `json:"path"`
			Value  any    `json:"value"`
			Editor string `json:"editor"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.UpdateReviewableContent(r.Context(), symbol, body.Path, body.Value, body.Editor)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if len(parts) == 4 && parts[3] == "flag-deletion" && r.Method == http.MethodPost {
		var body struct {
			Path   string `json:"path"`
			Editor string `json:"editor"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.FlagDeletion(r.Context(), symbol, body.Path, body.Editor); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 4 && parts[3] == "mutations" && r.Method == http.MethodPost {
		var body struct {
			Name   string `json:"name"`
			Editor string `json:"editor"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
			return
		}
		mutation, err := s.service.CreateMutation(r.Context(), symbol, body.Name, body.Editor)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, mutation)
		return
	}

	if len(parts) == 5 && parts[3] == "mutations" && parts[4] == "demote" && r.Method == http.MethodPost {
		var body struct {
			NameUUID string `json:"nameUuid"`
			Editor   string `json:"editor"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.DemoteMutation(r.Context(), symbol, body.NameUUID, body.Editor); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) >= 4 && parts[3] == "vus" {
		s.handleVus(w, r, symbol, parts)
		return
	}

	if len(parts) >= 4 && parts[3] == "history" {
		s.handleHistory(w, r, symbol, parts)
		return
	}

	if len(parts) >= 4 && parts[3] == "snapshots" {
		s.handleSnapshots(w, r, symbol, parts)
		return
	}

	if len(parts) >= 4 && parts[3] == "exports" {
		s.handleArtifacts(w, r, symbol, parts)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleVus(w http.ResponseWriter, r *http.Request, symbol string, parts []string) {
	if len(parts) == 4 && r.Method == http.MethodGet {
		entries, err := s.service.ListVus(r.Context(), symbol)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"variants": entries})
		return
	}

	if len(parts) == 4 && r.Method == http.MethodPost {
		var body struct {
			Names       []string `json:"names"`
			EditorName  string   `json:"editorName"`
			EditorEmail string   `json:"editorEmail"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if len(body.Names) == 0 {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "names is required", nil)
			return
		}
		if err := s.service.AddVus(r.Context(), symbol, body.Names, body.EditorName, body.EditorEmail); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 5 && r.Method == http.MethodDelete {
		if err := s.service.DeleteVus(r.Context(), symbol, parts[4]); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 6 && parts[5] == "refresh" && r.Method == http.MethodPost {
		var body struct {
			EditorName  string `json:"editorName"`
			EditorEmail string `json:"editorEmail"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.RefreshVus(r.Context(), symbol, parts[4], body.EditorName, body.EditorEmail); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 6 && parts[5] == "promote" && r.Method == http.MethodPost {
		var body struct {
			Editor string `json:"editor"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		mutation, err := s.service.PromoteVus(r.Context(), symbol, parts[4], body.Editor)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, mutation)
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request, symbol string, parts []string) {
	if len(parts) == 4 && r.Method == http.MethodGet {
		records, err := s.service.GeneHistory(r.Context(), symbol)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		records = filterHistory(records, r.URL.Query())
		writeJSON(w, http.StatusOK, map[string]any{"records": records})
		return
	}

	if len(parts) == 5 && parts[4] == "export" && r.Method == http.MethodPost {
		if s.exporter == nil {
			writeError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export service not configured", nil)
			return
		}
		var body struct {
			Format string `json:"format"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		format := export.Format(body.Format)
		if format != export.FormatPDF && format != export.FormatTSV {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'pdf' or 'tsv'", nil)
			return
		}
		result, err := s.exporter.Export(r.Context(), export.Request{Symbol: symbol, Format: format})
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		if s.artifacts != nil {
			key := archive.ArtifactKey(symbol, result.Filename)
			if err := s.artifacts.Put(r.Context(), key, result.Data, result.MimeType); err != nil {
				log.Printf("archive: store export %s: %v", key, err)
			}
		}
		w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
		w.Header().Set("Content-Type", result.MimeType)
		w.Write(result.Data)
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

// filterHistory narrows a gene's trail by editor, operation, and free text,
// newest first. Stored order is oldest first.
func filterHistory(records []history.FlatRecord, q url.Values) []history.FlatRecord {
	editor := strings.TrimSpace(q.Get("editor"))
	operation := strings.TrimSpace(q.Get("operation"))
	needle := strings.ToLower(strings.TrimSpace(q.Get("q")))
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	out := make([]history.FlatRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if editor != "" && rec.Record.LastEditBy != editor {
			continue
		}
		if operation != "" && string(rec.Record.Operation) != operation {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(rec.Record.Location), needle) &&
			!strings.Contains(strings.ToLower(rec.Record.LastEditBy), needle) &&
			!strings.Contains(strings.ToLower(rec.Admin), needle) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *HTTPServer) handleSnapshots(w http.ResponseWriter, r *http.Request, symbol string, parts []string) {
	if s.snaps == nil {
		writeError(w, http.StatusServiceUnavailable, "SNAPSHOTS_UNAVAILABLE", "Snapshot archive not configured", nil)
		return
	}

	if len(parts) == 4 && r.Method == http.MethodGet {
		limit := 50
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		commits, err := s.snaps.History(symbol, limit)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"snapshots": commits})
		return
	}

	if len(parts) == 5 && r.Method == http.MethodGet {
		doc, err := s.snaps.GetSnapshot(symbol, parts[4])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"gene": doc})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleArtifacts(w http.ResponseWriter, r *http.Request, symbol string, parts []string) {
	if s.artifacts == nil {
		writeError(w, http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE", "Artifact archive not configured", nil)
		return
	}

	if len(parts) == 4 && r.Method == http.MethodGet {
		objects, err := s.artifacts.List(r.Context(), strings.ToUpper(symbol)+"/")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list exports", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exports": objects})
		return
	}

	if len(parts) == 5 && r.Method == http.MethodGet {
		key := strings.ToUpper(symbol) + "/" + parts[4]
		data, contentType, err := s.artifacts.Get(r.Context(), key)
		if err != nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Export not found", nil)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename=\""+parts[4]+"\"")
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleSearchHistory(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search service not configured", nil)
		return
	}

	q := search.Query{
		Text:      strings.TrimSpace(r.URL.Query().Get("q")),
		Gene:      strings.TrimSpace(r.URL.Query().Get("gene")),
		Operation: strings.TrimSpace(r.URL.Query().Get("operation")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		q.Limit = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		q.Offset = parsed
	}

	writeJSON(w, http.StatusOK, s.searcher.Search(q))
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF rendering is unavailable", nil
	}
	if errors.Is(err, export.ErrUnsupportedFormat) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unsupported export format", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
