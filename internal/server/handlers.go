package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/zombor/invoice-check/internal/history"
	"github.com/zombor/invoice-check/internal/invoice"
	"github.com/zombor/invoice-check/internal/pdftext"
)

const maxUploadSize = int64(50 << 20) // 50MB

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes an {"error": message} response
func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// handleHealth reports liveness and version
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       s.version,
		"uptimeSeconds": int64(time.Since(s.started).Seconds()),
	})
}

// handleStatus reports which extraction backends are in use
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.availability.Snapshot().Status())
}

// handleUpload runs a check on an uploaded PDF
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "File is too large. Maximum size is 50MB.", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("pdf")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No PDF file uploaded", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if !isPDFUpload(header.Filename, header.Header.Get("Content-Type")) {
		jsonError(w, "Only PDF files are allowed", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	check, err := s.service.ProcessUpload(r.Context(), header.Filename, data)
	if err != nil {
		slog.Error("Error processing upload", "filename", header.Filename, "error", err)
		if errors.Is(err, pdftext.ErrNotPDF) {
			jsonError(w, "The file could not be read as a PDF", http.StatusBadRequest)
			return
		}
		jsonError(w, "Error processing PDF", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, check)
}

func isPDFUpload(filename, contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// validateResponse is the body returned for manual validation
type validateResponse struct {
	Invoice    *invoice.Record          `json:"invoice"`
	Validation invoice.ValidationResult `json:"validation"`
}

// handleValidate validates hand-entered invoice fields
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var input invoice.ManualInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	check, err := s.service.ValidateManual(input)
	if err != nil {
		var inputErr *invoice.InputError
		if errors.As(err, &inputErr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  inputErr.Error(),
				"fields": inputErr.Fields,
			})
			return
		}
		slog.Error("Error validating invoice", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Invoice:    check.Record,
		Validation: check.Validation,
	})
}

// handleListChecks returns all checks, newest first
func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := s.service.ListChecks()
	if err != nil {
		slog.Error("Error listing checks", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, checks)
}

// handleGetCheck returns a single check
func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	check, err := s.service.GetCheck(r.PathValue("id"))
	if err != nil {
		s.checkError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, check)
}

// handleGetCheckFile returns the uploaded PDF of a check
func (s *Server) handleGetCheckFile(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.service.GetCheckFile(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, history.ErrNoFile) {
			jsonError(w, "File not found", http.StatusNotFound)
			return
		}
		s.checkError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	w.Write(data)
}

// handleDeleteCheck deletes a check
func (s *Server) handleDeleteCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteCheck(r.PathValue("id")); err != nil {
		s.checkError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// checkError maps service errors for a single check to a response
func (s *Server) checkError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrCheckNotFound) {
		jsonError(w, "Check not found", http.StatusNotFound)
		return
	}
	slog.Error("Error loading check", "error", err)
	jsonError(w, "Internal server error", http.StatusInternalServerError)
}
