package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const maxUploadBytes = 32 << 20 // 32 MB

type uploadResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	Filename          string `json:"filename"`
	FilePath          string `json:"file_path"`
	DocumentsIngested int    `json:"documents_ingested"`
}

// UploadHandler accepts a PDF, saves it to the data folder and indexes it
// into the knowledge base.
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "No file provided")
			return
		}
		defer file.Close()

		filename := filepath.Base(header.Filename)
		if filename == "" || filename == "." {
			writeError(w, http.StatusBadRequest, "No filename provided")
			return
		}
		if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
			writeError(w, http.StatusBadRequest, "Only PDF files are supported. Please upload a .pdf file.")
			return
		}

		dataDir := s.config.GetDataFolder()
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			log.Error().Err(err).Str("dir", dataDir).Msg("failed to create data folder")
			writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
			return
		}

		destPath := filepath.Join(dataDir, filename)
		if err := saveUpload(destPath, file); err != nil {
			log.Error().Err(err).Str("path", destPath).Msg("failed to save upload")
			writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
			return
		}

		chunks, err := s.ingestor.IngestFile(r.Context(), destPath)
		if err != nil {
			// The file is on disk but not searchable. Report it rather than fail.
			log.Error().Err(err).Str("path", destPath).Msg("ingestion failed")
			writeJSON(w, http.StatusOK, uploadResponse{
				Success:  false,
				Message:  fmt.Sprintf("File uploaded successfully but ingestion failed: %v", err),
				Filename: filename,
				FilePath: destPath,
			})
			return
		}

		writeJSON(w, http.StatusOK, uploadResponse{
			Success:           true,
			Message:           fmt.Sprintf("Successfully ingested %d document chunks", chunks),
			Filename:          filename,
			FilePath:          destPath,
			DocumentsIngested: chunks,
		})
	}
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}
