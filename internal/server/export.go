package server

import (
	"fmt"
	"net/http"
	"time"
)

// handleExport streams an XLSX workbook of processed documents and their
// extracted fields.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.ExportDocumentsXLSX(r.Context())
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		respondAppError(w, err)
		return
	}

	filename := fmt.Sprintf("documents_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
