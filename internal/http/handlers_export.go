package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"compras/internal/core"
	"compras/internal/export"
	"compras/internal/log"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	period, records, ok := s.exportRecords(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		s.logFailure(r, "CSV export failed", err, log.OpExport)
		http.Error(w, "Erro ao exportar", http.StatusInternalServerError)
		return
	}
	s.sendFile(w, "text/csv; charset=utf-8", fmt.Sprintf("compras_%s.csv", period), buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	period, records, ok := s.exportRecords(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, period, records); err != nil {
		s.logFailure(r, "XLSX export failed", err, log.OpExport)
		http.Error(w, "Erro ao exportar", http.StatusInternalServerError)
		return
	}
	s.sendFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		fmt.Sprintf("compras_%s.xlsx", period), buf.Bytes())
}

func (s *Server) exportRecords(w http.ResponseWriter, r *http.Request) (core.Period, []core.PurchaseRecord, bool) {
	period, err := core.ParsePeriod(r.PathValue("period"))
	if err != nil {
		http.Error(w, messageFor(err), http.StatusUnprocessableEntity)
		return "", nil, false
	}
	records, err := s.ledger.Records(r.Context(), period)
	if err != nil {
		s.logFailure(r, "Failed to load period for export", err, log.OpExport)
		http.Error(w, messageFor(err), statusFor(err))
		return "", nil, false
	}
	return period, records, true
}

func (s *Server) sendFile(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleSnapshot takes today's database snapshot on demand
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formato de requisição inválido", http.StatusBadRequest)
		return
	}
	form := selection(parseFormState(r.PostForm))

	if s.snapshots == nil {
		s.renderIndex(w, r, http.StatusServiceUnavailable, form, "", "Backups desativados.")
		return
	}

	path, err := s.snapshots.Run(r.Context(), time.Now())
	if err != nil {
		s.logFailure(r, "Snapshot failed", err, log.OpSnapshot)
		s.renderIndex(w, r, http.StatusInternalServerError, form, "", "Falha ao salvar o backup.")
		return
	}
	s.renderIndex(w, r, http.StatusOK, form, "Backup salvo em "+path, "")
}
