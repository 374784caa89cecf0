package portal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/phillip-england/empportal/internal/directory"
	"github.com/phillip-england/empportal/internal/workbook"
)

type employeesResponse struct {
	Status    string                     `json:"status"`
	Error     string                     `json:"error,omitempty"`
	FetchedAt *time.Time                 `json:"fetchedAt,omitempty"`
	Employees []directory.EmployeeRecord `json:"employees"`
	Stats     *directory.AggregateStats  `json:"stats"`
}

func (s *Server) employeesJSON(w http.ResponseWriter, r *http.Request) {
	dir := s.loadDirectory(r)
	resp := employeesResponse{
		Status:    dir.Status.String(),
		Employees: dir.Records,
	}
	if resp.Employees == nil {
		resp.Employees = []directory.EmployeeRecord{}
	}
	if dir.Failed {
		resp.Error = loadFailedMsg
	}
	if fetchedAt := s.users.FetchedAt(); !fetchedAt.IsZero() {
		resp.FetchedAt = &fetchedAt
	}
	if stats, err := directory.Summarize(dir.Records); err == nil {
		resp.Stats = &stats
	}

	status := http.StatusOK
	if dir.Failed && len(dir.Records) == 0 {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (s *Server) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	dir := s.loadDirectory(r)
	if len(dir.Records) == 0 {
		msg := noDataMsg
		if dir.Failed {
			msg = loadFailedMsg
		}
		writeError(w, http.StatusServiceUnavailable, msg)
		return
	}

	var buf bytes.Buffer
	if err := workbook.WriteEmployees(&buf, dir.Records); err != nil {
		s.logger.Error("export workbook failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unable to build workbook")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="employees.xlsx"`)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
