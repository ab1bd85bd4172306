package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"example.com/fitnesstracker/internal/auth"
	"example.com/fitnesstracker/internal/domain"
)

// StatisticsView is the JSON representation of a statistics record.
type StatisticsView struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	TotalTrainings int     `json:"total_trainings"`
	TotalDistance  float64 `json:"total_distance"`
	AverageSpeed   float64 `json:"average_speed"`
}

// RunView reports the outcome of a manually triggered pipeline run.
type RunView struct {
	Pipeline    string        `json:"pipeline"`
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	Succeeded   int           `json:"succeeded"`
	Failed      []FailureView `json:"failed"`
}

// FailureView names a user the run could not process.
type FailureView struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

func toStatisticsView(s domain.Statistics) StatisticsView {
	return StatisticsView{
		ID:             s.ID,
		UserID:         s.UserID,
		TotalTrainings: s.TotalTrainings,
		TotalDistance:  s.TotalDistance,
		AverageSpeed:   s.AverageSpeed,
	}
}

func toRunView(result domain.RunResult) RunView {
	view := RunView{
		Pipeline:    result.Pipeline,
		WindowStart: result.Window.Start,
		WindowEnd:   result.Window.End,
		Succeeded:   result.Succeeded(),
		Failed:      []FailureView{},
	}
	for _, o := range result.Failed() {
		view.Failed = append(view.Failed, FailureView{UserID: o.UserID, Error: o.Err.Error()})
	}
	return view
}

func (h *Handler) listStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if !canRead(w, r) {
		return
	}
	records, err := h.statistics.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]StatisticsView, 0, len(records))
	for _, s := range records {
		items = append(items, toStatisticsView(s))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) statisticsByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/statistics/")
	if rest == "generate" {
		h.generateStatistics(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if !canRead(w, r) {
		return
	}

	var (
		record *domain.Statistics
		err    error
	)
	if userID, ok := strings.CutPrefix(rest, "user/"); ok && userID != "" {
		record, err = h.statistics.ForUser(r.Context(), userID)
	} else if id := pathID(r, "/v1/statistics/"); id != "" {
		record, err = h.statistics.Get(r.Context(), id)
	} else {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing statistics id")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatisticsView(*record))
}

func (h *Handler) generateStatistics(w http.ResponseWriter, r *http.Request) {
	h.runPipeline(w, r, h.trigger.RunStatistics)
}

func (h *Handler) generateReports(w http.ResponseWriter, r *http.Request) {
	h.runPipeline(w, r, h.trigger.RunReports)
}

// runPipeline answers 200 with the per-user outcome even when some users failed; only a run that
// could not start reports 500.
func (h *Handler) runPipeline(w http.ResponseWriter, r *http.Request, run func(context.Context) (domain.RunResult, error)) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !authorize(w, r, auth.ScopeReportsRun) {
		return
	}
	result, err := run(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunView(result))
}
