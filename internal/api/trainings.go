package api

import (
	"net/http"
	"time"

	"example.com/fitnesstracker/internal/domain"
)

// TrainingRequest is the payload for POST /v1/trainings.
type TrainingRequest struct {
	UserID       string    `json:"user_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	ActivityType string    `json:"activity_type"`
	Distance     float64   `json:"distance"`
	AverageSpeed float64   `json:"average_speed"`
}

// TrainingPatchRequest is the payload for PUT /v1/trainings/{id}.
type TrainingPatchRequest struct {
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	ActivityType *string    `json:"activity_type"`
	Distance     *float64   `json:"distance"`
	AverageSpeed *float64   `json:"average_speed"`
}

// TrainingView is the JSON representation of a training.
type TrainingView struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	ActivityType string    `json:"activity_type"`
	Distance     float64   `json:"distance"`
	AverageSpeed float64   `json:"average_speed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toTrainingView(t domain.Training) TrainingView {
	return TrainingView{
		ID:           t.ID,
		UserID:       t.UserID,
		StartTime:    t.StartTime,
		EndTime:      t.EndTime,
		ActivityType: string(t.ActivityType),
		Distance:     t.Distance,
		AverageSpeed: t.AverageSpeed,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (h *Handler) trainingsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTrainings(w, r)
	case http.MethodPost:
		h.createTraining(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) trainingByID(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/v1/trainings/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing training id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getTraining(w, r, id)
	case http.MethodPut:
		h.updateTraining(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) createTraining(w http.ResponseWriter, r *http.Request) {
	if !canWrite(w, r) {
		return
	}
	var req TrainingRequest
	if !decode(w, r, &req) {
		return
	}
	activity, err := domain.ParseActivityType(req.ActivityType)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	training, err := h.trainings.CreateTraining(r.Context(), domain.CreateTrainingInput{
		UserID:       req.UserID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		ActivityType: activity,
		Distance:     req.Distance,
		AverageSpeed: req.AverageSpeed,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTrainingView(*training))
}

func (h *Handler) getTraining(w http.ResponseWriter, r *http.Request, id string) {
	if !canRead(w, r) {
		return
	}
	training, err := h.trainings.GetTraining(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrainingView(*training))
}

func (h *Handler) listTrainings(w http.ResponseWriter, r *http.Request) {
	if !canRead(w, r) {
		return
	}

	query := r.URL.Query()
	filter := domain.TrainingFilter{UserID: query.Get("user_id")}
	if raw := query.Get("activity_type"); raw != "" {
		activity, err := domain.ParseActivityType(raw)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		filter.ActivityType = activity
	}
	if raw := query.Get("finished_after"); raw != "" {
		after, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "finished_after must be RFC 3339")
			return
		}
		filter.FinishedAfter = after
	}

	trainings, err := h.trainings.ListTrainings(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]TrainingView, 0, len(trainings))
	for _, t := range trainings {
		items = append(items, toTrainingView(t))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) updateTraining(w http.ResponseWriter, r *http.Request, id string) {
	if !canWrite(w, r) {
		return
	}
	var req TrainingPatchRequest
	if !decode(w, r, &req) {
		return
	}

	patch := domain.TrainingPatch{
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Distance:     req.Distance,
		AverageSpeed: req.AverageSpeed,
	}
	if req.ActivityType != nil {
		activity, err := domain.ParseActivityType(*req.ActivityType)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		patch.ActivityType = &activity
	}

	training, err := h.trainings.UpdateTraining(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrainingView(*training))
}
