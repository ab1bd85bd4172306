package api

import (
	"net/http"
	"strings"
	"time"

	"example.com/fitnesstracker/internal/domain"
)

const dateLayout = "2006-01-02"

// UserRequest is the payload for POST /v1/users.
type UserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Birthdate string `json:"birthdate"`
	Email     string `json:"email"`
}

// UserPatchRequest is the payload for PUT /v1/users/{id}; omitted fields keep their value.
type UserPatchRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Birthdate *string `json:"birthdate"`
	Email     *string `json:"email"`
}

// UserView is the JSON representation of a user.
type UserView struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Birthdate string    `json:"birthdate,omitempty"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserView(u domain.User) UserView {
	view := UserView{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if !u.Birthdate.IsZero() {
		view.Birthdate = u.Birthdate.Format(dateLayout)
	}
	return view
}

func toUserViews(users []domain.User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, toUserView(u))
	}
	return out
}

func (h *Handler) usersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listUsers(w, r)
	case http.MethodPost:
		h.createUser(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) userByID(w http.ResponseWriter, r *http.Request) {
	if date, ok := strings.CutPrefix(r.URL.Path, "/v1/users/older-than/"); ok {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.listUsersBornBefore(w, r, date)
		return
	}

	id := pathID(r, "/v1/users/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing user id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getUser(w, r, id)
	case http.MethodPut:
		h.updateUser(w, r, id)
	case http.MethodDelete:
		h.deleteUser(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if !canRead(w, r) {
		return
	}
	if email := r.URL.Query().Get("email"); email != "" {
		user, err := h.users.GetUserByEmail(r.Context(), email)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, []UserView{toUserView(*user)})
		return
	}

	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserViews(users))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if !canWrite(w, r) {
		return
	}
	var req UserRequest
	if !decode(w, r, &req) {
		return
	}

	input := domain.CreateUserInput{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email}
	if req.Birthdate != "" {
		birthdate, err := time.Parse(dateLayout, req.Birthdate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "birthdate must be YYYY-MM-DD")
			return
		}
		input.Birthdate = birthdate
	}

	user, err := h.users.CreateUser(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(*user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request, id string) {
	if !canRead(w, r) {
		return
	}
	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	if !canWrite(w, r) {
		return
	}
	var req UserPatchRequest
	if !decode(w, r, &req) {
		return
	}

	patch := domain.UserPatch{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email}
	if req.Birthdate != nil {
		birthdate, err := time.Parse(dateLayout, *req.Birthdate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "birthdate must be YYYY-MM-DD")
			return
		}
		patch.Birthdate = &birthdate
	}

	user, err := h.users.UpdateUser(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if !canWrite(w, r) {
		return
	}
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUsersBornBefore(w http.ResponseWriter, r *http.Request, raw string) {
	if !canRead(w, r) {
		return
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "date must be YYYY-MM-DD")
		return
	}
	users, err := h.users.ListUsersBornBefore(r.Context(), date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserViews(users))
}
