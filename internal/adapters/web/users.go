package web

import (
	"net/http"

	"freelance-billing/internal/app"
)

// apiListClients handles GET /api/users.
func (h *Handler) apiListClients(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListClients(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Users)
}

// apiCreateUser handles POST /api/users.
func (h *Handler) apiCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.CreateUser(r.Context(), actor(r), app.CreateUserRequest{
		Email:    body.Email,
		Name:     body.Name,
		Password: body.Password,
		Role:     body.Role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, res.User)
}
