package http

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/service"
)

// AdminHandler lists workouts across all users.
type AdminHandler struct {
	Accounts *service.AccountService
	Workouts *service.WorkoutService
	Views    *Renderer
}

func (h *AdminHandler) HandleWorkouts(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r)
	q := r.URL.Query()

	filter := service.AdminFilter{Username: q.Get("user")}
	if raw := q.Get("category"); raw != "" {
		c, ok := domain.ParseCategory(raw)
		if !ok {
			h.Views.NotFound(w, r)
			return
		}
		filter.Category = c
	}

	page, err := h.Workouts.ListAll(r.Context(), actor, filter, queryInt(q, "page"), queryInt(q, "limit"))
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}
	users, err := h.Accounts.ListUsers(r.Context())
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}
	owners := make(map[string]domain.User, len(users))
	for _, u := range users {
		owners[u.ID] = u
	}

	rows := make([]adminRow, 0, len(page.Workouts))
	for _, wo := range page.Workouts {
		rows = append(rows, adminRow{Workout: wo, Owner: owners[wo.UserID]})
	}

	keep := url.Values{"limit": {strconv.Itoa(page.Size)}}
	if filter.Category != "" {
		keep.Set("category", string(filter.Category))
	}
	if filter.Username != "" {
		keep.Set("user", filter.Username)
	}

	h.Views.Render(w, r, http.StatusOK, "admin_workouts.html", map[string]any{
		"Rows":   rows,
		"Page":   page,
		"Users":  users,
		"Filter": filter,
		"Query":  keep,
		"Here":   r.URL.RequestURI(),
	})
}

type adminRow struct {
	Workout domain.Workout
	Owner   domain.User
}
