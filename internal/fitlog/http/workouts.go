package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/service"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/billedfitness/bfl/pkg/httpx"
)

// WorkoutHandler serves the CRUD pages for every category. The category in
// the path selects the descriptor that drives labels, fields and units.
type WorkoutHandler struct {
	Workouts *service.WorkoutService
	Profiles *service.ProfileService
	Views    *Renderer
}

func listPath(c domain.Category) string { return "/workouts/" + string(c) }

func detailPath(w domain.Workout) string { return listPath(w.Category) + "/" + w.ID }

// descriptor resolves {category}, answering 404 for unknown ones.
func (h *WorkoutHandler) descriptor(w http.ResponseWriter, r *http.Request) (domain.Descriptor, bool) {
	c, ok := domain.ParseCategory(r.PathValue("category"))
	if !ok {
		h.Views.NotFound(w, r)
		return domain.Descriptor{}, false
	}
	d, _ := domain.Describe(c)
	return d, true
}

// fail maps service errors for a single workout to a response.
func (h *WorkoutHandler) fail(w http.ResponseWriter, r *http.Request, c domain.Category, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrUnknownCategory):
		h.Views.NotFound(w, r)
	case errors.Is(err, service.ErrForbidden):
		h.Views.AddFlash(w, r, FlashWarning, "You do not have permission to access that workout.")
		httpx.Redirect(w, r, listPath(c))
	default:
		h.Views.ServerError(w, r, err)
	}
}

// backLink is where detail, edit and delete pages return to.
func backLink(actor domain.User, wo domain.Workout, raw string) string {
	fallback := listPath(wo.Category)
	if actor.Admin && wo.UserID != actor.ID {
		fallback = "/admin/workouts"
	}
	return returnTo(raw, fallback)
}

func queryInt(q url.Values, key string) int {
	n, _ := strconv.Atoi(q.Get(key))
	return n
}

func (h *WorkoutHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	actor, _ := currentUser(r)
	q := r.URL.Query()

	page, err := h.Workouts.List(r.Context(), actor, d.Category, queryInt(q, "page"), queryInt(q, "limit"))
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}
	p, err := h.Profiles.Get(r.Context(), actor.ID)
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}

	h.Views.Render(w, r, http.StatusOK, "workout_list.html", map[string]any{
		"Descriptor": d,
		"Page":       page,
		"Profile":    p,
		"Query":      url.Values{"limit": {strconv.Itoa(page.Size)}},
		"Here":       r.URL.RequestURI(),
	})
}

func (h *WorkoutHandler) renderForm(w http.ResponseWriter, r *http.Request, d domain.Descriptor, wo *domain.Workout, v url.Values, errs service.FormErrors, back string) {
	actor, _ := currentUser(r)
	owner := actor.ID
	if wo != nil {
		owner = wo.UserID
	}
	p, err := h.Profiles.Get(r.Context(), owner)
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}
	h.Views.Render(w, r, http.StatusOK, "workout_form.html", map[string]any{
		"Descriptor": d,
		"Workout":    wo,
		"Profile":    p,
		"Values":     v,
		"Errors":     errs,
		"ReturnTo":   back,
	})
}

func (h *WorkoutHandler) HandleNewForm(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	v := url.Values{"date": {time.Now().UTC().Format("2006-01-02")}}
	h.renderForm(w, r, d, nil, v, nil, listPath(d.Category))
}

func (h *WorkoutHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	actor, _ := currentUser(r)

	wo, err := h.Workouts.Create(r.Context(), actor, d.Category, r.PostForm)
	if err != nil {
		var errs service.FormErrors
		if errors.As(err, &errs) {
			h.renderForm(w, r, d, nil, r.PostForm, errs, listPath(d.Category))
			return
		}
		h.fail(w, r, d.Category, err)
		return
	}

	h.Views.AddFlash(w, r, FlashSuccess, "Your "+d.Noun+" has been logged!")
	httpx.Redirect(w, r, detailPath(wo))
}

func (h *WorkoutHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	actor, _ := currentUser(r)

	wo, err := h.Workouts.Get(r.Context(), actor, d.Category, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, d.Category, err)
		return
	}
	owner, err := h.Workouts.OwnerProfile(r.Context(), wo)
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}

	back := backLink(actor, wo, r.URL.Query().Get("return_to"))
	h.Views.Render(w, r, http.StatusOK, "workout_detail.html", map[string]any{
		"Descriptor": d,
		"Workout":    wo,
		"Profile":    owner,
		"ReturnTo":   back,
		"Here":       r.URL.RequestURI(),
	})
}

func (h *WorkoutHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	actor, _ := currentUser(r)

	wo, err := h.Workouts.Get(r.Context(), actor, d.Category, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, d.Category, err)
		return
	}
	back := backLink(actor, wo, r.URL.Query().Get("return_to"))
	h.renderForm(w, r, d, &wo, service.WorkoutValues(wo), nil, back)
}

func (h *WorkoutHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	actor, _ := currentUser(r)

	wo, err := h.Workouts.Update(r.Context(), actor, d.Category, r.PathValue("id"), r.PostForm)
	if err != nil {
		var errs service.FormErrors
		if errors.As(err, &errs) {
			back := backLink(actor, wo, r.PostForm.Get("return_to"))
			h.renderForm(w, r, d, &wo, r.PostForm, errs, back)
			return
		}
		h.fail(w, r, d.Category, err)
		return
	}

	h.Views.AddFlash(w, r, FlashSuccess, "Your "+d.Noun+" has been updated!")
	target := detailPath(wo)
	if back := backLink(actor, wo, r.PostForm.Get("return_to")); back != listPath(wo.Category) {
		target += "?return_to=" + url.QueryEscape(back)
	}
	httpx.Redirect(w, r, target)
}

func (h *WorkoutHandler) HandleDeleteForm(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	actor, _ := currentUser(r)

	wo, err := h.Workouts.Get(r.Context(), actor, d.Category, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, d.Category, err)
		return
	}
	h.Views.Render(w, r, http.StatusOK, "workout_delete.html", map[string]any{
		"Descriptor": d,
		"Workout":    wo,
		"ReturnTo":   backLink(actor, wo, r.URL.Query().Get("return_to")),
	})
}

func (h *WorkoutHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	actor, _ := currentUser(r)

	wo, err := h.Workouts.Delete(r.Context(), actor, d.Category, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, d.Category, err)
		return
	}

	h.Views.AddFlash(w, r, FlashSuccess, "Your "+d.Noun+" has been deleted.")
	back := backLink(actor, wo, r.PostForm.Get("return_to"))
	if u, err := url.Parse(back); err == nil && u.Path == detailPath(wo) {
		back = listPath(wo.Category)
	}
	httpx.Redirect(w, r, back)
}

func (h *WorkoutHandler) HandleDuplicate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	actor, _ := currentUser(r)

	dup, err := h.Workouts.Duplicate(r.Context(), actor, d.Category, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, d.Category, err)
		return
	}

	h.Views.AddFlash(w, r, FlashSuccess, "Workout duplicated. Review the copy below.")
	httpx.Redirect(w, r, detailPath(dup)+"/edit")
}
