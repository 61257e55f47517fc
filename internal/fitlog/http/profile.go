package http

import (
	"errors"
	"image"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/service"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/billedfitness/bfl/pkg/httpx"
)

// ProfileHandler serves the home page, profile pages and settings.
type ProfileHandler struct {
	Accounts *service.AccountService
	Profiles *service.ProfileService
	Workouts *service.WorkoutService
	Views    *Renderer
}

func (h *ProfileHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r)
	p, err := h.Profiles.Get(r.Context(), u.ID)
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}
	recent, err := h.Workouts.Recent(r.Context(), u, p)
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}

	sections := make([]homeSection, 0, len(recent))
	for _, c := range p.VisibleCategories() {
		d, _ := domain.Describe(c)
		sections = append(sections, homeSection{Descriptor: d, Workouts: recent[c]})
	}
	h.Views.Render(w, r, http.StatusOK, "home.html", map[string]any{
		"Profile":  p,
		"Sections": sections,
	})
}

type homeSection struct {
	Descriptor domain.Descriptor
	Workouts   []domain.Workout
}

func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := currentUser(r)
	view, err := h.Profiles.View(r.Context(), actor, r.PathValue("username"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.Views.NotFound(w, r)
		return
	case errors.Is(err, service.ErrForbidden):
		h.Views.AddFlash(w, r, FlashWarning, "You do not have permission to view that profile.")
		httpx.Redirect(w, r, "/home")
		return
	case err != nil:
		h.Views.ServerError(w, r, err)
		return
	}

	counts := make([]categoryCount, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		counts = append(counts, categoryCount{Category: c, Count: view.Counts[c]})
	}
	h.Views.Render(w, r, http.StatusOK, "profile.html", map[string]any{
		"Owner":   view.User,
		"Profile": view.Profile,
		"Counts":  counts,
		"IsOwner": view.User.ID == actor.ID,
	})
}

type categoryCount struct {
	Category domain.Category
	Count    int
}

// ownProfile reports whether the {username} in the path is the actor.
// Editing is owner only, admins included.
func (h *ProfileHandler) ownProfile(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	actor, _ := currentUser(r)
	if !strings.EqualFold(r.PathValue("username"), actor.Username) {
		h.Views.AddFlash(w, r, FlashWarning, "You can only edit your own profile.")
		httpx.Redirect(w, r, "/usr/"+actor.Username)
		return actor, false
	}
	return actor, true
}

func accountValues(u domain.User) url.Values {
	return url.Values{
		"first_name": {u.FirstName},
		"last_name":  {u.LastName},
		"username":   {u.Username},
		"email":      {u.Email},
	}
}

func (h *ProfileHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ownProfile(w, r)
	if !ok {
		return
	}
	p, err := h.Profiles.Get(r.Context(), actor.ID)
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}
	h.Views.Render(w, r, http.StatusOK, "profile_edit.html", map[string]any{
		"Values":  accountValues(actor),
		"Profile": p,
	})
}

func (h *ProfileHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ownProfile(w, r)
	if !ok {
		return
	}

	errs := service.FormErrors{}
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if !errors.As(err, &tooBig) {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		errs.Add("image", "The image is too large. Upload a file of at most 5 MB.")
	}

	rerender := func(errs service.FormErrors) {
		p, err := h.Profiles.Get(r.Context(), actor.ID)
		if err != nil {
			h.Views.ServerError(w, r, err)
			return
		}
		h.Views.Render(w, r, http.StatusOK, "profile_edit.html", map[string]any{
			"Values":  r.PostForm,
			"Profile": p,
			"Errors":  errs,
		})
	}
	if len(errs) > 0 {
		rerender(errs)
		return
	}

	// The image is checked before anything is saved so a bad upload leaves
	// the account untouched.
	var avatar image.Image
	if file, _, err := r.FormFile("image"); err == nil {
		avatar, err = service.CheckAvatar(file)
		_ = file.Close()
		if err != nil {
			if errors.As(err, &errs) {
				rerender(errs)
				return
			}
			h.Views.ServerError(w, r, err)
			return
		}
	}

	updated, err := h.Accounts.UpdateAccount(r.Context(), actor, service.AccountFormFrom(r.PostForm))
	if err != nil {
		if errors.As(err, &errs) {
			rerender(errs)
			return
		}
		h.Views.ServerError(w, r, err)
		return
	}

	if avatar != nil {
		if err := h.Profiles.StoreAvatar(r.Context(), actor.ID, avatar); err != nil {
			h.Views.ServerError(w, r, err)
			return
		}
	}

	h.Views.AddFlash(w, r, FlashSuccess, "Your account has been updated!")
	httpx.Redirect(w, r, "/usr/"+updated.Username)
}

func profileValues(p domain.Profile) url.Values {
	v := url.Values{
		"weight":        {strconv.FormatFloat(p.Weight, 'f', -1, 64)},
		"goal_weight":   {strconv.FormatFloat(p.GoalWeight, 'f', -1, 64)},
		"weight_unit":   {string(p.WeightUnit)},
		"distance_unit": {string(p.DistanceUnit)},
	}
	for _, c := range domain.Categories {
		if p.Hides(c) {
			v.Add("hidden", string(c))
		}
	}
	return v
}

func settingsData(v url.Values, errs service.FormErrors) map[string]any {
	return map[string]any{
		"Values":        v,
		"Errors":        errs,
		"WeightUnits":   domain.WeightUnits,
		"DistanceUnits": domain.DistanceUnits,
	}
}

func (h *ProfileHandler) HandleSettingsForm(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r)
	p, err := h.Profiles.Get(r.Context(), u.ID)
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}
	h.Views.Render(w, r, http.StatusOK, "settings.html", settingsData(profileValues(p), nil))
}

func (h *ProfileHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if _, err := h.Profiles.UpdatePreferences(r.Context(), u.ID, r.PostForm); err != nil {
		var errs service.FormErrors
		if errors.As(err, &errs) {
			h.Views.Render(w, r, http.StatusOK, "settings.html", settingsData(r.PostForm, errs))
			return
		}
		h.Views.ServerError(w, r, err)
		return
	}

	h.Views.AddFlash(w, r, FlashSuccess, "Your preferences have been saved.")
	httpx.Redirect(w, r, "/settings")
}
