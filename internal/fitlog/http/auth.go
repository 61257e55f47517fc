package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/billedfitness/bfl/internal/fitlog/service"
	"github.com/billedfitness/bfl/pkg/httpx"
	"github.com/billedfitness/bfl/pkg/slogx"
)

// AuthHandler serves the landing page and the account lifecycle: register,
// login, logout, password change and deactivation.
type AuthHandler struct {
	Accounts *service.AccountService
	Sessions *service.SessionService
	Cookies  SessionCookies
	Views    *Renderer
}

func (h *AuthHandler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	h.Views.Render(w, r, http.StatusOK, "landing.html", nil)
}

func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.Views.Render(w, r, http.StatusOK, "login.html", map[string]any{
		"Next": r.URL.Query().Get("next"),
	})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	login := r.PostForm.Get("username")
	next := r.PostForm.Get("next")

	u, err := h.Accounts.Authenticate(r.Context(), login, r.PostForm.Get("password"))
	if err != nil {
		data := map[string]any{"Next": next, "Username": login}
		switch {
		case errors.Is(err, service.ErrAccountInactive):
			data["Alert"] = Flash{Level: FlashWarning, Message: service.MsgAccountInactive}
		case errors.Is(err, service.ErrInvalidCredentials):
			data["Alert"] = Flash{Level: FlashDanger, Message: service.MsgInvalidCredentials}
		default:
			h.Views.ServerError(w, r, err)
			return
		}
		h.Views.Render(w, r, http.StatusOK, "login.html", data)
		return
	}

	token, _, err := h.Sessions.Start(r.Context(), u, r.UserAgent(), httpx.GetRemoteIP(r))
	if err != nil {
		h.Views.ServerError(w, r, err)
		return
	}
	h.Cookies.Set(w, token)
	httpx.Redirect(w, r, safeNext(next))
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(r); ok {
		if err := h.Sessions.End(r.Context(), currentSession(r).ID); err != nil {
			slogx.FromContext(r.Context()).Error("failed to end session", slogx.Err(err))
		}
		h.Views.AddFlash(w, r, FlashInfo, "You have been logged out.")
	}
	h.Cookies.Clear(w)
	httpx.Redirect(w, r, "/")
}

func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.Views.Render(w, r, http.StatusOK, "register.html", map[string]any{
		"Form": service.RegisterForm{},
	})
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := service.RegisterFormFrom(r.PostForm)

	u, err := h.Accounts.Register(r.Context(), form)
	if err != nil {
		var errs service.FormErrors
		if errors.As(err, &errs) {
			form.Password1, form.Password2 = "", ""
			h.Views.Render(w, r, http.StatusOK, "register.html", map[string]any{
				"Form":   form,
				"Errors": errs,
			})
			return
		}
		h.Views.ServerError(w, r, err)
		return
	}

	h.Views.AddFlash(w, r, FlashSuccess, fmt.Sprintf("Account successfully created for %s!", u.Username))
	httpx.Redirect(w, r, "/login")
}

func (h *AuthHandler) HandlePasswordForm(w http.ResponseWriter, r *http.Request) {
	h.Views.Render(w, r, http.StatusOK, "change_password.html", nil)
}

func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	err := h.Accounts.ChangePassword(r.Context(), u, currentSession(r).ID, service.PasswordChangeFormFrom(r.PostForm))
	if err != nil {
		var errs service.FormErrors
		if errors.As(err, &errs) {
			h.Views.Render(w, r, http.StatusOK, "change_password.html", map[string]any{"Errors": errs})
			return
		}
		h.Views.ServerError(w, r, err)
		return
	}

	h.Views.AddFlash(w, r, FlashSuccess, "Your password was successfully updated!")
	httpx.Redirect(w, r, "/usr/"+u.Username)
}

func (h *AuthHandler) HandleDeactivateForm(w http.ResponseWriter, r *http.Request) {
	h.Views.Render(w, r, http.StatusOK, "deactivate.html", nil)
}

func (h *AuthHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if err := h.Accounts.Deactivate(r.Context(), u, r.PostForm.Get("password")); err != nil {
		var errs service.FormErrors
		if errors.As(err, &errs) {
			h.Views.Render(w, r, http.StatusOK, "deactivate.html", map[string]any{"Errors": errs})
			return
		}
		h.Views.ServerError(w, r, err)
		return
	}

	h.Cookies.Clear(w)
	h.Views.AddFlash(w, r, FlashInfo, "Your account has been deactivated.")
	httpx.Redirect(w, r, "/")
}
