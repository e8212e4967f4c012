package httpapi

import (
	"context"
	"net/http"

	"getir-be/internal/apperr"
	"getir-be/internal/driver"
	"getir-be/internal/role"
	"getir-be/internal/user"
	"getir-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, page := pagination(r)
	p := user.ListParams{Search: r.URL.Query().Get("search"), Limit: limit, Page: page}
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := role.Parse(raw)
		if err != nil {
			writeError(w, r, apperr.Invalid("type", "unknown user type"))
			return
		}
		p.Type = &t
	}

	users, total, err := h.Users.List(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, users, limit, page, total)
}

type createUserRequest struct {
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	Email    *string   `json:"email"`
	UserType role.Role `json:"user_type"`
}

// createUser adds a pre-verified account; admins vouch for the phone.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.Create(r.Context(), user.CreateParams{
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Type:       req.UserType,
		IsVerified: true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, u)
}

func (h *Handler) updateUserType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		UserType role.Role `json:"user_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.UpdateType(r.Context(), caller(r), id, req.UserType); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, u)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.Delete(r.Context(), caller(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *Handler) listAdminAccess(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Users.ListAdminAccess(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, entries)
}

func (h *Handler) grantAdminAccess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Note  string `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.Users.GrantAdminAccess(r.Context(), req.Phone, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, entry)
}

// revokeAdminAccess refuses to remove the caller's own phone so an admin
// cannot lock themselves out mid-session.
func (h *Handler) revokeAdminAccess(w http.ResponseWriter, r *http.Request) {
	phone := utils.NormalizePhone(chi.URLParam(r, "phone"))
	if phone == utils.GetUserPhoneFromContext(r.Context()) {
		writeError(w, r, apperr.Invalid("phone", "cannot revoke your own access"))
		return
	}
	if err := h.Users.RevokeAdminAccess(r.Context(), phone); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *Handler) submitDriverApplication(w http.ResponseWriter, r *http.Request) {
	var in driver.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.Drivers.Submit(r.Context(), caller(r), utils.GetUserRoleFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, app)
}

func (h *Handler) myDriverApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.Drivers.Mine(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, apps)
}

func (h *Handler) listDriverApplications(w http.ResponseWriter, r *http.Request) {
	limit, page := pagination(r)
	var status *driver.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := driver.Status(raw)
		status = &st
	}
	apps, total, err := h.Drivers.List(r.Context(), status, limit, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, apps, limit, page, total)
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) approveDriverApplication(w http.ResponseWriter, r *http.Request) {
	h.reviewDriverApplication(w, r, h.Drivers.Approve)
}

func (h *Handler) rejectDriverApplication(w http.ResponseWriter, r *http.Request) {
	h.reviewDriverApplication(w, r, h.Drivers.Reject)
}

func (h *Handler) reviewDriverApplication(
	w http.ResponseWriter,
	r *http.Request,
	review func(ctx context.Context, id, reviewerID uint, notes string) (*driver.Application, error),
) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reviewRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	app, err := review(r.Context(), id, caller(r), req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, app)
}
