package http

import (
	"net/http"

	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/session"
	"TenancyPlatform/services/tenant-service/internal/tenantctx"
)

// requireTenant отклоняет запрос без арендатора в контексте
func (h *Handler) requireTenant(w http.ResponseWriter, r *http.Request) bool {
	if tc, ok := tenantctx.From(r.Context()); !ok || !tc.HasTenant() {
		h.writeError(w, r, session.ErrNoTenantContext())
		return false
	}
	return true
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireTenant(w, r) {
		return
	}
	var in domain.UserCreate
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.opts.Items.CreateUser(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireTenant(w, r) {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	users, err := h.opts.Items.ListUsers(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireTenant(w, r) {
		return
	}
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.opts.Items.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireTenant(w, r) {
		return
	}
	var in domain.ProductCreate
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.opts.Items.CreateProduct(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if !h.requireTenant(w, r) {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	products, err := h.opts.Items.ListProducts(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireTenant(w, r) {
		return
	}
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.opts.Items.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}
