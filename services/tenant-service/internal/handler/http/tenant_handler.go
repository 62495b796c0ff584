package http

import (
	"net/http"

	"TenancyPlatform/services/tenant-service/internal/domain"
)

// handleCreateTenant POST /api/v1/admin/tenants
func (h *Handler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var in domain.TenantCreate
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	tenant, err := h.opts.Tenants.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tenant)
}

// handleListTenants GET /api/v1/admin/tenants?skip=&limit=
func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tenants, err := h.opts.Tenants.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tenants)
}

// handleGetTenant GET /api/v1/admin/tenants/{id}
func (h *Handler) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tenant, err := h.opts.Tenants.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tenant)
}

// handleUpdateTenant PATCH /api/v1/admin/tenants/{id}
func (h *Handler) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var patch domain.TenantUpdate
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	tenant, err := h.opts.Tenants.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tenant)
}
