package httpapi

import (
	"net/http"

	"getir-be/internal/store"
	"getir-be/internal/utils"
)

// setupStore opens a store for the caller; a customer becomes a store owner
// in the same transaction.
func (h *Handler) setupStore(w http.ResponseWriter, r *http.Request) {
	var in store.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Stores.Setup(r.Context(), caller(r), utils.GetUserRoleFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, s)
}

// ownStore resolves the store managed by the calling owner.
func (h *Handler) ownStore(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	s, err := h.Stores.OwnedBy(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) myStore(w http.ResponseWriter, r *http.Request) {
	if s, found := h.ownStore(w, r); found {
		ok(w, s)
	}
}

func (h *Handler) updateMyStore(w http.ResponseWriter, r *http.Request) {
	s, found := h.ownStore(w, r)
	if !found {
		return
	}
	var in store.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.Stores.Update(r.Context(), caller(r), s.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, updated)
}

func (h *Handler) listOwnProducts(w http.ResponseWriter, r *http.Request) {
	s, found := h.ownStore(w, r)
	if !found {
		return
	}
	p := productParams(r)
	p.StoreID = &s.ID
	h.writeProducts(w, r, p)
}

func (h *Handler) createOwnProduct(w http.ResponseWriter, r *http.Request) {
	if s, found := h.ownStore(w, r); found {
		h.createProduct(w, r, &s.ID)
	}
}

func (h *Handler) updateOwnProduct(w http.ResponseWriter, r *http.Request) {
	if s, found := h.ownStore(w, r); found {
		h.updateProduct(w, r, &s.ID)
	}
}

func (h *Handler) setOwnStock(w http.ResponseWriter, r *http.Request) {
	if s, found := h.ownStore(w, r); found {
		h.setStock(w, r, &s.ID)
	}
}

func (h *Handler) deleteOwnProduct(w http.ResponseWriter, r *http.Request) {
	if s, found := h.ownStore(w, r); found {
		h.deleteProduct(w, r, &s.ID)
	}
}

// listLowStock lists the owner's products at or under ?threshold (default
// product.DefaultLowStockThreshold).
func (h *Handler) listLowStock(w http.ResponseWriter, r *http.Request) {
	s, found := h.ownStore(w, r)
	if !found {
		return
	}
	products, err := h.Products.LowStock(r.Context(), s.ID, queryInt(r, "threshold"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, products)
}
