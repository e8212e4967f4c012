package httpapi

import (
	"net/http"

	"getir-be/internal/category"
	"getir-be/internal/product"
	"getir-be/internal/store"
	"getir-be/internal/storetype"
)

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Categories.List(r.Context(), r.URL.Query().Get("search"), false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, cats)
}

func (h *Handler) adminListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Categories.List(r.Context(), r.URL.Query().Get("search"), true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, cats)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Categories.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, c)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in category.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Categories.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, c)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in category.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Categories.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, c)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Categories.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *Handler) listStoreTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.StoreTypes.List(r.Context(), false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, types)
}

func (h *Handler) adminListStoreTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.StoreTypes.List(r.Context(), true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, types)
}

func (h *Handler) createStoreType(w http.ResponseWriter, r *http.Request) {
	var in storetype.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.StoreTypes.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, t)
}

func (h *Handler) updateStoreType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in storetype.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.StoreTypes.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, t)
}

func (h *Handler) deleteStoreType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.StoreTypes.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	limit, page := pagination(r)
	stores, total, err := h.Stores.List(r.Context(), store.ListParams{
		ActiveOnly:  true,
		StoreTypeID: queryUint(r, "store_type_id"),
		Search:      r.URL.Query().Get("search"),
		Limit:       limit,
		Page:        page,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, stores, limit, page, total)
}

func (h *Handler) adminListStores(w http.ResponseWriter, r *http.Request) {
	limit, page := pagination(r)
	stores, total, err := h.Stores.List(r.Context(), store.ListParams{
		StoreTypeID: queryUint(r, "store_type_id"),
		Search:      r.URL.Query().Get("search"),
		Limit:       limit,
		Page:        page,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, stores, limit, page, total)
}

func (h *Handler) getStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Stores.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, s)
}

func (h *Handler) toggleStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Stores.ToggleActive(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, s)
}

// productParams reads the shared catalog filters from the query string.
func productParams(r *http.Request) product.ListParams {
	q := r.URL.Query()
	limit, page := pagination(r)
	return product.ListParams{
		CategoryID:   queryUint(r, "category_id"),
		StoreID:      queryUint(r, "store_id"),
		Search:       q.Get("search"),
		FeaturedOnly: queryBool(r, "featured"),
		Sort:         product.Sort(q.Get("sort")),
		Limit:        limit,
		Page:         page,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	p := productParams(r)
	p.AvailableOnly = true
	h.writeProducts(w, r, p)
}

func (h *Handler) listStoreProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Stores.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	p := productParams(r)
	p.StoreID = &id
	p.AvailableOnly = true
	h.writeProducts(w, r, p)
}

func (h *Handler) writeProducts(w http.ResponseWriter, r *http.Request, p product.ListParams) {
	products, total, err := h.Products.List(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, products, p.Limit, p.Page, total)
}

func (h *Handler) productDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Products.Detail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, d)
}

func (h *Handler) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	h.createProduct(w, r, nil)
}

func (h *Handler) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	h.updateProduct(w, r, nil)
}

func (h *Handler) adminSetStock(w http.ResponseWriter, r *http.Request) {
	h.setStock(w, r, nil)
}

func (h *Handler) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.deleteProduct(w, r, nil)
}

// The product writers below take the acting store; nil means an admin.

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request, storeID *uint) {
	var in product.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Products.Create(r.Context(), storeID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request, storeID *uint) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in product.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Products.Update(r.Context(), storeID, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, p)
}

type stockRequest struct {
	StockQuantity int `json:"stock_quantity"`
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request, storeID *uint) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Products.SetStock(r.Context(), storeID, id, req.StockQuantity); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request, storeID *uint) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Products.Delete(r.Context(), storeID, id); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}
