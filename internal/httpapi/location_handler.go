package httpapi

import (
	"net/http"

	"getir-be/internal/location"
)

func (h *Handler) listGovernorates(w http.ResponseWriter, r *http.Request) {
	govs, err := h.Locations.Governorates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, govs)
}

func (h *Handler) listCities(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cities, err := h.Locations.Cities(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, cities)
}

func (h *Handler) listAreas(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	areas, err := h.Locations.Areas(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, areas)
}

// Saved delivery locations. The location service reads the caller from the
// request context.

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.Locations.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, locs)
}

func (h *Handler) getLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	loc, err := h.Locations.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, loc)
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var in location.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	loc, err := h.Locations.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, loc)
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in location.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	loc, err := h.Locations.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, loc)
}

func (h *Handler) deleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Locations.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *Handler) setDefaultLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Locations.SetDefault(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}
