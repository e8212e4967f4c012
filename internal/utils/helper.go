package utils

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	nonAlnumRegex  = regexp.MustCompile(`[^a-z0-9]+`)
	multiDashRegex = regexp.MustCompile(`-+`)
	nonDigitRegex  = regexp.MustCompile(`[^0-9]+`)
)

func Slugify(input string) string {
	slug := strings.ToLower(strings.TrimSpace(input))

	// Replace non-alphanumeric characters with dash
	slug = nonAlnumRegex.ReplaceAllString(slug, "-")
	slug = multiDashRegex.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}

// StoreCode builds a unique store code from the store name plus the first
// segment of a random UUID. Names without latin characters fall back to "store".
func StoreCode(name string) string {
	slug := Slugify(name)
	if slug == "" {
		slug = "store"
	}
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return slug + "-" + suffix
}

// NormalizePhone strips everything but digits.
func NormalizePhone(phone string) string {
	return nonDigitRegex.ReplaceAllString(phone, "")
}

func StrPtr(s string) *string {
	return &s
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ToUint(id string) (uint, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	return uint(n), err
}

// Paginate normalizes limit/page (defaults 20/1, limit capped at 100) and
// returns the offset.
func Paginate(limit, page int) (int, int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return limit, page, (page - 1) * limit
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}
