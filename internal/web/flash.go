package web

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const flashCookie = "flash"

// Flash categories double as CSS alert classes
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next page render
type Flash struct {
	Category string
	Message  string
}

func setFlash(w http.ResponseWriter, f Flash) {
	value := base64.RawURLEncoding.EncodeToString([]byte(f.Category + "\n" + f.Message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash. A missing or garbled cookie
// yields nil.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	category, message, ok := strings.Cut(string(raw), "\n")
	if !ok || message == "" {
		return nil
	}
	switch category {
	case FlashSuccess, FlashWarning, FlashDanger:
		return &Flash{Category: category, Message: message}
	default:
		return nil
	}
}
