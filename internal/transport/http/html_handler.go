package http

import (
	"net/http"

	"cleanbot/web"
)

// Index serves the embedded control panel at GET /.
func Index(w http.ResponseWriter, r *http.Request) {
	page, err := web.Index()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}
