package i18n

import "net/http"

// Middleware injects a localizer into every request context. The
// Accept-Language header wins over the configured language.
func Middleware(lang string) func(http.Handler) http.Handler {
	fallback := NewLocalizer(lang)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := fallback
			if accept := r.Header.Get("Accept-Language"); accept != "" {
				loc = NewLocalizer(accept, lang)
			}
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), loc)))
		})
	}
}
