package i18n

import (
	"context"
	"net/http"
)

type langKey struct{}

// Middleware picks the request language from the "lang" query parameter or
// the Accept-Language header, falling back to defaultLang, and injects the
// matching localizer into the request context.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := Match(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), defaultLang)
			ctx := WithLocalizer(r.Context(), NewLocalizer(lang))
			ctx = context.WithValue(ctx, langKey{}, lang)
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LangFromContext returns the language chosen by Middleware, or "en".
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok {
		return lang
	}
	return "en"
}
