package fakeapi

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

type middleware func(http.HandlerFunc) http.HandlerFunc

// chainMiddleware wraps h so the first middleware runs first.
func chainMiddleware(h http.HandlerFunc, mw ...middleware) http.HandlerFunc {
	chained := h
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

func loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("fakeapi request")
		next(w, r)
	}
}

// recoverMiddleware turns a handler panic into a 500 so a broken test fails
// on the assertion rather than on a dropped connection.
func recoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("fakeapi handler panicked")
				respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
			}
		}()
		next(w, r)
	}
}
