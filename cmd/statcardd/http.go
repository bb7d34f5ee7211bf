package main

import (
	"net/http"

	"statcard-backend/services/statcard"
)

func statusForKind(kind statcard.FailureKind) int {
	switch kind {
	case statcard.KindInvalidHandle:
		return http.StatusBadRequest
	case statcard.KindHandleNotFound:
		return http.StatusNotFound
	case statcard.KindFetchTimeout, statcard.KindReadinessTimeout:
		return http.StatusGatewayTimeout
	case statcard.KindLayoutChanged, statcard.KindMissingCoreFields:
		return http.StatusBadGateway
	case statcard.KindTemplateMissing:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newMux(service *statcard.Service) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /v1/card/{handle}", func(w http.ResponseWriter, r *http.Request) {
		png, err := service.GetStatsImage(r.Context(), r.PathValue("handle"))
		if err != nil {
			http.Error(w, err.Error(), statusForKind(statcard.KindOf(err)))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	return mux
}
