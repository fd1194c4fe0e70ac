package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// Targets são os serviços atrás do gateway
type Targets struct {
	CaseURL   string
	WalletURL string
}

func proxy(to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", to)
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

// NewRouter monta as rotas públicas:
//
//	/api/v1/*     -> case-service /v1/*
//	/api/wallet/* -> wallet-service /wallet/*
//	/ws/drops     -> case-service (upgrade repassado pelo proxy)
func NewRouter(t Targets) (http.Handler, error) {
	cases, err := proxy(t.CaseURL)
	if err != nil {
		return nil, err
	}
	wallet, err := proxy(t.WalletURL)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(cors)
	r.Handle("/api/v1/*", http.StripPrefix("/api", cases))
	r.Handle("/api/wallet", http.StripPrefix("/api", wallet))
	r.Handle("/api/wallet/*", http.StripPrefix("/api", wallet))
	r.Handle("/ws/drops", cases)
	return r, nil
}

func cors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token, X-Admin-User")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
