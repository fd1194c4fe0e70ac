package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/slotbox-platform-poc/internal/case-service/dto"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/purchase"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/repo"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/rtp"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/wallet"
	"github.com/radieske/slotbox-platform-poc/internal/draw"
	"github.com/radieske/slotbox-platform-poc/internal/opening-processor/stats"
)

type CaseCatalog interface {
	ListActiveCases(ctx context.Context) ([]repo.CaseSummary, error)
	GetOpening(ctx context.Context, id string) (*repo.Opening, error)
}

type CaseReader interface {
	GetCase(ctx context.Context, id string) (draw.Case, error)
	Invalidate(ctx context.Context, id string) error
}

type Opener interface {
	Open(ctx context.Context, userID, caseID string) (*purchase.OpenResult, error)
}

type DistributionCalculator interface {
	Distribution(c draw.Case, rtpTarget decimal.Decimal) (draw.Distribution, error)
}

type StatsReader interface {
	Global(ctx context.Context) (stats.Totals, error)
	PerCase(ctx context.Context) ([]stats.Totals, error)
}

// API expõe o catálogo de caixas, a compra e a administração do RTP
type API struct {
	Log        *zap.Logger
	Catalog    CaseCatalog
	Cases      CaseReader
	Opener     Opener
	RTP        rtp.Store
	Engine     DistributionCalculator
	Stats      StatsReader
	Drops      http.HandlerFunc
	AdminToken string
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/v1/cases", a.listCases)
	r.Get("/v1/cases/{id}", a.getCase)
	r.Post("/v1/cases/{id}/open", a.openCase)
	r.Get("/v1/openings/{id}", a.getOpening)

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(a.requireAdmin)
		r.Get("/rtp", a.getRTP)
		r.Put("/rtp", a.putRTP)
		r.Get("/cases/{id}/distribution", a.getDistribution)
		r.Post("/cases/{id}/refresh", a.refreshCase)
		r.Get("/stats", a.getStats)
	})

	if a.Drops != nil {
		r.Get("/ws/drops", a.Drops)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

// requireAdmin exige X-Admin-Token; token vazio na config desliga o admin
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Admin-Token")
		if a.AdminToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(a.AdminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) listCases(w http.ResponseWriter, r *http.Request) {
	cs, err := a.Catalog.ListActiveCases(r.Context())
	if err != nil {
		a.internal(w, "list cases", err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (a *API) getCase(w http.ResponseWriter, r *http.Request) {
	c, err := a.Cases.GetCase(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "case not found")
		return
	}
	if err != nil {
		a.internal(w, "get case", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewCaseDetail(c))
}

func (a *API) openCase(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}

	res, err := a.Opener.Open(r.Context(), req.UserID, chi.URLParam(r, "id"))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			a.internal(w, "open case", err)
			return
		}
		writeError(w, status, err.Error())
		return
	}

	o := res.Opening
	writeJSON(w, http.StatusOK, dto.OpenCaseResponse{
		OpeningID: o.ID,
		CaseID:    o.CaseID,
		Price:     o.Price,
		Prize:     dto.PrizeView{ID: res.Prize.ID, Name: res.Prize.Name, Value: res.Prize.Value, ImageURL: res.Prize.ImageURL},
		Roll:      o.Roll,
		RTPTarget: o.RTPTarget,
		CreatedAt: o.CreatedAt,
	})
}

// statusFor traduz os erros da compra em status HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, purchase.ErrCaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, purchase.ErrCaseInactive), errors.Is(err, wallet.ErrRejected):
		return http.StatusConflict
	case errors.Is(err, draw.ErrInvalidCaseState),
		errors.Is(err, draw.ErrInvalidConfiguration),
		errors.Is(err, purchase.ErrInvalidPrice):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) getOpening(w http.ResponseWriter, r *http.Request) {
	o, err := a.Catalog.GetOpening(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "opening not found")
		return
	}
	if err != nil {
		a.internal(w, "get opening", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) getRTP(w http.ResponseWriter, r *http.Request) {
	snap, err := a.RTP.Current(r.Context())
	if err != nil {
		a.internal(w, "get rtp", err)
		return
	}
	writeJSON(w, http.StatusOK, rtpResponse(snap))
}

func (a *API) putRTP(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateRTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.RTPTarget == nil {
		writeError(w, http.StatusBadRequest, "rtp_target required")
		return
	}
	by := r.Header.Get("X-Admin-User")
	if by == "" {
		by = "admin"
	}

	snap, err := a.RTP.Update(r.Context(), rtp.Update{
		Target:      *req.RTPTarget,
		Recommended: req.RTPRecommended,
		UpdatedBy:   by,
	})
	if errors.Is(err, draw.ErrInvalidConfiguration) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		a.internal(w, "update rtp", err)
		return
	}
	a.Log.Info("rtp updated", zap.String("rtpTarget", snap.Target.StringFixed(2)), zap.String("by", by))
	writeJSON(w, http.StatusOK, rtpResponse(snap))
}

func rtpResponse(s rtp.Snapshot) dto.RTPResponse {
	return dto.RTPResponse{
		RTPTarget:      s.Target,
		RTPRecommended: s.Recommended,
		UpdatedBy:      s.UpdatedBy,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (a *API) getDistribution(w http.ResponseWriter, r *http.Request) {
	c, err := a.Cases.GetCase(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "case not found")
		return
	}
	if err != nil {
		a.internal(w, "get case", err)
		return
	}
	snap, err := a.RTP.Current(r.Context())
	if err != nil {
		a.internal(w, "get rtp", err)
		return
	}
	d, err := a.Engine.Distribution(c, snap.Target)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) refreshCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Cases.Invalidate(r.Context(), id); err != nil {
		a.internal(w, "invalidate case", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	Global dto.StatsResponse   `json:"global"`
	Cases  []dto.StatsResponse `json:"cases"`
}

func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	g, err := a.Stats.Global(r.Context())
	if err != nil {
		a.internal(w, "stats global", err)
		return
	}
	per, err := a.Stats.PerCase(r.Context())
	if err != nil {
		a.internal(w, "stats per case", err)
		return
	}
	out := statsResponse{Global: statsView(g), Cases: make([]dto.StatsResponse, 0, len(per))}
	for _, t := range per {
		out.Cases = append(out.Cases, statsView(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func statsView(t stats.Totals) dto.StatsResponse {
	return dto.StatsResponse{
		CaseID:       t.CaseID,
		Openings:     t.Openings,
		WageredCents: t.WageredCents,
		PayoutCents:  t.PayoutCents,
		RealizedRTP:  t.RealizedRTP(),
	}
}

func (a *API) internal(w http.ResponseWriter, op string, err error) {
	a.Log.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
