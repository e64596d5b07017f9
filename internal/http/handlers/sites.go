package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/http/middlewares"
	"github.com/geocoder89/safeguard/internal/sites"
)

type SitesHandler struct {
	svc *sites.Service
}

func NewSitesHandler(svc *sites.Service) *SitesHandler {
	return &SitesHandler{svc: svc}
}

type sitesView struct {
	Sites      []sites.Site  `json:"sites"`
	Total      int           `json:"total"`
	Categories []string      `json:"categories"`
	Filter     sitesFilter   `json:"filter"`
	Summary    sites.Summary `json:"summary"`
}

type sitesFilter struct {
	Search   string `json:"search"`
	Category string `json:"category"`
}

func categoryOptions() []string {
	out := []string{sites.AllCategories}
	for _, c := range sites.Categories {
		out = append(out, string(c))
	}
	return out
}

// load lists the caller's sites and applies the ?search=&category= filter.
func (h *SitesHandler) load(ctx *gin.Context) (sitesView, error) {
	token, _ := middlewares.StoreFrom(ctx).GetToken(ctx.Request.Context())

	list, err := h.svc.List(ctx.Request.Context(), token)
	if err != nil {
		return sitesView{}, err
	}

	f := sitesFilter{
		Search:   ctx.Query("search"),
		Category: ctx.DefaultQuery("category", sites.AllCategories),
	}
	filtered := sites.Filter(list, f.Search, f.Category)

	return sitesView{
		Sites:      filtered,
		Total:      len(filtered),
		Categories: categoryOptions(),
		Filter:     f,
		Summary:    sites.Summarize(list),
	}, nil
}

func (h *SitesHandler) List(ctx *gin.Context) {
	view, err := h.load(ctx)
	if err != nil {
		respondBackendErr(ctx, err)
		return
	}
	respondData(ctx, http.StatusOK, "ok", view)
}

func (h *SitesHandler) Add(ctx *gin.Context) {
	var in sites.AddInput
	if !BindJSON(ctx, &in) {
		return
	}

	token, _ := middlewares.StoreFrom(ctx).GetToken(ctx.Request.Context())
	site, err := h.svc.Add(ctx.Request.Context(), token, in)
	if errors.Is(err, sites.ErrInvalidURL) {
		RespondBadRequest(ctx, "Invalid site URL", gin.H{"fields": []FieldError{{
			Field:   "url",
			Rule:    "url",
			Message: "must be a domain such as example.com",
		}}})
		return
	}
	if err != nil {
		respondBackendErr(ctx, err)
		return
	}

	respondData(ctx, http.StatusCreated, "Site blocked", site)
}

func (h *SitesHandler) Remove(ctx *gin.Context) {
	token, _ := middlewares.StoreFrom(ctx).GetToken(ctx.Request.Context())
	if err := h.svc.Remove(ctx.Request.Context(), token, ctx.Param("id")); err != nil {
		respondBackendErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, envelope{Success: true, Message: "Site unblocked"})
}
