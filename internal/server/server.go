// Package server exposes the query form and JSON API over HTTP.
package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"bidsage/internal/pricing"
	"bidsage/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// displayLimit caps the past-sales list on the form page.
const displayLimit = 500

// Server serves the recommendation form, the JSON API and the debug
// endpoint.
type Server struct {
	store   store.Store
	advisor *pricing.Advisor
	logger  *zap.Logger
}

// New returns a Server reading from st.
func New(st store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:   st,
		advisor: pricing.NewAdvisor(st),
		logger:  logger,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(template.Must(template.New("index").Parse(indexHTML)))

	r.GET("/", s.handleIndex)
	r.POST("/", s.handleIndex)
	r.GET("/api/recommend", s.handleAPIRecommend)
	r.GET("/debug/sample", s.handleDebugSample)

	return r
}

// formData echoes the submitted form values back into the template.
type formData struct {
	Species    string
	Shiny      string
	Gender     string
	MinIVTotal string
	IVHP       string
	IVAtk      string
	IVDef      string
	IVSpAtk    string
	IVSpDef    string
	IVSpeed    string
}

// saleView is one past sale prepared for display.
type saleView struct {
	Shiny   bool
	Species string
	Level   string
	IVTotal string
	IVLine  string
	Bid     string
}

type pageData struct {
	Form      formData
	Submitted bool

	Success      bool
	Message      string
	Count        int
	Total        int
	Conservative string
	Aggressive   string
	Median       string
	Stdev        float64
	Trend        pricing.Trend

	Sales []saleView
}

func (s *Server) handleIndex(c *gin.Context) {
	form := formData{
		Species:    strings.TrimSpace(c.PostForm("species")),
		Shiny:      c.DefaultPostForm("shiny", "any"),
		Gender:     c.DefaultPostForm("gender", "any"),
		MinIVTotal: c.PostForm("min_iv_total"),
		IVHP:       c.PostForm("iv_hp"),
		IVAtk:      c.PostForm("iv_atk"),
		IVDef:      c.PostForm("iv_def"),
		IVSpAtk:    c.PostForm("iv_spatk"),
		IVSpDef:    c.PostForm("iv_spdef"),
		IVSpeed:    c.PostForm("iv_speed"),
	}

	data := pageData{Form: form}

	if c.Request.Method == http.MethodPost && form.Species != "" {
		data.Submitted = true
		f := filterFromValues(func(key string) string { return c.PostForm(key) })

		rec, err := s.advisor.RecommendFor(c.Request.Context(), f)
		switch {
		case err == nil:
			data.Success = true
			data.Count = rec.Count
			data.Total = rec.OriginalCount
			data.Conservative = comma(rec.ConservativeBid)
			data.Aggressive = comma(rec.AggressiveBid)
			data.Median = comma(rec.Median)
			data.Stdev = rec.Stdev
			data.Trend = rec.Trend
		case errors.Is(err, pricing.ErrNoSamples), errors.Is(err, pricing.ErrNotEnoughSamples):
			data.Message = err.Error()
		default:
			s.logger.Error("recommendation failed", zap.Error(err))
			data.Message = "Internal error computing recommendation."
		}

		sales, err := s.advisor.CohortSales(c.Request.Context(), f, displayLimit)
		if err != nil {
			s.logger.Error("cohort query failed", zap.Error(err))
		}
		for _, rec := range sales {
			data.Sales = append(data.Sales, newSaleView(rec))
		}
	}

	c.HTML(http.StatusOK, "index", data)
}

func (s *Server) handleAPIRecommend(c *gin.Context) {
	species := strings.TrimSpace(c.Query("species"))
	if species == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "species is required"})
		return
	}

	f := filterFromValues(func(key string) string { return c.Query(key) })

	rec, err := s.advisor.RecommendFor(c.Request.Context(), f)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "recommendation": rec})
	case errors.Is(err, pricing.ErrNoSamples), errors.Is(err, pricing.ErrNotEnoughSamples):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
	default:
		s.logger.Error("recommendation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
	}
}

func (s *Server) handleDebugSample(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	example, err := s.store.QuerySales(c.Request.Context(), store.Filter{}, store.OrderChronological, 1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	payload := gin.H{
		"total_sales":      stats.TotalSales,
		"with_winning_bid": stats.WithWinningBid,
		"shiny_sales":      stats.ShinySales,
		"distinct_species": stats.DistinctSpecies,
	}
	if len(example) > 0 {
		payload["example"] = example[0]
	}
	c.JSON(http.StatusOK, payload)
}

// filterFromValues builds a cohort filter from form or query values.
// Unparsable numbers are ignored rather than rejected, matching the
// form's free-text inputs.
func filterFromValues(get func(key string) string) store.Filter {
	f := store.Filter{Species: strings.TrimSpace(get("species"))}

	switch strings.ToLower(strings.TrimSpace(get("shiny"))) {
	case "yes", "1", "true", "shiny":
		t := true
		f.Shiny = &t
	case "no", "0", "false", "normal":
		fa := false
		f.Shiny = &fa
	}

	if g := strings.TrimSpace(get("gender")); g != "" && !strings.EqualFold(g, "any") {
		f.Gender = g
	}
	if n := strings.TrimSpace(get("nature")); n != "" {
		f.Nature = n
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(get("min_iv_total")), 64); err == nil {
		f.MinIVTotal = &v
	}

	for _, iv := range []struct {
		key string
		dst **int
	}{
		{"iv_hp", &f.MinIVHP},
		{"iv_atk", &f.MinIVAtk},
		{"iv_def", &f.MinIVDef},
		{"iv_spatk", &f.MinIVSpAtk},
		{"iv_spdef", &f.MinIVSpDef},
		{"iv_speed", &f.MinIVSpeed},
	} {
		if v, err := strconv.Atoi(strings.TrimSpace(get(iv.key))); err == nil && v >= 0 && v <= 31 {
			val := v
			*iv.dst = &val
		}
	}

	if v, err := strconv.Atoi(strings.TrimSpace(get("min_level"))); err == nil {
		f.MinLevel = &v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(get("max_level"))); err == nil {
		f.MaxLevel = &v
	}

	return f
}

func newSaleView(rec *store.SaleRecord) saleView {
	v := saleView{
		Shiny:   rec.Shiny,
		Species: rec.Species,
		Level:   "?",
		IVTotal: "?",
		Bid:     "—",
	}
	if rec.Level != nil {
		v.Level = strconv.Itoa(*rec.Level)
	}
	if rec.IVTotal != nil {
		v.IVTotal = fmt.Sprintf("%.1f%%", *rec.IVTotal)
	}
	if rec.WinningBid != nil {
		v.Bid = comma(*rec.WinningBid)
	}

	parts := make([]string, 0, 6)
	for _, iv := range []*int{rec.IVHP, rec.IVAtk, rec.IVDef, rec.IVSpAtk, rec.IVSpDef, rec.IVSpeed} {
		if iv == nil {
			parts = append(parts, "?")
		} else {
			parts = append(parts, strconv.Itoa(*iv))
		}
	}
	v.IVLine = strings.Join(parts, "/")
	return v
}

// comma renders n with thousands separators.
func comma(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
