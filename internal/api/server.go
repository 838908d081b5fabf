package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raine/ciftci-pazari-bot/internal/storage"
	"github.com/raine/ciftci-pazari-bot/internal/verify"
	"github.com/rs/zerolog/log"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	shutdownTimeout  = 10 * time.Second
)

// Verifier checks product submissions. Check reports the underlying failure
// alongside the rejection result so the handler can log it.
type Verifier interface {
	Check(ctx context.Context, req verify.Request) (verify.Result, error)
	Configured() bool
}

// Store is the product storage used by the API.
type Store interface {
	GetProduct(id string) (*storage.Product, error)
	ListProductsByStatus(status storage.ProductStatus, limit int) ([]storage.Product, error)
	SetProductStatus(id string, status storage.ProductStatus, reviewedBy int64) (*storage.Product, error)
}

// ReviewNotifier tells producers about moderation decisions made over HTTP.
type ReviewNotifier interface {
	NotifyProductReviewed(product *storage.Product)
}

// Server is the marketplace backend REST API.
type Server struct {
	verifier Verifier
	store    Store
	notifier ReviewNotifier
	router   *gin.Engine
}

// ProductResponse is the JSON form of a stored product.
type ProductResponse struct {
	ID           string     `json:"id"`
	ProducerID   int64      `json:"producerId"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	ImageRef     string     `json:"imageRef,omitempty"`
	Status       string     `json:"status"`
	IsValid      bool       `json:"isValid"`
	Confidence   float64    `json:"confidence"`
	Reason       string     `json:"reason"`
	AutoApproved bool       `json:"autoApproved"`
	CreatedAt    time.Time  `json:"createdAt"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy   int64      `json:"reviewedBy,omitempty"`
}

// ReviewRequest is the optional body of the approve and reject endpoints.
type ReviewRequest struct {
	ReviewedBy int64 `json:"reviewedBy"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates the API server and registers its routes.
func NewServer(verifier Verifier, store Store) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		verifier: verifier,
		store:    store,
		router:   router,
	}
	s.routes()
	return s
}

// WithNotifier reports approve and reject decisions to producers.
func (s *Server) WithNotifier(notifier ReviewNotifier) *Server {
	s.notifier = notifier
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth)

	products := s.router.Group("/api/products")
	products.POST("/verify", s.handleVerify)
	products.GET("", s.handleList)
	products.GET("/:id", s.handleGet)
	products.POST("/:id/approve", s.handleReview(storage.StatusApproved))
	products.POST("/:id/reject", s.handleReview(storage.StatusRejected))
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves the API on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown failed")
		} else {
			log.Info().Msg("http server stopped")
		}
	}()

	log.Info().Str("addr", addr).Msg("starting http server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"verification": s.verifier.Configured(),
	})
}

// handleVerify always answers 200 with a result once the body parses;
// verification failures are rejections, not HTTP errors.
func (s *Server) handleVerify(c *gin.Context) {
	var req verify.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	result, err := s.verifier.Check(c.Request.Context(), req)
	if err != nil && !errors.Is(err, verify.ErrNotConfigured) {
		log.Warn().Err(err).Str("product", req.ProductName).Msg("api verification failed")
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleList(c *gin.Context) {
	status := storage.ProductStatus(c.DefaultQuery("status", string(storage.StatusPending)))
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown status %q", status)})
		return
	}

	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	products, err := s.store.ListProductsByStatus(status, limit)
	if err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("failed to list products")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list products"})
		return
	}

	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGet(c *gin.Context) {
	product, err := s.store.GetProduct(c.Param("id"))
	if errors.Is(err, storage.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "product not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("productId", c.Param("id")).Msg("failed to get product")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to get product"})
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

func (s *Server) handleReview(status storage.ProductStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body ReviewRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
				return
			}
		}

		id := c.Param("id")
		product, err := s.store.SetProductStatus(id, status, body.ReviewedBy)
		if errors.Is(err, storage.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "product not found"})
			return
		}
		if err != nil {
			log.Error().Err(err).Str("productId", id).Msg("failed to review product")
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to update product"})
			return
		}

		log.Info().Str("productId", id).Str("status", string(status)).Msg("product reviewed via api")
		if s.notifier != nil {
			s.notifier.NotifyProductReviewed(product)
		}
		c.JSON(http.StatusOK, toProductResponse(product))
	}
}

func toProductResponse(p *storage.Product) ProductResponse {
	resp := ProductResponse{
		ID:           p.ID,
		ProducerID:   p.ProducerID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Status:       string(p.Status),
		IsValid:      p.IsValid,
		Confidence:   p.Confidence,
		Reason:       p.Reason,
		AutoApproved: p.AutoApproved,
		CreatedAt:    p.CreatedAt,
		ReviewedAt:   p.ReviewedAt,
		ReviewedBy:   p.ReviewedBy,
	}
	// Inline photos from the bot are too large for list responses
	if verify.ClassifyImageRef(p.ImageRef).IsRemote() {
		resp.ImageRef = p.ImageRef
	}
	return resp
}

// requestLogger logs each request through zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
