package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"go-disaster-id-scan/internal/config"
	apperrors "go-disaster-id-scan/internal/errors"
	"go-disaster-id-scan/internal/logger"
	"go-disaster-id-scan/internal/service"
	"go-disaster-id-scan/pkg/models"
)

// handler serves the registration desk API
type handler struct {
	svc       service.RegistrationService
	ocrEngine string
}

// NewHandler builds the HTTP routes. gatherer backs /metrics.
func NewHandler(svc service.RegistrationService, cfg *config.Config, gatherer prometheus.Gatherer, ocrEngine string) http.Handler {
	h := &handler{svc: svc, ocrEngine: ocrEngine}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		requestTimeout(cfg.RequestTimeout),
		errorHandler(),
	)

	r.GET("/health", h.healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.POST("/mrz/parse", h.parseMRZ)
	r.POST("/scan", h.scanFrame)
	r.POST("/scan/url", h.scanURL)

	registrants := r.Group("/registrants")
	registrants.GET("", h.listRegistrants)
	registrants.POST("", h.createRegistrant)
	registrants.GET("/:id", h.getRegistrant)
	registrants.PUT("/:id", h.updateRegistrant)
	registrants.DELETE("/:id", h.deleteRegistrant)

	r.GET("/export.csv", h.downloadExport)
	r.POST("/export", h.writeExport)

	return r
}

func (h *handler) healthCheck(c *gin.Context) {
	status, code := "available", http.StatusOK
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		logger.WithError(err).Warn("Health check failed")
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	c.JSON(code, models.HealthResponse{
		Status:    status,
		OCREngine: h.ocrEngine,
		Timestamp: time.Now().UTC(),
	})
}

func (h *handler) parseMRZ(c *gin.Context) {
	var req models.ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	resp, err := h.svc.ParseText(c.Request.Context(), req)
	respondScan(c, "failed to parse MRZ", resp, err)
}

func (h *handler) scanFrame(c *gin.Context) {
	file, err := c.FormFile("frame")
	if err != nil {
		respondError(c, http.StatusBadRequest, "multipart field 'frame' is required", err)
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read frame", err)
		return
	}
	defer f.Close()

	frame, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read frame", err)
		return
	}

	logger.WithFields(logrus.Fields{
		"filename": file.Filename,
		"bytes":    len(frame),
	}).Debug("Scanning uploaded frame")

	resp, err := h.svc.ScanFrame(c.Request.Context(), frame, c.PostForm("expected_mrz"))
	respondScan(c, "scan failed", resp, err)
}

func (h *handler) scanURL(c *gin.Context) {
	var req models.ScanURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	resp, err := h.svc.ScanURL(c.Request.Context(), req)
	respondScan(c, "scan failed", resp, err)
}

func (h *handler) listRegistrants(c *gin.Context) {
	list, err := h.svc.ListRegistrants(c.Request.Context())
	if err != nil {
		respondAppError(c, "failed to list registrants", err)
		return
	}

	resp := models.RegistrantListResponse{
		Registrants: make([]models.RegistrantResponse, 0, len(list)),
		Count:       len(list),
	}
	for _, r := range list {
		resp.Registrants = append(resp.Registrants, models.NewRegistrantResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) createRegistrant(c *gin.Context) {
	var req models.RegistrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	r, err := req.ToRegistrant()
	if err != nil {
		respondAppError(c, "invalid registrant", err)
		return
	}

	saved, err := h.svc.Register(c.Request.Context(), r)
	if err != nil {
		respondAppError(c, "failed to register", err)
		return
	}
	c.JSON(http.StatusCreated, models.NewRegistrantResponse(saved))
}

func (h *handler) getRegistrant(c *gin.Context) {
	r, err := h.svc.GetRegistrant(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondAppError(c, "failed to load registrant", err)
		return
	}
	c.JSON(http.StatusOK, models.NewRegistrantResponse(r))
}

func (h *handler) updateRegistrant(c *gin.Context) {
	var req models.RegistrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	r, err := req.ToRegistrant()
	if err != nil {
		respondAppError(c, "invalid registrant", err)
		return
	}
	r.ID = c.Param("id")

	updated, err := h.svc.UpdateRegistrant(c.Request.Context(), r)
	if err != nil {
		respondAppError(c, "failed to update registrant", err)
		return
	}
	c.JSON(http.StatusOK, models.NewRegistrantResponse(updated))
}

func (h *handler) deleteRegistrant(c *gin.Context) {
	if err := h.svc.DeleteRegistrant(c.Request.Context(), c.Param("id")); err != nil {
		respondAppError(c, "failed to delete registrant", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) downloadExport(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="disaster-id-scan_export.csv"`)
	if err := h.svc.WriteCSV(c.Request.Context(), c.Writer); err != nil {
		respondAppError(c, "export failed", err)
	}
}

func (h *handler) writeExport(c *gin.Context) {
	if err := h.svc.Export(c.Request.Context()); err != nil {
		respondAppError(c, "export failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "exported"})
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":             c.Request.Method,
			"path":               c.FullPath(),
			"status":             c.Writer.Status(),
			"processing_time_ms": time.Since(start).Milliseconds(),
			"ip":                 c.ClientIP(),
		}).Info("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondScan sends resp, or the error with any decode it still produced.
func respondScan(c *gin.Context, message string, resp *models.ScanResponse, err error) {
	if err == nil {
		c.JSON(http.StatusOK, resp)
		return
	}
	respondAppErrorWithResult(c, message, err, resp)
}

// respondAppError derives the status from err, keeping the AppError's own
// message and details for the operator.
func respondAppError(c *gin.Context, message string, err error) {
	respondAppErrorWithResult(c, message, err, nil)
}

func respondAppErrorWithResult(c *gin.Context, message string, err error, result *models.ScanResponse) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondError(c, determineStatusCode(err), message, err)
		return
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": appErr.StatusCode,
		"error_type":  appErr.Type,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
	}).Warn("Request failed")

	c.AbortWithStatusJSON(appErr.StatusCode, models.ErrorResponse{
		Error:   string(appErr.Type),
		Message: fmt.Sprintf("%s: %s", message, appErr.Message),
		Details: appErr.Details,
		Result:  result,
	})
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
