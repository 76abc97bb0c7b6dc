package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"tablify/models"
	"tablify/pkg/export"
	"tablify/pkg/log"
	"tablify/pkg/ocr"
	"tablify/pkg/pipeline"
	"tablify/pkg/storage"
	"tablify/pkg/table"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// objectStore is the subset of *storage.Archive used by the handlers.
type objectStore interface {
	Put(ctx context.Context, owner, id, filename, contentType string, data []byte) (string, error)
	PresignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

var _ objectStore = (*storage.Archive)(nil)

// server carries the dependencies of the HTTP handlers. db and archive are
// nil when not configured.
type server struct {
	pipeline  *pipeline.Pipeline
	db        *gorm.DB
	archive   objectStore
	jwtSecret []byte
	tokenTTL  time.Duration
	maxUpload int64
}

func newServer(cfg Config, p *pipeline.Pipeline, db *gorm.DB, archive objectStore) *server {
	return &server{
		pipeline:  p,
		db:        db,
		archive:   archive,
		jwtSecret: []byte(cfg.Server.JWTSecret),
		tokenTTL:  cfg.Server.TokenTTL,
		maxUpload: cfg.Server.MaxUploadMB << 20,
	}
}

func (s *server) setupRoutes(r *gin.Engine) {
	r.GET("/health", healthHandler)
	r.POST("/login", s.loginHandler)
	authGroup := r.Group("")
	authGroup.Use(s.jwtAuthMiddleware())
	authGroup.POST("/tables", s.extractTableHandler)
	authGroup.GET("/extractions", s.listExtractionsHandler)
	authGroup.GET("/extractions/:id", s.getExtractionHandler)
	authGroup.GET("/extractions/:id/csv", s.getExtractionCSVHandler)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		claims, err := parseToken(s.jwtSecret, authHeader[7:])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("client", claims.Client)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func (s *server) loginHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoDatabase.Error()})
		return
	}
	var req struct {
		Name   string `json:"name" binding:"required"`
		Secret string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := authenticateClient(s.db, req.Name, req.Secret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	token, err := issueToken(s.jwtSecret, client.Name, client.RoleName(), s.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// extractTableHandler converts an uploaded image and responds with the table
// in the requested format.
func (s *server) extractTableHandler(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.CSV)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	grid, err := gridFromQuery(c, s.pipeline.Options().Grid)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	name := filepath.Base(header.Filename)
	clientName := c.GetString("client")

	img, err := ocr.DecodeImage(bytes.NewReader(data), name)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	rec := models.Extraction{
		ID:          uuid.NewString(),
		ClientName:  clientName,
		Source:      "api",
		FileName:    name,
		ContentType: header.Header.Get("Content-Type"),
	}
	start := time.Now()
	tbl, err := s.pipeline.WithGrid(grid).Process(c.Request.Context(), img)
	rec.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		log.Errorf("extract %s for %s: %v", name, clientName, err)
		rec.Status = models.StatusFailed
		rec.FailedReason = truncate(err.Error(), 255)
		s.record(c, &rec)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "extraction failed"})
		return
	}

	var csvBuf bytes.Buffer
	if err := export.WriteCSV(&csvBuf, tbl.Strings()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode table"})
		return
	}
	rec.Status = models.StatusDone
	rec.RowCount = tbl.RowCount()
	rec.CellCount = tbl.CellCount()
	rec.CSV = csvBuf.String()
	s.archiveExtraction(c, &rec, data, csvBuf.Bytes())
	s.record(c, &rec)

	if format == export.CSV {
		c.Data(http.StatusOK, format.ContentType(), csvBuf.Bytes())
		return
	}
	var out bytes.Buffer
	if err := export.Write(&out, format, tbl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode table"})
		return
	}
	c.Data(http.StatusOK, format.ContentType(), out.Bytes())
}

// gridFromQuery overrides base with the row_tolerance and row_policy query parameters.
func gridFromQuery(c *gin.Context, base table.GridOptions) (table.GridOptions, error) {
	if v := c.Query("row_tolerance"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return base, errors.New("row_tolerance must be a non-negative integer")
		}
		base.RowTolerance = n
	}
	if v := c.Query("row_policy"); v != "" {
		p, err := table.ParseRowPolicy(v)
		if err != nil {
			return base, err
		}
		base.Policy = p
	}
	return base, nil
}

func (s *server) archiveExtraction(c *gin.Context, rec *models.Extraction, image, csv []byte) {
	if s.archive == nil {
		return
	}
	ctx := c.Request.Context()
	p, err := s.archive.Put(ctx, rec.ClientName, rec.ID, rec.FileName, rec.ContentType, image)
	if err != nil {
		log.Warnf("archive image %s: %v", rec.FileName, err)
	} else {
		rec.ImagePath = p
	}
	p, err = s.archive.Put(ctx, rec.ClientName, rec.ID, csvName(rec.FileName), export.CSV.ContentType(), csv)
	if err != nil {
		log.Warnf("archive csv %s: %v", rec.FileName, err)
	} else {
		rec.OutputPath = p
	}
}

// discardArchived removes the objects archived for rec, which would otherwise
// be unreachable without a database record.
func (s *server) discardArchived(ctx context.Context, rec *models.Extraction) {
	if s.archive == nil {
		return
	}
	for _, p := range []string{rec.ImagePath, rec.OutputPath} {
		if p == "" {
			continue
		}
		if err := s.archive.Delete(ctx, p); err != nil {
			log.Warnf("delete archived %s: %v", p, err)
		}
	}
	rec.ImagePath, rec.OutputPath = "", ""
}

// record stores rec and exposes its id. Failures only log.
func (s *server) record(c *gin.Context, rec *models.Extraction) {
	if s.db == nil {
		return
	}
	if rec.ClientName != "" {
		var client models.Client
		if err := s.db.Where("name = ?", rec.ClientName).First(&client).Error; err == nil {
			rec.ClientID = &client.ID
		}
	}
	if err := s.db.Create(rec).Error; err != nil {
		log.Warnf("record extraction %s: %v", rec.ID, err)
		s.discardArchived(c.Request.Context(), rec)
		return
	}
	c.Header("X-Extraction-ID", rec.ID)
}

// listExtractionsHandler returns the caller's latest extractions, or everyone's for administrators.
func (s *server) listExtractionsHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoDatabase.Error()})
		return
	}
	q := s.db.Model(&models.Extraction{}).Omit("CSV")
	if c.GetString("role") != models.RoleAdministrator {
		q = q.Where("client_name = ?", c.GetString("client"))
	}
	var list []models.Extraction
	if err := q.Order("created_at desc").Limit(100).Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// findExtraction loads the extraction named by :id if the caller may see it.
// It writes the error response itself and reports false on failure.
func (s *server) findExtraction(c *gin.Context) (*models.Extraction, bool) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoDatabase.Error()})
		return nil, false
	}
	var rec models.Extraction
	if err := s.db.Where("id = ?", c.Param("id")).First(&rec).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	if c.GetString("role") != models.RoleAdministrator && rec.ClientName != c.GetString("client") {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return &rec, true
}

func (s *server) getExtractionHandler(c *gin.Context) {
	rec, ok := s.findExtraction(c)
	if !ok {
		return
	}
	resp := gin.H{"extraction": rec}
	if s.archive != nil && rec.ImagePath != "" {
		if u, err := s.archive.PresignedURL(c.Request.Context(), rec.ImagePath, time.Hour); err == nil {
			resp["image_url"] = u
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) getExtractionCSVHandler(c *gin.Context) {
	rec, ok := s.findExtraction(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", attachment(csvName(rec.FileName)))
	c.Data(http.StatusOK, export.CSV.ContentType(), []byte(rec.CSV))
}

// attachment builds a Content-Disposition value with filename quoted as needed.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// csvName replaces the extension of an image file name with .csv.
func csvName(name string) string {
	return name[:len(name)-len(filepath.Ext(name))] + ".csv"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
