// Package server exposes the job submission, status, results and export
// endpoints. It is a thin collaborator around the queue and the stores; all
// verification logic lives in the pipeline.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/verifyhq/scorecard-verifier/internal/async"
	"github.com/verifyhq/scorecard-verifier/internal/common"
	"github.com/verifyhq/scorecard-verifier/internal/export"
	"github.com/verifyhq/scorecard-verifier/internal/repository"
)

type Server struct {
	jobs      repository.JobRepository
	results   repository.ResultRepository
	queue     async.Queue
	exporter  *export.Service
	uploadDir string
	log       *slog.Logger
}

func New(
	jobs repository.JobRepository,
	results repository.ResultRepository,
	queue async.Queue,
	exporter *export.Service,
	uploadDir string,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		jobs:      jobs,
		results:   results,
		queue:     queue,
		exporter:  exporter,
		uploadDir: uploadDir,
		log:       logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.POST("/jobs", s.startJob)
		api.GET("/jobs/:id", s.jobStatus)
		api.GET("/jobs/:id/results", s.jobResults)
		api.GET("/jobs/:id/export", s.jobExport)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

type jobResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toJobResponse(j *repository.Job) jobResponse {
	return jobResponse{
		ID:        j.ID.String(),
		Status:    string(j.Status),
		Details:   j.Details,
		CreatedAt: j.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// startJob accepts a master CSV plus either a server-side source directory
// path or a set of uploaded source files, creates the job, and schedules the
// pipeline asynchronously. The job never runs synchronously here.
func (s *Server) startJob(c *gin.Context) {
	masterFile, err := c.FormFile("master_csv")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "master_csv file is required"})
		return
	}

	sourcePath := strings.TrimSpace(c.PostForm("source_path"))
	form, _ := c.MultipartForm()
	var sourceFiles []string
	if form != nil {
		for _, f := range form.File["source_files"] {
			sourceFiles = append(sourceFiles, f.Filename)
		}
	}
	if sourcePath == "" && len(sourceFiles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_path or source_files is required"})
		return
	}

	job, err := s.jobs.Create(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("create job: %v", err)})
		return
	}

	jobDir := filepath.Join(s.uploadDir, job.ID.String())
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("prepare upload dir: %v", err)})
		return
	}

	masterPath := filepath.Join(jobDir, "master.csv")
	if err := c.SaveUploadedFile(masterFile, masterPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("save master csv: %v", err)})
		return
	}

	root := sourcePath
	if root == "" {
		root = filepath.Join(jobDir, "source")
		for _, fh := range form.File["source_files"] {
			dest := filepath.Join(root, sanitizeRelPath(fh.Filename))
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("prepare source dir: %v", err)})
				return
			}
			if err := c.SaveUploadedFile(fh, dest); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("save source file: %v", err)})
				return
			}
		}
	}

	if err := s.queue.Enqueue(c.Request.Context(), async.Job{
		JobID:         job.ID,
		MasterCSVPath: masterPath,
		SourceRoot:    root,
		SubmittedAt:   time.Now().UTC(),
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("enqueue job: %v", err)})
		return
	}

	s.log.Info("server.job_submitted", "job_id", job.ID, "source_root", root)
	c.JSON(http.StatusAccepted, toJobResponse(job))
}

func (s *Server) jobStatus(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (s *Server) jobResults(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}
	rows, err := s.results.ListByJob(c.Request.Context(), job.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("list results: %v", err)})
		return
	}
	if rows == nil {
		rows = []map[string]string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"job":     toJobResponse(job),
		"results": rows,
	})
}

func (s *Server) jobExport(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}
	data, err := s.exporter.ExportJobXLSX(c.Request.Context(), job.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("export: %v", err)})
		return
	}
	filename := fmt.Sprintf("verification-%s.xlsx", job.ID.String())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (s *Server) lookupJob(c *gin.Context) (*repository.Job, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return nil, false
	}
	job, err := s.jobs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("lookup job: %v", err)})
		}
		return nil, false
	}
	return job, true
}

// sanitizeRelPath keeps uploaded files inside the job's source directory.
func sanitizeRelPath(name string) string {
	name = filepath.ToSlash(name)
	name = strings.TrimPrefix(name, "/")
	clean := filepath.Clean(name)
	if strings.HasPrefix(clean, "..") {
		return filepath.Base(clean)
	}
	return clean
}
