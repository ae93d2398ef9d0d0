package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/syndicate/models"
	"github.com/use-agent/syndicate/orchestrator"
)

// RunnerFactory builds a fresh orchestrator per run. Orchestrators are
// single-use for concurrent safety.
type RunnerFactory func() *orchestrator.Orchestrator

// runStore holds all in-flight and completed runs.
var runStore sync.Map

// runActive guards the device: only one run may drive it at a time.
var runActive atomic.Bool

func init() {
	// Background goroutine to expire runs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			runStore.Range(func(key, value any) bool {
				job := value.(*models.RunJob)
				if job.CreatedAt < cutoff {
					runStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostRun returns a handler for POST /api/v1/runs.
// It launches one workflow in the background and returns immediately with a
// job ID. A second run while one is active is rejected: the workflow drives
// a single physical device.
func PostRun(factory RunnerFactory, runTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !runActive.CompareAndSwap(false, true) {
			c.JSON(http.StatusConflict, models.RunResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "a run is already in progress",
				},
			})
			return
		}

		jobID := "run-" + randomID()
		job := &models.RunJob{
			ID:        jobID,
			Status:    models.StageIdle,
			CreatedAt: time.Now().Unix(),
		}
		runStore.Store(jobID, job)

		go executeRun(factory(), job, runTimeout)

		c.JSON(http.StatusAccepted, models.RunResponse{
			Success: true,
			ID:      jobID,
			Status:  job.Status,
		})
	}
}

// GetRun returns a handler for GET /api/v1/runs/:id.
func GetRun() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := runStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "run not found",
				},
			})
			return
		}

		job := val.(*models.RunJob)
		c.JSON(http.StatusOK, models.RunStatusResponse{
			ID:       job.ID,
			Status:   job.Status,
			Progress: job.Progress,
			Report:   job.Report,
			Error:    job.Error,
		})
	}
}

// executeRun drives one workflow to completion, mirroring progress into the
// job record.
func executeRun(o *orchestrator.Orchestrator, job *models.RunJob, timeout time.Duration) {
	defer runActive.Store(false)

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	progress := make(chan models.Progress, 16)
	done := make(chan struct{})
	o.SetProgress(progress)
	go func() {
		defer close(done)
		for p := range progress {
			job.Status = p.Stage
			job.Progress = p.Percent
		}
	}()

	report, err := o.Run(ctx)
	close(progress)
	<-done

	job.Report = report
	if err != nil {
		job.Status = models.StageFailed
		var wfErr *models.WorkflowError
		if errors.As(err, &wfErr) {
			job.Error = wfErr.ToDetail()
		} else {
			job.Error = &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
		}
		slog.Error("run failed", "id", job.ID, "error", err)
		return
	}
	job.Status = models.StageDone
	job.Progress = 100
	slog.Info("run completed", "id", job.ID, "succeeded", report.SucceededCount())
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
