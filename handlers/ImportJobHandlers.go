package handlers

import (
	"context"
	"drapely/models"
	"drapely/repository"
	"drapely/storage"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultImportChunkSize is the number of rows sent per backend upsert.
const DefaultImportChunkSize = 100

// skuGenLimit bounds concurrent SKU pre-generation so very large
// imports do not fan out one goroutine per row.
const skuGenLimit = 10

// ChunkProcessor upserts one chunk of items keyed by SKU and classifies
// each row. A returned error means the whole chunk failed.
type ChunkProcessor func(ctx context.Context, startRow int, chunk []models.InventoryItem) ([]models.ImportResultRow, error)

// SKUGenerator fills in a SKU for an item that has none.
type SKUGenerator func(ctx context.Context, item models.InventoryItem) (string, error)

// BatchImportProcessor drives a chunked import with pause/resume.
// Pause is honored only at chunk boundaries: an in-flight chunk always
// completes, which bounds pause latency to one chunk duration and
// avoids partial-chunk inconsistency.
type BatchImportProcessor struct {
	mu sync.Mutex

	status    string
	items     []models.InventoryItem
	results   []models.ImportResultRow
	nextChunk int
	paused    bool
	lastError string

	chunkSize   int
	process     ChunkProcessor
	generateSKU SKUGenerator

	// onProgress is invoked after every chunk with a fresh snapshot.
	onProgress func(progress models.ImportProgress, status string)
}

// NewBatchImportProcessor returns an idle processor. A nil skuGen
// defaults to the local SKU generator.
func NewBatchImportProcessor(process ChunkProcessor, skuGen SKUGenerator) *BatchImportProcessor {
	if skuGen == nil {
		skuGen = func(_ context.Context, item models.InventoryItem) (string, error) {
			return repository.GenerateSKU(item.Category, item.Name), nil
		}
	}
	return &BatchImportProcessor{
		status:      models.ImportStateIdle,
		chunkSize:   DefaultImportChunkSize,
		process:     process,
		generateSKU: skuGen,
	}
}

// Status returns the current state machine state.
func (p *BatchImportProcessor) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// LastError returns the message that moved the processor to the error
// state, if any.
func (p *BatchImportProcessor) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastError
}

// Results returns a copy of the accumulated per-row outcomes in source
// order.
func (p *BatchImportProcessor) Results() []models.ImportResultRow {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ImportResultRow, len(p.results))
	copy(out, p.results)
	return out
}

// Progress derives counts from the result list; it is never stored
// independently.
func (p *BatchImportProcessor) Progress() models.ImportProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ComputeImportProgress(p.results, len(p.items))
}

// ComputeImportProgress recomputes the derived progress view from the
// accumulated results.
func ComputeImportProgress(results []models.ImportResultRow, total int) models.ImportProgress {
	progress := models.ImportProgress{
		Current: len(results),
		Total:   total,
	}
	for _, r := range results {
		switch r.Status {
		case models.ImportStatusSuccess:
			progress.SuccessCount++
		case models.ImportStatusUpdated:
			progress.UpdatedCount++
		case models.ImportStatusError:
			progress.ErrorCount++
		}
	}
	if total > 0 {
		progress.Percentage = float64(progress.Current) / float64(total) * 100.0
	}
	return progress
}

// SplitIntoChunks slices items into fixed-size chunks preserving order.
func SplitIntoChunks(items []models.InventoryItem, size int) [][]models.InventoryItem {
	if size <= 0 {
		size = DefaultImportChunkSize
	}
	var chunks [][]models.InventoryItem
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Start begins a new import: idle -> preparing -> processing. Returns
// an error when the processor is already active.
func (p *BatchImportProcessor) Start(ctx context.Context, items []models.InventoryItem) error {
	p.mu.Lock()
	if p.status != models.ImportStateIdle && p.status != models.ImportStateCompleted && p.status != models.ImportStateError {
		p.mu.Unlock()
		return fmt.Errorf("import already active (status %s)", p.status)
	}
	p.status = models.ImportStatePreparing
	p.items = items
	p.results = nil
	p.nextChunk = 0
	p.paused = false
	p.lastError = ""
	p.mu.Unlock()

	if err := p.prepareSKUs(ctx); err != nil {
		p.fail(fmt.Sprintf("SKU generation failed: %v", err))
		return err
	}

	p.mu.Lock()
	p.status = models.ImportStateProcessing
	p.mu.Unlock()

	p.runChunkLoop(ctx)
	return nil
}

// prepareSKUs fills missing SKUs with a bounded concurrent fan-out.
func (p *BatchImportProcessor) prepareSKUs(ctx context.Context) error {
	sem := make(chan struct{}, skuGenLimit)
	errCh := make(chan error, len(p.items))
	var wg sync.WaitGroup

	for i := range p.items {
		if p.items[i].SKU != "" {
			continue
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sku, err := p.generateSKU(ctx, p.items[idx])
			if err != nil {
				errCh <- fmt.Errorf("row %d: %w", idx+1, err)
				return
			}
			p.mu.Lock()
			p.items[idx].SKU = sku
			p.mu.Unlock()
		}(i)
	}

	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return err
	}
	return ctx.Err()
}

// runChunkLoop processes chunks in input order, honoring pause and
// cancellation between chunks only.
func (p *BatchImportProcessor) runChunkLoop(ctx context.Context) {
	for {
		p.mu.Lock()
		if p.paused {
			p.status = models.ImportStatePaused
			p.mu.Unlock()
			p.notifyProgress()
			return
		}
		start := p.nextChunk * p.chunkSize
		if start >= len(p.items) {
			if p.status != models.ImportStateError {
				p.status = models.ImportStateCompleted
			}
			p.mu.Unlock()
			p.notifyProgress()
			return
		}
		end := start + p.chunkSize
		if end > len(p.items) {
			end = len(p.items)
		}
		chunk := p.items[start:end]
		p.mu.Unlock()

		if err := ctx.Err(); err != nil {
			p.fail(fmt.Sprintf("import cancelled: %v", err))
			return
		}

		rows, err := p.process(ctx, start+1, chunk)
		if err != nil {
			// chunk-level failure marks every row in the chunk
			rows = make([]models.ImportResultRow, 0, len(chunk))
			for i, item := range chunk {
				rows = append(rows, models.ImportResultRow{
					RowNumber: start + 1 + i,
					Status:    models.ImportStatusError,
					Message:   err.Error(),
					SKU:       item.SKU,
					Name:      item.Name,
				})
			}
		}

		p.mu.Lock()
		p.results = append(p.results, rows...)
		p.nextChunk++
		p.mu.Unlock()
		p.notifyProgress()
	}
}

// Pause requests a stop at the next chunk boundary.
func (p *BatchImportProcessor) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == models.ImportStateProcessing || p.status == models.ImportStatePreparing {
		p.paused = true
	}
}

// Resume re-enters the chunk loop from the next unprocessed chunk.
func (p *BatchImportProcessor) Resume(ctx context.Context) error {
	p.mu.Lock()
	if p.status != models.ImportStatePaused {
		p.mu.Unlock()
		return fmt.Errorf("cannot resume from status %s", p.status)
	}
	p.paused = false
	p.status = models.ImportStateProcessing
	p.mu.Unlock()

	p.runChunkLoop(ctx)
	return nil
}

// Reset clears all state back to idle.
func (p *BatchImportProcessor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = models.ImportStateIdle
	p.items = nil
	p.results = nil
	p.nextChunk = 0
	p.paused = false
	p.lastError = ""
}

func (p *BatchImportProcessor) fail(message string) {
	p.mu.Lock()
	p.status = models.ImportStateError
	p.lastError = message
	p.mu.Unlock()
	p.notifyProgress()
}

func (p *BatchImportProcessor) notifyProgress() {
	p.mu.Lock()
	cb := p.onProgress
	progress := ComputeImportProgress(p.results, len(p.items))
	status := p.status
	p.mu.Unlock()
	if cb != nil {
		cb(progress, status)
	}
}

// GormChunkProcessor upserts a chunk of inventory items keyed by
// (user_id, sku) and classifies each row as success (new) or updated
// (pre-existing SKU).
func GormChunkProcessor(db *gorm.DB, userID int) ChunkProcessor {
	return func(ctx context.Context, startRow int, chunk []models.InventoryItem) ([]models.ImportResultRow, error) {
		skus := make([]string, 0, len(chunk))
		for _, item := range chunk {
			skus = append(skus, item.SKU)
		}

		var existing []string
		if err := db.WithContext(ctx).Model(&models.InventoryItemGorm{}).
			Where("user_id = ? AND sku IN ?", userID, skus).
			Pluck("sku", &existing).Error; err != nil {
			return nil, fmt.Errorf("failed to check existing SKUs: %w", err)
		}
		existingSet := make(map[string]bool, len(existing))
		for _, sku := range existing {
			existingSet[sku] = true
		}

		now := time.Now()
		batch := make([]models.InventoryItemGorm, 0, len(chunk))
		for _, item := range chunk {
			batch = append(batch, models.InventoryItemGorm{
				UserID:        userID,
				SKU:           item.SKU,
				Name:          item.Name,
				Category:      item.Category,
				Supplier:      item.Supplier,
				Unit:          item.Unit,
				CostPrice:     item.CostPrice,
				SellPrice:     item.SellPrice,
				StockQuantity: item.StockQuantity,
				ReorderLevel:  item.ReorderLevel,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}

		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "category", "supplier", "unit",
				"cost_price", "sell_price", "stock_quantity", "reorder_level", "updated_at",
			}),
		}).Create(&batch).Error
		if err != nil {
			return nil, fmt.Errorf("upsert failed: %w", err)
		}

		rows := make([]models.ImportResultRow, 0, len(chunk))
		for i, item := range chunk {
			status := models.ImportStatusSuccess
			if existingSet[item.SKU] {
				status = models.ImportStatusUpdated
			}
			rows = append(rows, models.ImportResultRow{
				RowNumber: startRow + i,
				Status:    status,
				SKU:       item.SKU,
				Name:      item.Name,
			})
		}
		return rows, nil
	}
}

// ImportJobManager tracks running import processors by job ID and
// mirrors their progress into the import_jobs table.
type ImportJobManager struct {
	db *gorm.DB

	jobMutex     sync.RWMutex
	processors   map[int]*BatchImportProcessor
	jobCancelMap map[int]context.CancelFunc
}

var (
	importManager     *ImportJobManager
	importManagerOnce sync.Once
)

// GetImportJobManager returns the shared manager instance.
func GetImportJobManager() *ImportJobManager {
	importManagerOnce.Do(func() {
		importManager = &ImportJobManager{
			db:           storage.GetGormDB(),
			processors:   make(map[int]*BatchImportProcessor),
			jobCancelMap: make(map[int]context.CancelFunc),
		}
	})
	return importManager
}

// CreateJob inserts a pending import_jobs row and returns its ID.
func (m *ImportJobManager) CreateJob(userID int, jobType, createdBy string, totalItems int) (int, error) {
	job := models.ImportJobGorm{
		UserID:     userID,
		JobType:    jobType,
		Status:     models.ImportStateIdle,
		TotalItems: totalItems,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := m.db.Create(&job).Error; err != nil {
		return 0, fmt.Errorf("failed to create import job: %w", err)
	}
	return int(job.ID), nil
}

// StartJob launches the processor for a job in the background.
func (m *ImportJobManager) StartJob(jobID, userID int, items []models.InventoryItem) {
	processor := NewBatchImportProcessor(GormChunkProcessor(m.db, userID), nil)
	processor.onProgress = func(progress models.ImportProgress, status string) {
		m.persistProgress(jobID, processor, progress, status)
	}

	ctx, cancel := context.WithCancel(context.Background())

	m.jobMutex.Lock()
	m.processors[jobID] = processor
	m.jobCancelMap[jobID] = cancel
	m.jobMutex.Unlock()

	go func() {
		defer func() {
			m.jobMutex.Lock()
			delete(m.jobCancelMap, jobID)
			m.jobMutex.Unlock()
		}()
		if err := processor.Start(ctx, items); err != nil {
			log.Printf("Import job %d failed: %v", jobID, err)
		}
	}()
}

// Processor returns the in-memory processor for a job, if it is still
// tracked.
func (m *ImportJobManager) Processor(jobID int) (*BatchImportProcessor, bool) {
	m.jobMutex.RLock()
	defer m.jobMutex.RUnlock()
	p, ok := m.processors[jobID]
	return p, ok
}

// CancelJob cancels the context of a running job.
func (m *ImportJobManager) CancelJob(jobID int) bool {
	m.jobMutex.Lock()
	defer m.jobMutex.Unlock()
	if cancel, ok := m.jobCancelMap[jobID]; ok {
		cancel()
		delete(m.jobCancelMap, jobID)
		log.Printf("Stopping import job %d", jobID)
		return true
	}
	return false
}

// GracefulShutdown cancels every running import and waits for the
// processors to leave the processing state so their last chunk is
// persisted.
func (m *ImportJobManager) GracefulShutdown(timeout time.Duration) error {
	m.jobMutex.Lock()
	for id, cancel := range m.jobCancelMap {
		log.Printf("Cancelling import job %d for shutdown", id)
		cancel()
	}
	m.jobCancelMap = make(map[int]context.CancelFunc)
	m.jobMutex.Unlock()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		active := 0
		m.jobMutex.RLock()
		for _, p := range m.processors {
			s := p.Status()
			if s == models.ImportStateProcessing || s == models.ImportStatePreparing {
				active++
			}
		}
		m.jobMutex.RUnlock()
		if active == 0 {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("import jobs still active after %s", timeout)
}

// persistProgress mirrors processor state into the import_jobs row
// after every chunk so the UI can poll it.
func (m *ImportJobManager) persistProgress(jobID int, processor *BatchImportProcessor, progress models.ImportProgress, status string) {
	updates := map[string]interface{}{
		"status":          status,
		"processed_items": progress.Current,
		"success_count":   progress.SuccessCount,
		"updated_count":   progress.UpdatedCount,
		"error_count":     progress.ErrorCount,
		"updated_at":      time.Now(),
	}
	if status == models.ImportStateCompleted || status == models.ImportStateError {
		now := time.Now()
		updates["completed_at"] = &now
		if raw, err := json.Marshal(processor.Results()); err == nil {
			s := string(raw)
			updates["results"] = &s
		}
		if msg := processor.LastError(); msg != "" {
			updates["error"] = &msg
		}
	}
	if err := m.db.Model(&models.ImportJobGorm{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		log.Printf("Failed to update import job %d: %v", jobID, err)
	}
}

// GetImportJobStatusHandler godoc
// @Summary      Get import job status and progress
// @Tags         import
// @Produce      json
// @Param        job_id  path  int  true  "Job ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/import-jobs/{job_id} [get]
func GetImportJobStatusHandler(c *gin.Context) {
	db := storage.GetDB()
	if _, err := GetSessionUser(c, db); err != nil {
		return
	}

	jobID, err := strconv.Atoi(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
		return
	}

	manager := GetImportJobManager()

	// prefer live state while the processor is in memory
	if processor, ok := manager.Processor(jobID); ok {
		c.JSON(http.StatusOK, gin.H{
			"job_id":   jobID,
			"status":   processor.Status(),
			"progress": processor.Progress(),
			"results":  processor.Results(),
			"error":    processor.LastError(),
		})
		return
	}

	var job models.ImportJobGorm
	if err := manager.db.First(&job, jobID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "import job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// PauseImportJobHandler godoc
// @Summary      Pause an import at the next chunk boundary
// @Tags         import
// @Produce      json
// @Param        job_id  path  int  true  "Job ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/import-jobs/{job_id}/pause [post]
func PauseImportJobHandler(c *gin.Context) {
	db := storage.GetDB()
	if _, err := GetSessionUser(c, db); err != nil {
		return
	}

	jobID, err := strconv.Atoi(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
		return
	}

	processor, ok := GetImportJobManager().Processor(jobID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "import job not running"})
		return
	}

	processor.Pause()
	c.JSON(http.StatusOK, gin.H{"message": "pause requested", "status": processor.Status()})
}

// ResumeImportJobHandler godoc
// @Summary      Resume a paused import from the next unprocessed chunk
// @Tags         import
// @Produce      json
// @Param        job_id  path  int  true  "Job ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/import-jobs/{job_id}/resume [post]
func ResumeImportJobHandler(c *gin.Context) {
	db := storage.GetDB()
	if _, err := GetSessionUser(c, db); err != nil {
		return
	}

	jobID, err := strconv.Atoi(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
		return
	}

	manager := GetImportJobManager()
	processor, ok := manager.Processor(jobID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "import job not running"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	manager.jobMutex.Lock()
	manager.jobCancelMap[jobID] = cancel
	manager.jobMutex.Unlock()

	go func() {
		defer func() {
			manager.jobMutex.Lock()
			delete(manager.jobCancelMap, jobID)
			manager.jobMutex.Unlock()
		}()
		if err := processor.Resume(ctx); err != nil {
			log.Printf("Import job %d resume failed: %v", jobID, err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"message": "import resumed", "job_id": jobID})
}

// CancelImportJobHandler godoc
// @Summary      Cancel a running import
// @Tags         import
// @Produce      json
// @Param        job_id  path  int  true  "Job ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/import-jobs/{job_id}/cancel [post]
func CancelImportJobHandler(c *gin.Context) {
	db := storage.GetDB()
	if _, err := GetSessionUser(c, db); err != nil {
		return
	}

	jobID, err := strconv.Atoi(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
		return
	}

	if !GetImportJobManager().CancelJob(jobID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running job with that id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cancel requested", "job_id": jobID})
}
