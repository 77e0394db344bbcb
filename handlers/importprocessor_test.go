package handlers

import (
	"context"
	"drapely/models"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func makeItems(n int) []models.InventoryItem {
	items := make([]models.InventoryItem, n)
	for i := range items {
		items[i] = models.InventoryItem{
			SKU:  fmt.Sprintf("SKU-%04d", i+1),
			Name: fmt.Sprintf("Item %d", i+1),
		}
	}
	return items
}

// okProcessor marks every row success.
func okProcessor(_ context.Context, startRow int, chunk []models.InventoryItem) ([]models.ImportResultRow, error) {
	rows := make([]models.ImportResultRow, 0, len(chunk))
	for i, item := range chunk {
		rows = append(rows, models.ImportResultRow{
			RowNumber: startRow + i,
			Status:    models.ImportStatusSuccess,
			SKU:       item.SKU,
			Name:      item.Name,
		})
	}
	return rows, nil
}

func TestSplitIntoChunks(t *testing.T) {
	tests := []struct {
		name      string
		items     int
		size      int
		wantLens  []int
		wantCount int
	}{
		{name: "exact multiple", items: 200, size: 100, wantLens: []int{100, 100}, wantCount: 2},
		{name: "remainder chunk", items: 250, size: 100, wantLens: []int{100, 100, 50}, wantCount: 3},
		{name: "fewer than one chunk", items: 7, size: 100, wantLens: []int{7}, wantCount: 1},
		{name: "empty input", items: 0, size: 100, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitIntoChunks(makeItems(tt.items), tt.size)
			if len(chunks) != tt.wantCount {
				t.Fatalf("len(chunks) = %d, want %d", len(chunks), tt.wantCount)
			}
			for i, want := range tt.wantLens {
				if len(chunks[i]) != want {
					t.Errorf("chunk %d length = %d, want %d", i, len(chunks[i]), want)
				}
			}
		})
	}
}

func TestBatchImportCompletes(t *testing.T) {
	p := NewBatchImportProcessor(okProcessor, nil)

	if err := p.Start(context.Background(), makeItems(250)); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if got := p.Status(); got != models.ImportStateCompleted {
		t.Fatalf("status = %s, want %s", got, models.ImportStateCompleted)
	}

	results := p.Results()
	if len(results) != 250 {
		t.Fatalf("len(results) = %d, want 250", len(results))
	}
	for i, r := range results {
		if r.RowNumber != i+1 {
			t.Fatalf("results[%d].RowNumber = %d, want %d", i, r.RowNumber, i+1)
		}
	}

	progress := p.Progress()
	if progress.Current != 250 || progress.SuccessCount != 250 {
		t.Errorf("progress = %+v, want 250 current and 250 success", progress)
	}
	if progress.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", progress.Percentage)
	}
}

func TestBatchImportChunkFailureMarksWholeChunk(t *testing.T) {
	calls := 0
	failSecond := func(ctx context.Context, startRow int, chunk []models.InventoryItem) ([]models.ImportResultRow, error) {
		calls++
		if calls == 2 {
			return nil, fmt.Errorf("bulk upsert rejected")
		}
		return okProcessor(ctx, startRow, chunk)
	}

	p := NewBatchImportProcessor(failSecond, nil)
	if err := p.Start(context.Background(), makeItems(250)); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// a failed chunk does not abort the import
	if got := p.Status(); got != models.ImportStateCompleted {
		t.Fatalf("status = %s, want %s", got, models.ImportStateCompleted)
	}

	results := p.Results()
	if len(results) != 250 {
		t.Fatalf("len(results) = %d, want 250", len(results))
	}
	for _, r := range results {
		inFailedChunk := r.RowNumber >= 101 && r.RowNumber <= 200
		if inFailedChunk {
			if r.Status != models.ImportStatusError {
				t.Fatalf("row %d status = %s, want error", r.RowNumber, r.Status)
			}
			if !strings.Contains(r.Message, "bulk upsert rejected") {
				t.Fatalf("row %d message = %q, want the chunk error", r.RowNumber, r.Message)
			}
		} else if r.Status != models.ImportStatusSuccess {
			t.Fatalf("row %d status = %s, want success", r.RowNumber, r.Status)
		}
	}

	progress := p.Progress()
	if progress.SuccessCount != 150 || progress.ErrorCount != 100 {
		t.Errorf("progress = %+v, want 150 success and 100 error", progress)
	}
	if progress.SuccessCount+progress.UpdatedCount+progress.ErrorCount != progress.Current {
		t.Errorf("counts do not sum to current: %+v", progress)
	}
}

func TestBatchImportPauseAtChunkBoundary(t *testing.T) {
	var p *BatchImportProcessor
	pauseDuringFirst := func(ctx context.Context, startRow int, chunk []models.InventoryItem) ([]models.ImportResultRow, error) {
		if startRow == 1 {
			// request mid-chunk; the chunk must still finish
			p.Pause()
		}
		return okProcessor(ctx, startRow, chunk)
	}

	p = NewBatchImportProcessor(pauseDuringFirst, nil)
	if err := p.Start(context.Background(), makeItems(250)); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if got := p.Status(); got != models.ImportStatePaused {
		t.Fatalf("status = %s, want %s", got, models.ImportStatePaused)
	}
	if got := len(p.Results()); got != 100 {
		t.Fatalf("len(results) after pause = %d, want the full first chunk (100)", got)
	}

	if err := p.Resume(context.Background()); err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	if got := p.Status(); got != models.ImportStateCompleted {
		t.Fatalf("status after resume = %s, want %s", got, models.ImportStateCompleted)
	}
	if got := len(p.Results()); got != 250 {
		t.Fatalf("len(results) after resume = %d, want 250", got)
	}
}

func TestBatchImportResumeRequiresPaused(t *testing.T) {
	p := NewBatchImportProcessor(okProcessor, nil)
	if err := p.Resume(context.Background()); err == nil {
		t.Error("Resume() on idle processor should fail")
	}
}

func TestBatchImportCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancelDuringFirst := func(cctx context.Context, startRow int, chunk []models.InventoryItem) ([]models.ImportResultRow, error) {
		if startRow == 1 {
			cancel()
		}
		return okProcessor(cctx, startRow, chunk)
	}

	p := NewBatchImportProcessor(cancelDuringFirst, nil)
	p.Start(ctx, makeItems(250))

	if got := p.Status(); got != models.ImportStateError {
		t.Fatalf("status = %s, want %s", got, models.ImportStateError)
	}
	if msg := p.LastError(); !strings.Contains(msg, "cancelled") {
		t.Errorf("LastError() = %q, want a cancellation message", msg)
	}
	// only the chunk in flight when cancel arrived was recorded
	if got := len(p.Results()); got != 100 {
		t.Errorf("len(results) = %d, want 100", got)
	}
}

func TestBatchImportSKUPreparation(t *testing.T) {
	items := makeItems(30)
	for i := range items {
		items[i].SKU = ""
	}

	var mu sync.Mutex
	generated := 0
	skuGen := func(_ context.Context, item models.InventoryItem) (string, error) {
		mu.Lock()
		generated++
		n := generated
		mu.Unlock()
		return fmt.Sprintf("GEN-%04d", n), nil
	}

	var seen []models.InventoryItem
	record := func(ctx context.Context, startRow int, chunk []models.InventoryItem) ([]models.ImportResultRow, error) {
		seen = append(seen, chunk...)
		return okProcessor(ctx, startRow, chunk)
	}

	p := NewBatchImportProcessor(record, skuGen)
	if err := p.Start(context.Background(), items); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if generated != 30 {
		t.Errorf("generated %d SKUs, want 30", generated)
	}
	for i, item := range seen {
		if item.SKU == "" {
			t.Fatalf("item %d reached the chunk processor without a SKU", i)
		}
	}
}

func TestBatchImportSKUGenerationFailure(t *testing.T) {
	items := makeItems(5)
	items[2].SKU = ""

	skuGen := func(context.Context, models.InventoryItem) (string, error) {
		return "", fmt.Errorf("sku service unavailable")
	}

	p := NewBatchImportProcessor(okProcessor, skuGen)
	if err := p.Start(context.Background(), items); err == nil {
		t.Fatal("Start() should fail when SKU generation fails")
	}
	if got := p.Status(); got != models.ImportStateError {
		t.Errorf("status = %s, want %s", got, models.ImportStateError)
	}
}

func TestBatchImportReset(t *testing.T) {
	p := NewBatchImportProcessor(okProcessor, nil)
	if err := p.Start(context.Background(), makeItems(10)); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	p.Reset()
	if got := p.Status(); got != models.ImportStateIdle {
		t.Errorf("status after reset = %s, want %s", got, models.ImportStateIdle)
	}
	if len(p.Results()) != 0 {
		t.Errorf("results should be cleared on reset")
	}
}

func TestBatchImportRejectsDoubleStart(t *testing.T) {
	var p *BatchImportProcessor
	pauseFirst := func(ctx context.Context, startRow int, chunk []models.InventoryItem) ([]models.ImportResultRow, error) {
		p.Pause()
		return okProcessor(ctx, startRow, chunk)
	}
	p = NewBatchImportProcessor(pauseFirst, nil)
	if err := p.Start(context.Background(), makeItems(250)); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	// paused is an active state, another Start must be refused
	if err := p.Start(context.Background(), makeItems(10)); err == nil {
		t.Error("Start() while paused should fail")
	}
}

func TestComputeImportProgress(t *testing.T) {
	results := []models.ImportResultRow{
		{RowNumber: 1, Status: models.ImportStatusSuccess},
		{RowNumber: 2, Status: models.ImportStatusUpdated},
		{RowNumber: 3, Status: models.ImportStatusError},
		{RowNumber: 4, Status: models.ImportStatusSuccess},
	}
	progress := ComputeImportProgress(results, 8)

	if progress.Current != 4 || progress.Total != 8 {
		t.Errorf("progress = %+v, want current 4 of 8", progress)
	}
	if progress.SuccessCount != 2 || progress.UpdatedCount != 1 || progress.ErrorCount != 1 {
		t.Errorf("counts = %+v, want 2/1/1", progress)
	}
	if progress.Percentage != 50 {
		t.Errorf("percentage = %v, want 50", progress.Percentage)
	}
}
