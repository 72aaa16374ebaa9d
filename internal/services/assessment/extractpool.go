package assessment

import (
	"context"
	"runtime"

	"github.com/bobmcallan/assessor/internal/interfaces"
	"github.com/bobmcallan/assessor/internal/models"
)

// extractJob is one unit of work submitted to an ExtractPool.
type extractJob struct {
	data     []byte
	fileType models.FileType
	result   chan extractResult
}

type extractResult struct {
	text string
	err  error
}

// ExtractPool bounds concurrent CPU-bound text extraction to a fixed number
// of workers, sized to the available cores by default. Offloading extraction
// here keeps a burst of large PDFs from unbounding the goroutine count on
// the worker's I/O-bound processLoop.
type ExtractPool struct {
	extractor interfaces.TextExtractor
	jobs      chan extractJob
	done      chan struct{}
}

// NewExtractPool starts workers workers (defaulting to runtime.NumCPU() when
// workers <= 0) pulling jobs off a shared channel.
func NewExtractPool(extractor interfaces.TextExtractor, workers int) *ExtractPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &ExtractPool{
		extractor: extractor,
		jobs:      make(chan extractJob),
		done:      make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *ExtractPool) worker() {
	for {
		select {
		case job := <-p.jobs:
			text, err := p.extractor.Extract(context.Background(), job.data, job.fileType)
			job.result <- extractResult{text: text, err: err}
		case <-p.done:
			return
		}
	}
}

// Extract submits data for extraction and blocks until a worker picks it up
// and completes, or ctx is canceled first.
func (p *ExtractPool) Extract(ctx context.Context, data []byte, fileType models.FileType) (string, error) {
	result := make(chan extractResult, 1)
	job := extractJob{data: data, fileType: fileType, result: result}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case r := <-result:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops all pool workers. Safe to call once.
func (p *ExtractPool) Close() {
	close(p.done)
}

var _ interfaces.TextExtractor = (*ExtractPool)(nil)
