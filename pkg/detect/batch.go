package detect

import (
	"context"
	"sync"
	"time"

	"github.com/windowsadmins/installcheck/pkg/logging"
)

// AppResult pairs a status with the id of the application it describes.
type AppResult struct {
	ID     string             `json:"id" yaml:"id"`
	Status InstallationStatus `json:"status" yaml:"status"`
}

// Summary counts a batch. It is derived only from IsInstalled.
type Summary struct {
	TotalApps         int `json:"total_apps" yaml:"total_apps"`
	InstalledCount    int `json:"installed_count" yaml:"installed_count"`
	NotInstalledCount int `json:"not_installed_count" yaml:"not_installed_count"`
}

// BatchResult is the outcome of DetectBatch, in input order.
type BatchResult struct {
	Timestamp time.Time   `json:"timestamp" yaml:"timestamp"`
	Summary   Summary     `json:"summary" yaml:"summary"`
	Results   []AppResult `json:"results" yaml:"results"`
}

// Summarize counts installed and not installed results.
func Summarize(results []AppResult) Summary {
	s := Summary{TotalApps: len(results)}
	for _, r := range results {
		if r.Status.IsInstalled {
			s.InstalledCount++
		} else {
			s.NotInstalledCount++
		}
	}
	return s
}

// DetectBatch runs Detect for every application independently. A failure for
// one application is reported in its own status and never affects the others.
func (p *Pipeline) DetectBatch(ctx context.Context, apps []ApplicationDescriptor, opts Options) BatchResult {
	results := make([]AppResult, len(apps))

	workers := p.workers
	if workers > len(apps) {
		workers = len(apps)
	}
	if workers <= 1 {
		for i, app := range apps {
			results[i] = AppResult{ID: app.ID, Status: p.Detect(ctx, app, opts)}
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i] = AppResult{ID: apps[i].ID, Status: p.Detect(ctx, apps[i], opts)}
				}
			}()
		}
		for i := range apps {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	summary := Summarize(results)
	logging.Info("Batch detection complete",
		"total", summary.TotalApps,
		"installed", summary.InstalledCount,
		"notInstalled", summary.NotInstalledCount,
	)
	return BatchResult{
		Timestamp: p.now(),
		Summary:   summary,
		Results:   results,
	}
}
