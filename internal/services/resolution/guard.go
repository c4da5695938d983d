package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Luca1234105/torren/internal/metrics"
	"github.com/Luca1234105/torren/internal/models"
	"github.com/Luca1234105/torren/internal/services/debrid"
)

// resourceGuard owns one remote resource from creation until release.
// Release deletes the resource exactly once unless keep was called.
type resourceGuard struct {
	id       string
	client   debrid.ResourceClient
	wf       *Workflow
	hash     models.ContentHash
	fp       string
	logger   *slog.Logger
	kept     bool
	released bool
}

// keep hands ownership of the resource to the caller; release becomes a no-op.
func (g *resourceGuard) keep() {
	g.kept = true
}

// release issues the single delete attempt. A non-nil cause selects the
// compensating phase, which runs detached from ctx cancellation under the
// cleanup timeout.
func (g *resourceGuard) release(ctx context.Context, cause error) {
	if g == nil || g.released {
		return
	}
	g.released = true
	if g.kept {
		g.logger.Debug("keeping remote resource", "resource_id", g.id)
		return
	}

	phase := models.PhasePrimary
	deleteCtx := context.WithoutCancel(ctx)
	cancel := func() {}
	if cause != nil {
		phase = models.PhaseCompensating
		deleteCtx, cancel = context.WithTimeout(deleteCtx, g.wf.cleanupTimeout)
	}
	defer cancel()

	err := g.delete(deleteCtx)
	metrics.ResourceDeletesTotal.WithLabelValues(phase, metrics.ResultLabel(err)).Inc()
	if err == nil {
		g.logger.Debug("deleted remote resource", "resource_id", g.id, "phase", phase)
		return
	}

	g.wf.recordOrphan(ctx, models.OrphanedResource{
		Service:               g.wf.service,
		ResourceID:            g.id,
		ContentHash:           g.hash,
		CredentialFingerprint: g.fp,
		Phase:                 phase,
		Error:                 fmt.Errorf("%w: %w", debrid.ErrResourceOrphanRisk, err).Error(),
		CreatedAt:             time.Now().UTC(),
	})
}

// delete runs the client delete, turning a panic into an error so the
// resource is still reported as at risk.
func (g *resourceGuard) delete(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delete panic: %v", r)
		}
	}()
	return g.client.Delete(ctx, g.id)
}
