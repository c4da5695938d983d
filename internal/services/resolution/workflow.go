// Package resolution implements the active cache check: it creates a remote
// torrent resource, reads its status and always cleans up after itself.
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

const (
	// DefaultCleanupTimeout bounds the compensating delete.
	DefaultCleanupTimeout = 5 * time.Second

	variantCheck   = "check"
	variantResolve = "resolve"
	verdictResolve = "resolved"
)

// ErrNoInput is returned when a candidate has no hash or no credential was given.
var ErrNoInput = fmt.Errorf("missing hash or credential: %w", debrid.ErrInputInvalid)

// ClientFactory returns a lifecycle client bound to credential.
type ClientFactory func(credential string) debrid.ResourceClient

// OrphanRecorder persists resources whose deletion failed.
type OrphanRecorder interface {
	RecordOrphan(ctx context.Context, orphan models.OrphanedResource) error
}

// Config holds workflow settings.
type Config struct {
	Service            string
	CleanupTimeout     time.Duration
	MaxActiveResources int64
}

// ResolvedLink is a directly fetchable URL for a cached candidate.
// The remote resource backing it is intentionally left on the account.
type ResolvedLink struct {
	URL        string
	Filename   string
	Filesize   int64
	Host       string
	ResourceID string
	FileID     int
	// ExactFile is false when the link could not be paired with the chosen file
	ExactFile bool
}

// Workflow runs create/select/read/delete sagas against one debrid service.
type Workflow struct {
	newClient      ClientFactory
	limiter        *CredentialLimiter
	cleanupTimeout time.Duration
	service        string
	orphans        OrphanRecorder
	logger         *slog.Logger
}

// NewWorkflow creates a workflow. orphans may be nil.
func NewWorkflow(newClient ClientFactory, cfg Config, orphans OrphanRecorder, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = DefaultCleanupTimeout
	}
	return &Workflow{
		newClient:      newClient,
		limiter:        NewCredentialLimiter(cfg.MaxActiveResources),
		cleanupTimeout: cfg.CleanupTimeout,
		service:        cfg.Service,
		orphans:        orphans,
		logger:         logger.With("component", "resolution", "service", cfg.Service),
	}
}

// Service returns the debrid service name this workflow drives.
func (w *Workflow) Service() string {
	return w.service
}

// invocation is the state of one workflow run.
type invocation struct {
	client debrid.ResourceClient
	hash   models.ContentHash
	fp     string
	guard  *resourceGuard
	logger *slog.Logger
	wf     *Workflow
}

// CheckCached reports whether the candidate's content is ready on the
// account. The created resource is always deleted before returning.
func (w *Workflow) CheckCached(ctx context.Context, candidate models.Candidate, credential string) debrid.CacheVerdict {
	verdict := debrid.Unknown
	err := w.execute(ctx, variantCheck, candidate, credential, func(ctx context.Context, inv *invocation) error {
		status, err := inv.createAndRead(ctx)
		if err != nil {
			return err
		}
		verdict = verdictFor(status)
		return nil
	})
	if err != nil {
		verdict = debrid.Unknown
	}

	metrics.WorkflowRunsTotal.WithLabelValues(variantCheck, verdict.String()).Inc()
	return verdict
}

// ResolveLink turns a cached candidate into a direct URL. On success the
// remote resource is kept; on every other path it is deleted.
func (w *Workflow) ResolveLink(ctx context.Context, candidate models.Candidate, credential string) (*ResolvedLink, bool) {
	var resolved *ResolvedLink
	verdict := debrid.Unknown
	err := w.execute(ctx, variantResolve, candidate, credential, func(ctx context.Context, inv *invocation) error {
		status, err := inv.createAndRead(ctx)
		if err != nil {
			return err
		}
		verdict = verdictFor(status)
		if verdict != debrid.Cached {
			return nil
		}

		loc, ok := pickLocator(status)
		if !ok {
			return fmt.Errorf("resource %s ready without links: %w", inv.guard.id, debrid.ErrRemoteMalformed)
		}
		if loc.ambiguous {
			metrics.LocatorMismatchTotal.Inc()
			inv.logger.Warn("output links do not match selected files, using first link",
				"resource_id", inv.guard.id,
				"links", len(status.Links),
				"file_id", loc.file.ID)
		}

		link, err := inv.client.Unrestrict(ctx, loc.link)
		if err != nil {
			return err
		}

		inv.guard.keep()
		resolved = &ResolvedLink{
			URL:        link.URL(),
			Filename:   link.Filename,
			Filesize:   link.Filesize,
			Host:       link.Host,
			ResourceID: inv.guard.id,
			FileID:     loc.file.ID,
			ExactFile:  loc.exact,
		}
		return nil
	})
	if err != nil {
		resolved = nil
		verdict = debrid.Unknown
	}

	label := verdict.String()
	if resolved != nil {
		label = verdictResolve
	}
	metrics.WorkflowRunsTotal.WithLabelValues(variantResolve, label).Inc()
	return resolved, resolved != nil
}

// execute runs body for candidate under the per-credential limiter. Errors
// and panics are absorbed here; any created resource is released on exit.
func (w *Workflow) execute(
	ctx context.Context,
	variant string,
	candidate models.Candidate,
	credential string,
	body func(ctx context.Context, inv *invocation) error,
) (err error) {
	hash, ok := candidate.Hash()
	if !ok || credential == "" {
		return ErrNoInput
	}

	fp := debrid.Fingerprint(credential)
	logger := w.logger.With("variant", variant, "hash", hash.String(), "fingerprint", fp)

	release, err := w.limiter.Acquire(ctx, credential)
	if err != nil {
		logger.Warn("waiting for resource slot aborted", "error", err)
		return fmt.Errorf("acquire resource slot: %w", err)
	}
	defer release()

	inv := &invocation{
		hash:   hash,
		fp:     fp,
		logger: logger,
		wf:     w,
	}

	defer func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("resource release panic", "panic", r)
			}
		}()
		inv.guard.release(ctx, err)
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s workflow panic: %v", variant, r)
		}
		if err != nil {
			logger.Warn("workflow failed", "error", err)
		}
	}()

	inv.client = w.newClient(credential)
	return body(ctx, inv)
}

// createAndRead performs create, select-all and status read. The guard is
// armed as soon as a resource id exists.
func (inv *invocation) createAndRead(ctx context.Context) (*debrid.ResourceStatus, error) {
	id, err := inv.client.Create(ctx, inv.hash)
	if err != nil {
		return nil, err
	}
	inv.guard = &resourceGuard{
		id:     id,
		client: inv.client,
		wf:     inv.wf,
		hash:   inv.hash,
		fp:     inv.fp,
		logger: inv.logger,
	}

	if err := inv.client.SelectAll(ctx, id); err != nil {
		inv.logger.Debug("select files failed", "resource_id", id, "error", err)
	}

	status, err := inv.client.ReadStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.logger.Debug("read resource status", "resource_id", id, "status", status.Status)
	return status, nil
}

func verdictFor(status *debrid.ResourceStatus) debrid.CacheVerdict {
	if status.Ready() {
		return debrid.Cached
	}
	return debrid.NotCached
}

// recordOrphan logs, counts and optionally persists a failed delete.
func (w *Workflow) recordOrphan(ctx context.Context, orphan models.OrphanedResource) {
	metrics.OrphanRiskTotal.Inc()
	w.logger.Error("remote resource may be orphaned",
		"resource_id", orphan.ResourceID,
		"hash", orphan.ContentHash.String(),
		"fingerprint", orphan.CredentialFingerprint,
		"phase", orphan.Phase,
		"error", orphan.Error)

	if w.orphans == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cleanupTimeout)
	defer cancel()
	if err := w.orphans.RecordOrphan(recordCtx, orphan); err != nil {
		w.logger.Error("failed to record orphaned resource", "resource_id", orphan.ResourceID, "error", err)
	}
}
