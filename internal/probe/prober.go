package probe

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/johny-c/lagom/internal/domain"
	"github.com/johny-c/lagom/internal/repository"
	"github.com/johny-c/lagom/internal/service"
)

// Config holds prober settings
type Config struct {
	// Interval between full verification passes
	Interval time.Duration
	// Timeout for a single index query
	Timeout time.Duration
	// MaxConcurrent limits parallel index queries
	MaxConcurrent int
	// IncludePreReleases admits pre and dev releases when checking
	// whether a requirement is resolvable
	IncludePreReleases bool
}

// DefaultConfig returns sensible prober defaults
func DefaultConfig() Config {
	return Config{
		Interval:      15 * time.Minute,
		Timeout:       10 * time.Second,
		MaxConcurrent: 4,
	}
}

// Prober verifies the requirements of stored manifests against the index
type Prober struct {
	repo     repository.Repository
	index    IndexClient
	eventBus *service.EventBus
	config   Config
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a prober
func New(repo repository.Repository, index IndexClient, eventBus *service.EventBus, config Config, logger *zap.Logger) *Prober {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Prober{
		repo:     repo,
		index:    index,
		eventBus: eventBus,
		config:   config,
		logger:   logger,
	}
}

// Start launches the poll loop. It returns immediately; Stop waits for the
// loop to drain.
func (p *Prober) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := p.VerifyAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
					p.logger.Warn("verification pass failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the poll loop and waits for in-flight probes
func (p *Prober) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// VerifyAll runs one verification pass over every stored manifest
func (p *Prober) VerifyAll(ctx context.Context) error {
	manifests, err := p.repo.ListManifests(ctx)
	if err != nil {
		return err
	}

	for _, m := range manifests {
		if err := p.VerifyManifest(ctx, m.ID); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Warn("manifest verification failed",
				zap.String("manifest_id", m.ID), zap.Error(err))
		}
	}
	return nil
}

// VerifyManifest checks every requirement of one manifest against the
// index. Index failures leave the requirement unverified; only a
// successful query that finds no satisfying release marks it unresolvable.
func (p *Prober) VerifyManifest(ctx context.Context, manifestID string) error {
	reqs, err := p.repo.ListRequirements(ctx, manifestID)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, p.config.MaxConcurrent)
	var wg sync.WaitGroup

	verified := 0
	unresolvable := 0
	var mu sync.Mutex

	for _, req := range reqs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(req *domain.Requirement) {
			defer wg.Done()
			defer func() { <-sem }()

			status := p.verifyRequirement(ctx, req)
			if status == domain.VerifyUnverified {
				return
			}

			if err := p.repo.UpdateRequirementVerification(ctx, manifestID, req.Line, status, time.Now()); err != nil {
				p.logger.Warn("failed to record verification",
					zap.String("package", req.Canonical), zap.Error(err))
				return
			}

			mu.Lock()
			if status == domain.VerifyOK {
				verified++
			} else {
				unresolvable++
			}
			mu.Unlock()

			p.eventBus.Publish(service.Event{
				Type: service.EventRequirementVerified,
				Payload: map[string]any{
					"manifest_id": manifestID,
					"package":     req.Canonical,
					"line":        req.Line,
					"status":      status,
				},
			})
		}(req)
	}

	wg.Wait()

	p.logger.Info("verification pass complete",
		zap.String("manifest_id", manifestID),
		zap.Int("verified", verified),
		zap.Int("unresolvable", unresolvable))

	p.eventBus.Publish(service.Event{
		Type: service.EventVerifyCompleted,
		Payload: map[string]any{
			"manifest_id":  manifestID,
			"verified":     verified,
			"unresolvable": unresolvable,
		},
	})

	return nil
}

func (p *Prober) verifyRequirement(ctx context.Context, req *domain.Requirement) domain.VerifyStatus {
	queryCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	releases, err := p.index.Releases(queryCtx, req.Canonical)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			return domain.VerifyUnresolvable
		}
		p.logger.Debug("index query failed",
			zap.String("package", req.Canonical), zap.Error(err))
		return domain.VerifyUnverified
	}

	for _, v := range releases {
		if v.IsPreRelease() && !p.config.IncludePreReleases {
			continue
		}
		if req.Matches(v) {
			return domain.VerifyOK
		}
	}
	return domain.VerifyUnresolvable
}
