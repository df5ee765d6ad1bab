// Package pipeline sequences the publication of photographs: extract
// metadata, consult the ledger, geocode, compose, publish, record. One
// photo failing never stops the others, only an authentication failure
// aborts the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/kleinnic74/photopost/bluesky"
	"bitbucket.org/kleinnic74/photopost/domain"
	"bitbucket.org/kleinnic74/photopost/geocoding"
	"bitbucket.org/kleinnic74/photopost/ledger"
	"bitbucket.org/kleinnic74/photopost/logging"
	"bitbucket.org/kleinnic74/photopost/post"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is the terminal state of one photo within a run.
type Outcome string

const (
	OutcomePublished = Outcome("published")
	OutcomeSkipped   = Outcome("skipped")
	OutcomeFailed    = Outcome("failed")
	OutcomeComposed  = Outcome("composed")
)

// PostID identifies a successfully published post.
type PostID struct {
	URI  string
	Link string
}

// Publisher submits a composed post with its image to the social
// protocol. Implementations classify their errors through the bluesky
// package predicates.
type Publisher interface {
	Publish(ctx context.Context, composed post.ComposedPost, img *domain.UploadImage) (PostID, error)
}

// Failure describes one failed photo with enough detail for a manual
// retry via force-republish.
type Failure struct {
	ID     domain.ID
	Path   string
	Reason string
}

// Summary is the end-of-run report.
type Summary struct {
	Published int
	Skipped   int
	Failed    int
	Composed  int
	Failures  []Failure
}

func (s *Summary) count(o Outcome) {
	switch o {
	case OutcomePublished:
		s.Published++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	case OutcomeComposed:
		s.Composed++
	}
}

// AuthFailedError aborts the run, no further photos are attempted.
type AuthFailedError struct {
	Err error
}

func (e AuthFailedError) Error() string {
	return fmt.Sprintf("authentication failed, run aborted: %s", e.Err)
}

func (e AuthFailedError) Unwrap() error {
	return e.Err
}

type Options struct {
	// DryRun composes posts but performs no publication and no ledger
	// writes.
	DryRun bool
	// Force re-opens the given identities in the ledger, bypassing the
	// published short-circuit.
	Force []domain.ID
	// Caption is optional flavor text included in every composed post.
	Caption string
	// AltText describes the image for visually impaired users.
	AltText string

	MaxDimension int
	Quality      int
}

type Pipeline struct {
	ledger    ledger.Ledger
	resolver  geocoding.Resolver
	publisher Publisher
	opts      Options

	// extract is replaceable in tests
	extract func(ctx context.Context, path string) (*domain.Photo, error)
	prepare func(p *domain.Photo, maxDim, quality int) (*domain.UploadImage, error)
}

func New(l ledger.Ledger, resolver geocoding.Resolver, publisher Publisher, opts Options) *Pipeline {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = domain.DefaultMaxDimension
	}
	if opts.Quality <= 0 {
		opts.Quality = domain.DefaultQuality
	}
	return &Pipeline{
		ledger:    l,
		resolver:  resolver,
		publisher: publisher,
		opts:      opts,
		extract:   domain.NewPhoto,
		prepare:   domain.PrepareForUpload,
	}
}

// Run processes the given photo files sequentially and reports the
// outcome per terminal state. The returned summary is valid even when
// the run is aborted by an authentication failure.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Summary, error) {
	logger, ctx := logging.FromWithNameAndFields(ctx, "pipeline",
		zap.String("run", uuid.New().String()))
	logger.Info("Run started", zap.Int("photos", len(paths)), zap.Bool("dryrun", p.opts.DryRun))

	forced := make(map[domain.ID]bool, len(p.opts.Force))
	for _, id := range p.opts.Force {
		forced[id] = true
	}

	summary := &Summary{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, err := p.processOne(ctx, path, forced, summary)
		summary.count(outcome)
		if err != nil {
			logger.Error("Run aborted", zap.Error(err))
			return summary, err
		}
	}
	logger.Info("Run finished",
		zap.Int("published", summary.Published),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("composed", summary.Composed))
	return summary, nil
}

// processOne runs the per-photo state machine. The returned error is
// non-nil only for run-fatal conditions.
func (p *Pipeline) processOne(ctx context.Context, path string, forced map[domain.ID]bool, summary *Summary) (Outcome, error) {
	logger, ctx := logging.FromWithNameAndFields(ctx, "photo", zap.String("path", path))

	photo, err := p.extract(ctx, path)
	if err != nil {
		logger.Warn("Cannot read photo", zap.Error(err))
		summary.Failures = append(summary.Failures, Failure{Path: path, Reason: err.Error()})
		return OutcomeFailed, nil
	}
	logger = logger.With(zap.String("id", string(photo.ID)))
	ctx = logging.Context(ctx, logger)

	if forced[photo.ID] {
		if err := p.ledger.Reset(photo.ID); err != nil {
			var notFound ledger.NotFoundError
			if !errors.As(err, &notFound) {
				return OutcomeFailed, fmt.Errorf("ledger reset: %w", err)
			}
		}
		logger.Info("Force-republish, ledger record re-opened")
	}

	published, err := p.ledger.IsPublished(photo.ID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("ledger lookup: %w", err)
	}
	if published {
		logger.Info("Already published, skipping")
		return OutcomeSkipped, nil
	}

	place := p.resolvePlace(ctx, photo)

	composed := post.Compose(photo.Meta.DateTaken, place.Name, p.opts.Caption, p.opts.AltText)

	if p.opts.DryRun {
		logger.Info("Dry run, composed post not published", zap.String("text", composed.Text))
		return OutcomeComposed, nil
	}

	rec := ledger.PhotoRecord{
		ID:       photo.ID,
		Path:     photo.Path,
		Taken:    photo.Meta.DateTaken,
		Location: photo.Meta.Location,
		Place:    place.Name,
	}
	if err := p.ledger.MarkPending(rec); err != nil {
		if ledger.IsAlreadyPublished(err) {
			return OutcomeSkipped, nil
		}
		return OutcomeFailed, fmt.Errorf("ledger mark pending: %w", err)
	}

	img, err := p.prepare(photo, p.opts.MaxDimension, p.opts.Quality)
	if err != nil {
		return p.failPhoto(logger, summary, photo, fmt.Sprintf("prepare image: %s", err)), nil
	}

	postID, err := p.publisher.Publish(ctx, composed, img)
	if err != nil {
		if bluesky.IsAuthFailure(err) {
			// the pending record stays, safely retryable on the next run
			return OutcomeFailed, AuthFailedError{Err: err}
		}
		return p.failPhoto(logger, summary, photo, fmt.Sprintf("publish: %s", err)), nil
	}

	if err := p.ledger.MarkPublished(photo.ID, postID.URI, postID.Link); err != nil {
		// the post is out, losing the record would double-publish next run
		return OutcomeFailed, fmt.Errorf("ledger mark published after successful post %s: %w", postID.URI, err)
	}
	logger.Info("Published", zap.String("uri", postID.URI), zap.String("link", postID.Link))
	return OutcomePublished, nil
}

// resolvePlace degrades to the unknown place on any geocoding trouble,
// resolution failures never fail a photo.
func (p *Pipeline) resolvePlace(ctx context.Context, photo *domain.Photo) geocoding.Place {
	logger := logging.From(ctx)
	loc := photo.Meta.Location
	if !loc.IsValid() {
		return geocoding.Unknown
	}
	place, found, err := p.resolver.ReverseGeocode(ctx, loc.Lat(), loc.Long())
	switch {
	case geocoding.IsRateLimited(err):
		logger.Warn("Geocoding rate limited, continuing without place")
		return geocoding.Unknown
	case err != nil:
		logger.Warn("Geocoding failed, continuing without place", zap.Error(err))
		return geocoding.Unknown
	case !found:
		return geocoding.Unknown
	}
	logger.Debug("Resolved place", zap.String("place", place.Name))
	return place
}

func (p *Pipeline) failPhoto(logger *zap.Logger, summary *Summary, photo *domain.Photo, reason string) Outcome {
	logger.Warn("Photo failed", zap.String("reason", reason))
	if err := p.ledger.MarkFailed(photo.ID, reason); err != nil {
		logger.Error("Cannot record failure in ledger", zap.Error(err))
	}
	summary.Failures = append(summary.Failures, Failure{ID: photo.ID, Path: photo.Path, Reason: reason})
	return OutcomeFailed
}
