package stampfile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danielgruen/ngmixer/internal/provenance"
)

// Session stamps an artifact for the duration of one build. Close must be
// deferred right after NewSession so the artifact is reset whatever happens
// in between.
type Session struct {
	artifact Artifact
	logger   zerolog.Logger
	stamp    provenance.Stamp
	closed   bool
}

func NewSession(a Artifact, logger zerolog.Logger) *Session {
	return &Session{artifact: a, logger: logger}
}

// Stamp resolves the current checkout and writes it to the artifact, which
// must already exist. A stamp left behind by an interrupted build is cleared
// before resolving so it does not count as a local modification. On any error
// nothing is written.
func (s *Session) Stamp(ctx context.Context, r provenance.Resolver) (provenance.Stamp, error) {
	if s.closed {
		return provenance.Stamp{}, fmt.Errorf("stampfile: session for %s already closed", s.artifact.Path)
	}
	ok, err := s.artifact.Exists()
	if err != nil {
		return provenance.Stamp{}, &WriteError{Path: s.artifact.Path, Err: err}
	}
	if !ok {
		return provenance.Stamp{}, &WriteError{Path: s.artifact.Path, Err: ErrArtifactMissing}
	}
	if err := s.clearStale(); err != nil {
		return provenance.Stamp{}, err
	}

	stamp, err := r.Resolve(ctx)
	if err != nil {
		return provenance.Stamp{}, err
	}
	if err := s.artifact.Write(stamp.String()); err != nil {
		return provenance.Stamp{}, err
	}
	s.stamp = stamp
	s.logger.Info().
		Str("path", s.artifact.Path).
		Str("revision", stamp.Revision).
		Bool("dirty", stamp.Dirty).
		Msg("Stamped build artifact")
	return stamp, nil
}

func (s *Session) clearStale() error {
	v, err := s.artifact.Read()
	if err == nil && v == Neutral {
		return nil
	}
	if err == nil {
		s.logger.Warn().Str("path", s.artifact.Path).Str("stale", v).Msg("Clearing stamp left by an earlier build")
	}
	return s.artifact.Reset()
}

// Stamped returns the stamp written by the last successful Stamp call.
func (s *Session) Stamped() provenance.Stamp {
	return s.stamp
}

// Close resets the artifact to the neutral placeholder. A missing artifact
// is left missing. It is safe to call more than once; only the first call
// writes.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	ok, err := s.artifact.Exists()
	if err == nil && !ok {
		return nil
	}
	if err == nil {
		err = s.artifact.Reset()
	}
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.artifact.Path).Msg("Failed to reset build artifact")
		return err
	}
	s.logger.Debug().Str("path", s.artifact.Path).Msg("Reset build artifact")
	return nil
}

// Run stamps the artifact, calls fn, and resets the artifact afterwards. The
// reset error, if any, is joined with the error from stamping or fn.
func Run(ctx context.Context, a Artifact, r provenance.Resolver, logger zerolog.Logger, fn func(provenance.Stamp) error) (err error) {
	s := NewSession(a, logger)
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	stamp, err := s.Stamp(ctx, r)
	if err != nil {
		return err
	}
	return fn(stamp)
}
