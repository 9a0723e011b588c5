package stampfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielgruen/ngmixer/internal/provenance"
)

// newArtifact returns a committed-style artifact holding the placeholder.
func newArtifact(t *testing.T) Artifact {
	t.Helper()
	a := Artifact{Path: filepath.Join(t.TempDir(), "hash.go")}
	require.NoError(t, a.Reset())
	return a
}

type resolverFunc func(ctx context.Context) (provenance.Stamp, error)

func (f resolverFunc) Resolve(ctx context.Context) (provenance.Stamp, error) {
	return f(ctx)
}

func TestRunStampsThenResets(t *testing.T) {
	tests := []struct {
		name  string
		stamp provenance.Stamp
		want  string
	}{
		{"dirty checkout", provenance.Stamp{Revision: "abc123", Dirty: true}, "abc123-dirty"},
		{"clean checkout", provenance.Stamp{Revision: "def456"}, "def456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newArtifact(t)
			var during string
			err := Run(context.Background(), a, provenance.Static{Stamp: tt.stamp}, zerolog.Nop(), func(s provenance.Stamp) error {
				var err error
				during, err = a.Read()
				return err
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, during)

			after, err := a.Read()
			require.NoError(t, err)
			assert.Equal(t, Neutral, after)
		})
	}
}

func TestRunResetsWhenBuildFails(t *testing.T) {
	a := newArtifact(t)
	boom := errors.New("archive failed")

	err := Run(context.Background(), a, provenance.Static{Stamp: provenance.Stamp{Revision: "abc123"}}, zerolog.Nop(), func(provenance.Stamp) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	after, err := a.Read()
	require.NoError(t, err)
	assert.Equal(t, Neutral, after)
}

func TestRunResetsWhenProvenanceFails(t *testing.T) {
	a := Artifact{Path: filepath.Join(t.TempDir(), "hash.go")}
	require.NoError(t, a.Write("stale-from-earlier"))

	called := false
	err := Run(context.Background(), a, provenance.GitResolver{Dir: t.TempDir()}, zerolog.Nop(), func(provenance.Stamp) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, provenance.ErrProvenanceUnavailable)
	assert.False(t, called, "build must abort without provenance")

	after, err := a.Read()
	require.NoError(t, err)
	assert.Equal(t, Neutral, after)
}

func TestSessionCloseIdempotent(t *testing.T) {
	a := newArtifact(t)
	s := NewSession(a, zerolog.Nop())

	stamp, err := s.Stamp(context.Background(), provenance.Static{Stamp: provenance.Stamp{Revision: "def456"}})
	require.NoError(t, err)
	assert.Equal(t, stamp, s.Stamped())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Stamp(context.Background(), provenance.Static{Stamp: provenance.Stamp{Revision: "def456"}})
	assert.Error(t, err)
}

func TestRunClearsStaleStampBeforeResolving(t *testing.T) {
	a := newArtifact(t)
	require.NoError(t, a.Write("3694346"))

	var seen string
	r := resolverFunc(func(context.Context) (provenance.Stamp, error) {
		var err error
		seen, err = a.Read()
		return provenance.Stamp{Revision: "def456"}, err
	})
	err := Run(context.Background(), a, r, zerolog.Nop(), func(s provenance.Stamp) error {
		assert.Equal(t, "def456", s.String())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Neutral, seen, "the checkout must be inspected with the placeholder in place")
}

func TestRunRefusesMissingArtifact(t *testing.T) {
	a := Artifact{Path: filepath.Join(t.TempDir(), "buildinfo", "githash.go")}

	called := false
	err := Run(context.Background(), a, provenance.Static{Stamp: provenance.Stamp{Revision: "abc123"}}, zerolog.Nop(), func(provenance.Stamp) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, ErrArtifactMissing)
	assert.False(t, called)

	_, statErr := os.Stat(a.Path)
	assert.True(t, os.IsNotExist(statErr), "no artifact may be created")
}
