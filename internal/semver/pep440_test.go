package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
		canon   string
	}{
		// Basic versions
		{name: "simple version", version: "0.1.0", canon: "0.1.0"},
		{name: "two part version", version: "1.0", canon: "1.0"},
		{name: "leading v", version: "v1.2.3", canon: "1.2.3"},
		{name: "leading zeros", version: "1.02.003", canon: "1.2.3"},

		// Epoch
		{name: "with epoch", version: "1!2.0.0", canon: "1!2.0.0"},
		{name: "epoch zero", version: "0!1.0.0", canon: "1.0.0"},

		// Pre-releases
		{name: "alpha", version: "1.0.0a1", canon: "1.0.0a1"},
		{name: "alpha long", version: "1.0.0alpha1", canon: "1.0.0a1"},
		{name: "beta separated", version: "1.0.0-beta.2", canon: "1.0.0b2"},
		{name: "rc short", version: "1.0.0c3", canon: "1.0.0rc3"},
		{name: "preview", version: "1.0.0preview1", canon: "1.0.0rc1"},
		{name: "alpha no number", version: "1.0.0a", canon: "1.0.0a0"},

		// Post and dev releases
		{name: "post", version: "1.0.0.post1", canon: "1.0.0.post1"},
		{name: "post dash", version: "1.0.0-1", canon: "1.0.0.post1"},
		{name: "rev", version: "1.0.0rev2", canon: "1.0.0.post2"},
		{name: "dev", version: "1.0.0.dev0", canon: "1.0.0.dev0"},
		{name: "dev no number", version: "1.0.0.dev", canon: "1.0.0.dev0"},

		// Local versions
		{name: "local", version: "0.1.0+gabc123.dirty", canon: "0.1.0+gabc123.dirty"},
		{name: "local separators", version: "1.0+ubuntu-1_2", canon: "1.0+ubuntu.1.2"},

		// Combinations and case
		{name: "all parts", version: "1!1.0.0a1.post2.dev3+local", canon: "1!1.0.0a1.post2.dev3+local"},
		{name: "uppercase", version: "1.0.0RC1", canon: "1.0.0rc1"},

		// Invalid
		{name: "empty", version: "", wantErr: true},
		{name: "blank", version: "   ", wantErr: true},
		{name: "letters", version: "latest", wantErr: true},
		{name: "trailing dot", version: "1.0.", wantErr: true},
		{name: "bad local", version: "1.0+", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.version)
			if tt.wantErr {
				require.Error(t, err)
				var perr ParseError
				assert.ErrorAs(t, err, &perr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.canon, v.Canon())
			assert.Equal(t, tt.version, v.String())
		})
	}
}

func TestCompare(t *testing.T) {
	// Ascending PEP 440 order.
	ordered := []string{
		"0.1.0.dev0",
		"0.1.0a1",
		"0.1.0a2",
		"0.1.0b1",
		"0.1.0rc1",
		"0.1.0",
		"0.1.0+gabc123",
		"0.1.0+gabc123.dirty",
		"0.1.0.post1.dev0",
		"0.1.0.post1",
		"0.1.1",
		"1!0.0.1",
	}
	for i := 0; i < len(ordered); i++ {
		for j := 0; j < len(ordered); j++ {
			a, err := Parse(ordered[i])
			require.NoError(t, err)
			b, err := Parse(ordered[j])
			require.NoError(t, err)

			want := compareInt(i, j)
			assert.Equal(t, want, a.Compare(b), "%s vs %s", ordered[i], ordered[j])
		}
	}
}

func TestCompareReleasePadding(t *testing.T) {
	a, _ := Parse("1.0")
	b, _ := Parse("1.0.0")
	assert.Equal(t, 0, a.Compare(b))
}

func TestLocalNumericBeatsAlpha(t *testing.T) {
	a, _ := Parse("1.0+abc")
	b, _ := Parse("1.0+5")
	assert.Equal(t, -1, a.Compare(b))
}

func TestWithLocal(t *testing.T) {
	v, err := Parse("0.1.0+old")
	require.NoError(t, err)

	stamped, err := v.WithLocal("gABC123", "dirty")
	require.NoError(t, err)
	assert.Equal(t, "0.1.0+gabc123.dirty", stamped.Canon())
	assert.Equal(t, "0.1.0+gabc123.dirty", stamped.String())
	assert.Equal(t, []string{"gabc123", "dirty"}, stamped.Local())
	assert.Equal(t, "0.1.0", stamped.Public())

	// original untouched
	assert.Equal(t, "0.1.0+old", v.Canon())

	cleared, err := v.WithLocal()
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", cleared.Canon())

	_, err = v.WithLocal("not-valid")
	assert.Error(t, err)
	_, err = v.WithLocal("")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "1.0.0rc1", Normalize("1.0.0-RC1"))
	assert.Equal(t, "not a version", Normalize("not a version"))
}
