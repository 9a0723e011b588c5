package semver

import (
	"regexp"
	"strconv"
	"strings"
)

// pep440 is the grammar from the PEP 440 appendix, anchored and case-folded.
var pep440 = regexp.MustCompile(`^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?:[-_.]?(?P<prel>alpha|beta|preview|pre|a|b|c|rc)[-_.]?(?P<pren>[0-9]+)?)?` +
	`(?:-(?P<postn1>[0-9]+)|[-_.]?(?P<postl>post|rev|r)[-_.]?(?P<postn2>[0-9]+)?)?` +
	`(?:[-_.]?(?P<devl>dev)[-_.]?(?P<devn>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?\s*$`)

var localSegment = regexp.MustCompile(`^[a-z0-9]+$`)

// Version is a parsed PEP 440 version. Optional parts are nil when absent.
type Version struct {
	original string
	epoch    int
	release  []int
	pre      *preRelease
	post     *int
	dev      *int
	local    []string
}

type preRelease struct {
	phase  string // "a", "b", "rc"
	number int
}

// Parse parses a PEP 440 version string.
func Parse(version string) (*Version, error) {
	if strings.TrimSpace(version) == "" {
		return nil, parseError(version, "empty version string")
	}
	m := pep440.FindStringSubmatch(strings.ToLower(version))
	if m == nil {
		return nil, parseError(version, "does not match PEP 440")
	}
	group := func(name string) string { return m[pep440.SubexpIndex(name)] }

	v := &Version{original: version, epoch: atoiOr(group("epoch"), 0)}
	for _, part := range strings.Split(group("release"), ".") {
		v.release = append(v.release, atoiOr(part, 0))
	}
	if phase := group("prel"); phase != "" {
		v.pre = &preRelease{phase: normalizePhase(phase), number: atoiOr(group("pren"), 0)}
	}
	if n := group("postn1"); n != "" {
		post := atoiOr(n, 0)
		v.post = &post
	} else if group("postl") != "" {
		post := atoiOr(group("postn2"), 0)
		v.post = &post
	}
	if group("devl") != "" {
		dev := atoiOr(group("devn"), 0)
		v.dev = &dev
	}
	if local := group("local"); local != "" {
		v.local = strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '-' || r == '_' })
	}
	return v, nil
}

func normalizePhase(phase string) string {
	switch phase {
	case "alpha", "a":
		return "a"
	case "beta", "b":
		return "b"
	}
	return "rc"
}

// Canon returns the normalized form, e.g. "1.0.0rc1.post2.dev3+local.1".
// A zero epoch is omitted.
func (v *Version) Canon() string {
	var b strings.Builder
	if v.epoch > 0 {
		b.WriteString(strconv.Itoa(v.epoch))
		b.WriteByte('!')
	}
	for i, n := range v.release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	if v.pre != nil {
		b.WriteString(v.pre.phase)
		b.WriteString(strconv.Itoa(v.pre.number))
	}
	if v.post != nil {
		b.WriteString(".post")
		b.WriteString(strconv.Itoa(*v.post))
	}
	if v.dev != nil {
		b.WriteString(".dev")
		b.WriteString(strconv.Itoa(*v.dev))
	}
	if len(v.local) > 0 {
		b.WriteByte('+')
		b.WriteString(strings.Join(v.local, "."))
	}
	return b.String()
}

// String returns the version as it was given to Parse.
func (v *Version) String() string {
	return v.original
}

// Public returns the canonical version without the local segment.
func (v *Version) Public() string {
	c := *v
	c.local = nil
	return c.Canon()
}

// Local returns the local version segments, if any.
func (v *Version) Local() []string {
	return append([]string(nil), v.local...)
}

// WithLocal returns a copy whose local segment is replaced by segments.
// Segments are lowercased; each must be non-empty and alphanumeric.
func (v *Version) WithLocal(segments ...string) (*Version, error) {
	c := *v
	c.local = nil
	for _, s := range segments {
		s = strings.ToLower(s)
		if !localSegment.MatchString(s) {
			return nil, parseError(v.original, "invalid local segment "+strconv.Quote(s))
		}
		c.local = append(c.local, s)
	}
	c.original = c.Canon()
	return &c, nil
}

// Compare orders versions by PEP 440 precedence: epoch, release, pre, post,
// dev, local. It returns -1, 0 or 1.
func (v *Version) Compare(o *Version) int {
	if c := compareInt(v.epoch, o.epoch); c != 0 {
		return c
	}
	if c := compareRelease(v.release, o.release); c != 0 {
		return c
	}
	if c := compareInt(v.preKey(), o.preKey()); c != 0 {
		return c
	}
	if v.pre != nil && o.pre != nil {
		if c := compareInt(v.pre.number, o.pre.number); c != 0 {
			return c
		}
	}
	if c := compareOptional(v.post, o.post, -1); c != 0 {
		return c
	}
	if c := compareOptional(v.dev, o.dev, 1); c != 0 {
		return c
	}
	return compareLocal(v.local, o.local)
}

// preKey ranks the pre-release phase. A bare dev release sorts before any
// pre-release of the same release; a final release sorts after all of them.
func (v *Version) preKey() int {
	if v.pre == nil {
		if v.post == nil && v.dev != nil {
			return -1
		}
		return 4
	}
	switch v.pre.phase {
	case "a":
		return 1
	case "b":
		return 2
	}
	return 3
}

func compareRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := compareInt(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// compareOptional compares optional numbers; absent sorts as absent (-1 for
// before every value, 1 for after).
func compareOptional(a, b *int, absent int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return absent
	case b == nil:
		return -absent
	}
	return compareInt(*a, *b)
}

// compareLocal: no local < any local; numeric segments beat alphanumeric ones.
func compareLocal(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		an, aerr := strconv.Atoi(a[i])
		bn, berr := strconv.Atoi(b[i])
		switch {
		case aerr == nil && berr == nil:
			if c := compareInt(an, bn); c != 0 {
				return c
			}
		case aerr == nil:
			return 1
		case berr == nil:
			return -1
		default:
			if c := strings.Compare(a[i], b[i]); c != 0 {
				return c
			}
		}
	}
	return compareInt(len(a), len(b))
}
