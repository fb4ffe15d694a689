// Package tissue loads the per-sample lists of spots that fall under
// imaged tissue and normalizes their coordinate encoding to the <x>x<y>
// form used by the count matrices.
package tissue

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"

	"github.com/navarro-lab/spotstats"
)

// Mask is the set of spot identifiers under tissue for one sample.
type Mask map[string]struct{}

func (m Mask) Contains(spotID string) bool {
	_, exists := m[spotID]
	return exists
}

// Normalizer converts one raw token from an under-tissue file into a
// canonical spot identifier.
type Normalizer func(token string) (string, error)

// normalizers keys samples with irregular coordinate encodings to the
// routine that repairs them. This is a documented one-off in the source
// data: AU3's selection export carries fractional pixel coordinates, while
// every other sample writes integers. The override is keyed by sample
// identifier on purpose; it must not be inferred from file content.
var normalizers = map[string]Normalizer{
	"AU3": RoundedCoordinates,
}

// NormalizerFor returns the coordinate normalizer for a sample, which is
// DelimiterSwap unless the sample has a registered override.
func NormalizerFor(sampleID string) Normalizer {
	if n, exists := normalizers[sampleID]; exists {
		return n
	}

	return DelimiterSwap
}

// DelimiterSwap rewrites "7_12" as "7x12". Both components must be
// integers.
func DelimiterSwap(token string) (string, error) {
	x, y, err := splitCoordinates(token)
	if err != nil {
		return "", err
	}

	for _, part := range []string{x, y} {
		if _, err := strconv.Atoi(part); err != nil {
			return "", fmt.Errorf("spot %q: coordinate %q is not an integer", token, part)
		}
	}

	return x + "x" + y, nil
}

// RoundedCoordinates parses each component as a number and rounds to the
// nearest integer before re-encoding, so "12.4_7.6" becomes "12x8".
func RoundedCoordinates(token string) (string, error) {
	x, y, err := splitCoordinates(token)
	if err != nil {
		return "", err
	}

	xf, err := strconv.ParseFloat(x, 64)
	if err != nil {
		return "", fmt.Errorf("spot %q: coordinate %q is not a number", token, x)
	}

	yf, err := strconv.ParseFloat(y, 64)
	if err != nil {
		return "", fmt.Errorf("spot %q: coordinate %q is not a number", token, y)
	}

	return fmt.Sprintf("%dx%d", int(math.Round(xf)), int(math.Round(yf))), nil
}

func splitCoordinates(token string) (x, y string, err error) {
	parts := strings.Split(token, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("spot %q: want two coordinates separated by _", token)
	}

	return parts[0], parts[1], nil
}

// LoadMask reads the under-tissue spot list for a sample. Only the first
// line matters: it holds the tab-delimited spot identifiers, which are
// normalized with the sample's coordinate normalizer.
func LoadMask(path, sampleID string) (Mask, error) {
	f, err := spotstats.MaybeOpenGzip(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, pfx.Err(err)
		}
		return nil, fmt.Errorf("%s: empty tissue spot file", path)
	}

	normalize := NormalizerFor(sampleID)

	mask := make(Mask)
	for _, token := range strings.Split(scanner.Text(), "\t") {
		if token == "" {
			continue
		}

		spotID, err := normalize(token)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		mask[spotID] = struct{}{}
	}

	return mask, nil
}
