// Package data loads labelled image records and slices them into
// feature-major training batches.
package data

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
)

// DefaultClasses is the one-hot width used when Dataset.Classes is zero.
const DefaultClasses = 10

var (
	// ErrFormat is returned for malformed records.
	ErrFormat = errors.New("data: malformed record")

	// ErrRange is returned for a batch outside the dataset or a label
	// outside [0, Classes).
	ErrRange = errors.New("data: out of range")
)

// Dataset represents a collection of samples and labels.
type Dataset struct {
	Labels   []int
	Features [][]float64 // raw intensities, 0..255
	Classes  int         // one-hot width; DefaultClasses when zero
}

// Load reads one example per line: a label followed by the pixel values,
// separated by whitespace or commas. Blank lines are skipped.
func Load(r io.Reader) (*Dataset, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	d := &Dataset{}
	line := 0
	for sc.Scan() {
		line++
		fields := strings.FieldsFunc(sc.Text(), func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d has no features", ErrFormat, line)
		}
		vals := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d field %d: %w", ErrFormat, line, i, err)
			}
			vals[i] = v
		}
		if len(d.Features) > 0 && len(vals)-1 != len(d.Features[0]) {
			return nil, fmt.Errorf("%w: line %d has %d features, want %d", ErrFormat, line, len(vals)-1, len(d.Features[0]))
		}
		feat := make([]float64, len(vals)-1)
		for i, v := range vals[1:] {
			feat[i] = float64(v)
		}
		d.Labels = append(d.Labels, vals[0])
		d.Features = append(d.Features, feat)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return d, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Len returns the number of examples.
func (d *Dataset) Len() int { return len(d.Labels) }

// NumFeatures returns the number of features per example, 0 when empty.
func (d *Dataset) NumFeatures() int {
	if len(d.Features) == 0 {
		return 0
	}
	return len(d.Features[0])
}

func (d *Dataset) classes() int {
	if d.Classes > 0 {
		return d.Classes
	}
	return DefaultClasses
}

// NumBatches returns the number of whole batches of the given size. A
// trailing partial batch is dropped.
func (d *Dataset) NumBatches(size int) int {
	if size <= 0 {
		return 0
	}
	return d.Len() / size
}

// Batch returns batch it as a features x size matrix of intensities divided
// by 255 and a classes x size one-hot label matrix.
func (d *Dataset) Batch(size, it int) (x, y *algebra.Matrix, err error) {
	first := size * it
	if size <= 0 || it < 0 || first+size > d.Len() {
		return nil, nil, fmt.Errorf("%w: batch %d of size %d, %d examples", ErrRange, it, size, d.Len())
	}
	x, err = algebra.New(d.NumFeatures(), size)
	if err != nil {
		return nil, nil, err
	}
	y, err = algebra.New(d.classes(), size)
	if err != nil {
		return nil, nil, err
	}
	for k := 0; k < size; k++ {
		label := d.Labels[first+k]
		if label < 0 || label >= d.classes() {
			return nil, nil, fmt.Errorf("%w: label %d at example %d", ErrRange, label, first+k)
		}
		y.Set(label, k, 1)
		for j, v := range d.Features[first+k] {
			x.Set(j, k, v/255)
		}
	}
	return x, y, nil
}

// Split returns the first ratio share of the examples and the rest. Both
// share storage with d.
func (d *Dataset) Split(ratio float64) (*Dataset, *Dataset) {
	ratio = math.Max(0, math.Min(1, ratio))
	idx := int(float64(d.Len()) * ratio)
	head := &Dataset{Labels: d.Labels[:idx], Features: d.Features[:idx], Classes: d.Classes}
	tail := &Dataset{Labels: d.Labels[idx:], Features: d.Features[idx:], Classes: d.Classes}
	return head, tail
}

// Shuffle permutes the examples in place.
func (d *Dataset) Shuffle(rng *rand.Rand) {
	rng.Shuffle(d.Len(), func(i, j int) {
		d.Labels[i], d.Labels[j] = d.Labels[j], d.Labels[i]
		d.Features[i], d.Features[j] = d.Features[j], d.Features[i]
	})
}

// AddNormalNoise returns a copy of x with N(mean, std) noise added to every
// element, each result clamped to at most 1.
func AddNormalNoise(x *algebra.Matrix, mean, std float64, rng *rand.Rand) *algebra.Matrix {
	out := x.Clone()
	v := out.Raw()
	for i := range v {
		v[i] = math.Min(v[i]+mean+std*rng.NormFloat64(), 1)
	}
	return out
}
