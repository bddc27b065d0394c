// Package imgio writes matrix columns as grayscale bitmap images.
//
// A column holds height*width intensities in [0, 1], row by row from the
// top of the image.
package imgio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"golang.org/x/image/bmp"
)

// ErrSize is returned when a column does not hold height*width values or a
// sample range is outside the matrix.
var ErrSize = errors.New("imgio: size mismatch")

// Gray converts a column to a grayscale image. Intensities are scaled by 255
// and truncated; values outside [0, 1] saturate.
func Gray(column []float64, height, width int) (*image.Gray, error) {
	if height <= 0 || width <= 0 || len(column) != height*width {
		return nil, fmt.Errorf("%w: %d values for %dx%d image", ErrSize, len(column), height, width)
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: intensity(column[y*width+x])})
		}
	}
	return img, nil
}

func intensity(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(int(v * 255))
}

// Encode writes column to w as a BMP image.
func Encode(w io.Writer, column []float64, height, width int) error {
	img, err := Gray(column, height, width)
	if err != nil {
		return err
	}
	return bmp.Encode(w, img)
}

// SaveSamples writes columns [begin, end) of m to dir as "<i>_<name>.bmp".
func SaveSamples(m *algebra.Matrix, height, width, begin, end int, dir, name string) error {
	if begin < 0 || end > m.Cols() || begin > end {
		return fmt.Errorf("%w: samples [%d, %d) of %d columns", ErrSize, begin, end, m.Cols())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	col := make([]float64, m.Rows())
	for i := begin; i < end; i++ {
		m.Col(col, i)
		if err := saveOne(filepath.Join(dir, strconv.Itoa(i)+"_"+name+".bmp"), col, height, width); err != nil {
			return err
		}
	}
	return nil
}

func saveOne(path string, column []float64, height, width int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, column, height, width)
}
