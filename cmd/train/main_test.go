package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FlavioCFOliveira/deepgo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDigits writes n 2x2 examples whose label is the index of the bright
// pixel.
func writeDigits(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		label := i % 4
		px := []string{"0", "0", "0", "0"}
		px[label] = "255"
		fmt.Fprintf(&b, "%d %s\n", label, strings.Join(px, " "))
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

const tinyClassifier = `
name: tiny
seed: 3
batch_size: 4
epochs: 2
clip: 5
classification: true
layers:
  - {type: affine, in: 4, out: 10}
  - {type: softmax}
loss: cross_entropy
schedule: {type: constant, rate: 0.01}
data: {train: unused}
images: {height: 2, width: 2, predictions: 3}
`

func TestRunClassifier(t *testing.T) {
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "train.txt")
	testPath := filepath.Join(dir, "test.txt")
	writeDigits(t, trainPath, 16)
	writeDigits(t, testPath, 8)
	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(tinyClassifier), 0o644))

	images := filepath.Join(dir, "images")
	history := filepath.Join(dir, "history.csv")
	var stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-config", cfgPath, "-train", trainPath, "-test", testPath,
		"-images", images, "-history", history, "-epochs", "3",
	}, &stderr)
	require.NoError(t, err, stderr.String())

	logs := stderr.String()
	assert.Contains(t, logs, "run_id=")
	assert.Contains(t, logs, "training done")
	assert.Contains(t, logs, "eval_accuracy=")

	f, err := os.Open(history)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)

	matches, err := filepath.Glob(filepath.Join(images, "*.bmp"))
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestRunDenoisingPresetOverrides(t *testing.T) {
	c, err := config.Preset("denoising-vae")
	require.NoError(t, err)
	require.NotNil(t, c.Noise)

	// The preset topology expects 784 features.
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "train.txt")
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprint(&b, i%10)
		for j := 0; j < 784; j++ {
			fmt.Fprintf(&b, " %d", (i*31+j*7)%256)
		}
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(trainPath, []byte(b.String()), 0o644))

	images := filepath.Join(dir, "images")
	var stderr bytes.Buffer
	err = run(context.Background(), []string{
		"-preset", "denoising-vae", "-train", trainPath, "-images", images, "-epochs", "1", "-seed", "9",
	}, &stderr)
	require.NoError(t, err, stderr.String())

	for _, name := range []string{"0_noisy.bmp", "19_denoised.bmp"} {
		_, err := os.Stat(filepath.Join(images, name))
		assert.NoError(t, err, name)
	}
}

func TestRunErrors(t *testing.T) {
	var stderr bytes.Buffer
	err := run(context.Background(), []string{"-preset", "nope"}, &stderr)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	err = run(context.Background(), []string{"-train", filepath.Join(t.TempDir(), "missing.txt")}, &stderr)
	assert.Error(t, err)

	err = run(context.Background(), []string{"-h"}, &stderr)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}
