package opt

import (
	"testing"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"github.com/FlavioCFOliveira/deepgo/internal/layer"
)

func benchParams(b *testing.B, rows, cols int) *layer.Params {
	b.Helper()
	W, err := algebra.New(rows, cols)
	if err != nil {
		b.Fatal(err)
	}
	DW := algebra.OnesLike(W)
	return &layer.Params{W: W, B: make([]float64, rows), DW: DW, DB: make([]float64, rows)}
}

func BenchmarkAdamUpdate(b *testing.B) {
	p := benchParams(b, 128, 784)
	adam := NewAdam()
	if err := adam.Initialize(0, p); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = adam.Update(0, p, 0.001, 20)
	}
}

func BenchmarkSGDUpdate(b *testing.B) {
	p := benchParams(b, 128, 784)
	sgd := NewSGD()
	if err := sgd.Initialize(0, p); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sgd.Update(0, p, 0.001, 20)
	}
}
