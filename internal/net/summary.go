package net

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Summary writes a table of the layers, their output sizes and parameter
// counts to w.
func (n *Network) Summary(w io.Writer) error {
	rule := strings.Repeat("=", 65)
	var b strings.Builder
	fmt.Fprintf(&b, "%-25s %-20s %-10s\n", "Layer (type)", "Output Shape", "Param #")
	fmt.Fprintln(&b, rule)

	total := 0
	rows := -1
	for i, l := range n.layers {
		rows, _ = l.OutputRows(rows)
		shape := "(?)"
		if rows >= 0 {
			shape = "(" + strconv.Itoa(rows) + ")"
		}

		params := 0
		if p := l.Params(); p != nil {
			params = len(p.W.Raw()) + len(p.B)
		}
		total += params
		fmt.Fprintf(&b, "%-25s %-20s %-10d\n", fmt.Sprintf("%s_%d", l.Kind(), i), shape, params)
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Total params: %d\n", total)
	fmt.Fprintf(&b, "Loss: %s\n", n.loss.Kind())

	_, err := io.WriteString(w, b.String())
	return err
}
