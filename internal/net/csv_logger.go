package net

import (
	"encoding/csv"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// CSVLogger logs per-epoch training history to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool
	Log      *slog.Logger

	file   *os.File
	writer *csv.Writer
	start  time.Time
	err    error
}

var csvHeader = []string{"epoch", "lr", "loss", "accuracy", "eval_loss", "eval_accuracy", "time_seconds"}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

// Err returns the first error met while opening or writing the file.
func (c *CSVLogger) Err() error { return c.err }

func (c *CSVLogger) fail(msg string, err error) {
	if c.err == nil {
		c.err = err
	}
	loggerOrDefault(c.Log).Error(msg, "file", c.Filename, "err", err)
}

func (c *CSVLogger) OnTrainBegin(n *Network) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0o644)
	if err != nil {
		c.fail("csv logger: failed to open file", err)
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	// Write header if not appending or if file is empty
	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.write(csvHeader)
	}
}

func (c *CSVLogger) write(record []string) {
	if err := c.writer.Write(record); err != nil {
		c.fail("csv logger: failed to write record", err)
		return
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.fail("csv logger: failed to flush", err)
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func (c *CSVLogger) OnEpochEnd(stats EpochStats, n *Network) {
	if c.writer == nil {
		return
	}

	record := []string{
		strconv.Itoa(stats.Epoch),
		formatFloat(stats.LearningRate),
		formatFloat(stats.Loss),
		"", "", "",
		strconv.FormatFloat(time.Since(c.start).Seconds(), 'f', 2, 64),
	}
	if stats.Classification {
		record[3] = formatFloat(stats.Accuracy)
	}
	if stats.Evaluated {
		record[4] = formatFloat(stats.EvalLoss)
		if stats.Classification {
			record[5] = formatFloat(stats.EvalAccuracy)
		}
	}
	c.write(record)
}

func (c *CSVLogger) OnTrainEnd(n *Network) {
	if c.file != nil {
		c.writer.Flush()
		if err := c.writer.Error(); err != nil {
			c.fail("csv logger: failed to flush", err)
		}
		if err := c.file.Close(); err != nil {
			c.fail("csv logger: failed to close file", err)
		}
		c.file = nil
		c.writer = nil
	}
}
