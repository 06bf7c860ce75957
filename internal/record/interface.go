package record

import (
	"context"
	"time"
)

// Record is one control-loop observation.
type Record struct {
	Elapsed   time.Duration
	Corrected float64
	Current   float64
}

// Sink is an append-only destination for records, written in loop order.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	Close() error
}

// Field is one "Name: value" line of a log header.
type Field struct {
	Name  string
	Value string
}

// Header is written once, before the first record.
type Header struct {
	Title  string
	Fields []Field
}
