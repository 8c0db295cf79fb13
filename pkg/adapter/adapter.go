// Package adapter declares the contracts between the inspection engine and
// the host collaborators that perform I/O on its behalf.
//
// The engine never implements these; it only consumes the values they
// produce. Implementations are free to block, retry and time out, and must
// honor ctx cancellation.
package adapter

import (
	"context"
	"io"

	"github.com/ppecheck/ppecheck/pkg/model"
)

// LocationSource produces a single coordinate fix, or an error when no fix
// is available (permission denied, timeout). A failure must never block
// submission.
type LocationSource interface {
	Locate(ctx context.Context) (model.Location, error)
}

// EvidenceSink stores captured media and returns an opaque handle to it.
type EvidenceSink interface {
	Put(ctx context.Context, name string, r io.Reader) (model.EvidenceRef, error)
}

// RecordSink receives finalized inspection records for storage or transport.
type RecordSink interface {
	Publish(ctx context.Context, rec *model.InspectionRecord) error
}

// LocationFunc adapts a plain function to LocationSource.
type LocationFunc func(ctx context.Context) (model.Location, error)

func (f LocationFunc) Locate(ctx context.Context) (model.Location, error) { return f(ctx) }
