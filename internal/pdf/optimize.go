// Package pdf validates and optimises uploaded PDFs before they are stored.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu otherwise creates a config dir under the user's home on first use.
	api.DisableConfigDir()
}

// Optimizer rewrites a PDF into a smaller equivalent.
type Optimizer interface {
	Optimize(ctx context.Context, in io.ReadSeeker, out io.Writer) error
}

// PDFCPU optimises with pdfcpu: duplicate resources are merged and
// objects are packed into compressed object streams.
type PDFCPU struct {
	conf *model.Configuration
}

// NewPDFCPU returns an optimiser tolerant of slightly malformed input.
func NewPDFCPU() *PDFCPU {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true
	return &PDFCPU{conf: conf}
}

var _ Optimizer = (*PDFCPU)(nil)

// Optimize runs the pdfcpu optimise pipeline from in to out.
// pdfcpu is not context-aware; ctx is only checked before starting.
func (p *PDFCPU) Optimize(ctx context.Context, in io.ReadSeeker, out io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := api.Optimize(in, out, p.conf); err != nil {
		return fmt.Errorf("pdfcpu optimize: %w", err)
	}
	return nil
}

// Passthrough copies the input unchanged. Used when optimisation is disabled.
type Passthrough struct{}

func (Passthrough) Optimize(_ context.Context, in io.ReadSeeker, out io.Writer) error {
	_, err := io.Copy(out, in)
	return err
}

var magic = []byte("%PDF-")

// headerWindow is how far into the file the header may appear;
// readers accept junk before it within the first KiB.
const headerWindow = 1024

// LooksLikePDF reports whether the "%PDF-" header occurs within the first KiB of r.
// r is rewound to the start afterwards.
func LooksLikePDF(r io.ReadSeeker) (bool, error) {
	buf := make([]byte, headerWindow)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	return bytes.Contains(buf[:n], magic), nil
}
