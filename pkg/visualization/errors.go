package visualization

import (
	"errors"
	"fmt"

	"niftiview/pkg/nifti"
)

var (
	// ErrNotNIFTI, ErrInvalidHeader and ErrUnsupportedDatatype are the
	// parser's errors, repeated here so callers can match on one package.
	ErrNotNIFTI            = nifti.ErrNotNIFTI
	ErrInvalidHeader       = nifti.ErrInvalidHeader
	ErrUnsupportedDatatype = nifti.ErrUnsupportedDatatype

	ErrElementNotFound = errors.New("element not found")
	ErrSliceOutOfRange = errors.New("slice index out of range")
	ErrDegenerateSlice = errors.New("slice has no intensity range")
	ErrNoFile          = errors.New("no file selected")
	ErrNotLoaded       = errors.New("no volume loaded")
	ErrSuperseded      = errors.New("load superseded by a newer load")
)

// LoadStage names the step of Load that failed.
type LoadStage string

// Load stages, in pipeline order.
const (
	StageRead       LoadStage = "read"
	StageDecompress LoadStage = "decompress"
	StageParse      LoadStage = "parse"
	StageDecode     LoadStage = "decode"
	StageBind       LoadStage = "bind"
	StageRender     LoadStage = "render"
	StageCommit     LoadStage = "commit"
)

// LoadError reports a failed Load. The viewer state is unchanged when a
// LoadError is returned.
type LoadError struct {
	Stage LoadStage
	Name  string
	Err   error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Name, e.Stage, e.Err)
}

// Unwrap provides compatibility with errors.Is and errors.As.
func (e *LoadError) Unwrap() error {
	return e.Err
}
