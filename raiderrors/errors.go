package raiderrors

import (
	"errors"
	"fmt"
	"strings"
)

// Field (F) Errors
var (
	ErrInvalidGenerator  = errors.New("R1|InvalidGenerator: Generator is not primitive for the field polynomial.")
	ErrInvalidPolynomial = errors.New("R2|InvalidPolynomial: Field polynomial is not of degree 8.")
	ErrDivisionByZero    = errors.New("R3|DivisionByZero: Zero has no multiplicative inverse.")
)

// Parity (P) Errors
var (
	ErrShapeMismatch   = errors.New("R4|ShapeMismatch: Block count or block length inconsistent.")
	ErrParityMismatch  = errors.New("R5|ParityMismatch: Recomputed parity differs from stored parity.")
	ErrInvalidGeometry = errors.New("R8|InvalidGeometry: Disk count cannot hold data, P and Q.")
)

// Recovery (X) Errors
var (
	ErrDiskUnavailable   = errors.New("R6|DiskUnavailable: Disk could not be read or written.")
	ErrUnrecoverable     = errors.New("R7|Unrecoverable: More disks unavailable than redundancy supports.")
	ErrUnlocatable       = errors.New("R9|Unlocatable: Corruption does not match a single disk.")
	ErrIntegrityMismatch = errors.New("R10|IntegrityMismatch: Payload digest differs from manifest.")
)

var known = []error{
	ErrInvalidGenerator,
	ErrInvalidPolynomial,
	ErrDivisionByZero,
	ErrShapeMismatch,
	ErrParityMismatch,
	ErrDiskUnavailable,
	ErrUnrecoverable,
	ErrInvalidGeometry,
	ErrUnlocatable,
	ErrIntegrityMismatch,
}

// ParityMismatchError reports the first byte where recomputed parity and
// stored parity disagree, plus how many bytes disagree in total.
type ParityMismatchError struct {
	Parity   string // "P" or "Q"
	Offset   int
	Expected byte
	Actual   byte
	Count    int
}

func (e *ParityMismatchError) Error() string {
	return fmt.Sprintf("%s check failed at offset %d: expected=0x%02x actual=0x%02x (%d bytes differ)",
		e.Parity, e.Offset, e.Expected, e.Actual, e.Count)
}

func (e *ParityMismatchError) Unwrap() error { return ErrParityMismatch }

// DiskUnavailableError is produced by the disk collaborator for any I/O fault.
type DiskUnavailableError struct {
	Disk int
	Err  error
}

func (e *DiskUnavailableError) Error() string {
	return fmt.Sprintf("disk %d unavailable: %v", e.Disk, e.Err)
}

func (e *DiskUnavailableError) Unwrap() []error { return []error{ErrDiskUnavailable, e.Err} }

// sentinel returns the known error wrapped somewhere in err's chain.
func sentinel(err error) error {
	for _, k := range known {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	s := sentinel(err)
	if s == nil {
		return err.Error()
	}
	parts := strings.SplitN(s.Error(), "|", 2)
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	s := sentinel(err)
	if s == nil {
		return ""
	}
	parts := strings.SplitN(s.Error(), "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	if code == "" {
		return ""
	}
	return code + "_" + GetErrorName(err)
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	s := sentinel(err)
	if s == nil {
		return "DESC NOT SET"
	}
	parts := strings.SplitN(s.Error(), ":", 2)
	return strings.TrimSpace(parts[1])
}
