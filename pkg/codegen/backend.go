package codegen

import (
	"bytes"

	"github.com/xplshn/gbat/pkg/config"
	"github.com/xplshn/gbat/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes an IR program and a configuration, and produces the
	// target script text as a byte buffer.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}
