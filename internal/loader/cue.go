package loader

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource []byte

// compileSchema returns the #Document definition. The schema is embedded,
// so a failure here is a build defect and panics.
func compileSchema(ctx *cue.Context) cue.Value {
	v := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		panic(fmt.Sprintf("loader: embedded schema: %v", err))
	}
	return v.LookupPath(cue.ParsePath("#Document"))
}

// decodeCUE compiles a CUE source, unifies it with the document schema and
// decodes the result. Schema violations keep their CUE position.
func (l *Loader) decodeCUE(path string, data []byte) (*document, error) {
	value := l.cue.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, err)
	}

	value = l.schema.Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}

	var doc document
	if err := value.Decode(&doc); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}
	return &doc, nil
}

// cueLoadError extracts position info from CUE errors.
// CUE errors may contain multiple errors; the first one is reported.
func cueLoadError(code string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
