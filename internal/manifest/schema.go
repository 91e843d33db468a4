package manifest

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// maxManifestSize bounds the input handed to the CUE evaluator.
const maxManifestSize = 5 * 1024 * 1024

// decodeWithSchema compiles schema, unifies data with the definition at schemaPath,
// validates the result as concrete and decodes it into out. JSON input is valid CUE,
// so manifests go through the evaluator unchanged.
func decodeWithSchema(schema, data []byte, schemaPath, filename string, out any) error {
	if len(data) > maxManifestSize {
		return fmt.Errorf("%s: file exceeds %d bytes", filename, maxManifestSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile manifest schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return formatError(userValue.Err(), filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatError(err, filename)
	}

	if err := unified.Decode(out); err != nil {
		return formatError(err, filename)
	}
	return nil
}

// formatError flattens CUE errors into "<file>: <path>: <message>" lines.
func formatError(err error, filename string) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", filename, err)
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		path := strings.Join(cueerrors.Path(e), ".")
		msg := e.Error()
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		if path != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", path, msg))
			continue
		}
		lines = append(lines, msg)
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filename, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filename, strings.Join(lines, "\n  "))
}
