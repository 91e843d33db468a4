package markup

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// ScriptHasSyntaxErrors parses src as JavaScript and reports whether the parser
// had to recover from errors.
func ScriptHasSyntaxErrors(ctx context.Context, src string) (bool, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(javascript.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, []byte(src))
	if err != nil {
		return false, err
	}
	defer tree.Close()

	return tree.RootNode().HasError(), nil
}
