// Package rust renders translated statements as Rust items for the
// generated framework crates.
package rust

import (
	"errors"
	"fmt"
	"strings"

	"github.com/efebarandurmaz/framebind/internal/ir"
	"github.com/efebarandurmaz/framebind/internal/plugins"
)

var (
	ErrUnsupportedKind = errors.New("unsupported statement kind")
	ErrIncomplete      = errors.New("statement is missing renderer payload")
)

// RootClass is the superclass used for classes that declare none.
const RootClass = "AnyObject"

// Plugin implements TargetPlugin for Rust.
type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Language() string { return "rust" }

// RenderStatement returns the item for stmt, prefixed by the cfg gate of
// its required capabilities and followed by a blank line.
func (p *Plugin) RenderStatement(stmt *ir.Statement) (string, error) {
	if stmt == nil {
		return "", fmt.Errorf("%w: nil statement", ErrIncomplete)
	}
	body, err := renderItem(stmt)
	if err != nil {
		return "", err
	}
	return stmt.Required.CfgGateLn() + body + "\n", nil
}

func itemName(stmt *ir.Statement) string {
	if stmt.Exported != nil {
		return stmt.Exported.Name
	}
	return stmt.Name
}

func renderItem(stmt *ir.Statement) (string, error) {
	name := itemName(stmt)
	need := func(fields ...string) error {
		for _, f := range fields {
			if f == "" {
				return fmt.Errorf("%w: %s", ErrIncomplete, stmt.Label())
			}
		}
		return nil
	}

	switch stmt.Kind {
	case ir.StmtClass:
		if err := need(name); err != nil {
			return "", err
		}
		super := stmt.Superclass
		if super == "" {
			super = RootClass
		}
		return fmt.Sprintf("extern_class!(\n"+
			"    #[unsafe(super(%s))]\n"+
			"    #[derive(Debug, PartialEq, Eq, Hash)]\n"+
			"    pub struct %s;\n"+
			");\n", super, name), nil

	case ir.StmtProtocol:
		if err := need(name); err != nil {
			return "", err
		}
		return fmt.Sprintf("extern_protocol!(\n    pub unsafe trait %s {}\n);\n", name), nil

	case ir.StmtConst:
		if err := need(name, stmt.Type, stmt.Value); err != nil {
			return "", err
		}
		return fmt.Sprintf("pub const %s: %s = %s;\n", name, stmt.Type, stmt.Value), nil

	case ir.StmtStatic:
		if err := need(name, stmt.Type); err != nil {
			return "", err
		}
		return fmt.Sprintf("extern \"C\" {\n    pub static %s: %s;\n}\n", name, stmt.Type), nil

	case ir.StmtFn:
		if err := need(name); err != nil {
			return "", err
		}
		sig := stmt.Signature
		if sig == "" {
			sig = "()"
		}
		return fmt.Sprintf("extern \"C-unwind\" {\n    pub fn %s%s;\n}\n", name, sig), nil

	case ir.StmtTypedef:
		if err := need(name, stmt.Type); err != nil {
			return "", err
		}
		return fmt.Sprintf("pub type %s = %s;\n", name, stmt.Type), nil

	case ir.StmtRaw:
		if err := need(strings.TrimSpace(stmt.Body)); err != nil {
			return "", err
		}
		body := stmt.Body
		if !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		return body, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, stmt.Kind)
}

var _ plugins.TargetPlugin = (*Plugin)(nil)
