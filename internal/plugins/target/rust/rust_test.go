package rust

import (
	"errors"
	"testing"

	"github.com/efebarandurmaz/framebind/internal/ir"
)

func sym(file ir.FileID, name string) *ir.ExportedSymbol {
	return &ir.ExportedSymbol{Name: name, OwningFile: file}
}

func TestRenderStatement(t *testing.T) {
	tests := []struct {
		name string
		stmt *ir.Statement
		want string
	}{
		{
			name: "class",
			stmt: &ir.Statement{OwningFile: "NSString", Kind: ir.StmtClass, Superclass: "NSObject",
				Required: ir.Capabilities("NSString"), Exported: sym("NSString", "NSString")},
			want: "#[cfg(feature = \"NSString\")]\n" +
				"extern_class!(\n" +
				"    #[unsafe(super(NSObject))]\n" +
				"    #[derive(Debug, PartialEq, Eq, Hash)]\n" +
				"    pub struct NSString;\n" +
				");\n\n",
		},
		{
			name: "root class",
			stmt: &ir.Statement{OwningFile: "NSObject", Kind: ir.StmtClass, Exported: sym("NSObject", "NSObject")},
			want: "extern_class!(\n" +
				"    #[unsafe(super(AnyObject))]\n" +
				"    #[derive(Debug, PartialEq, Eq, Hash)]\n" +
				"    pub struct NSObject;\n" +
				");\n\n",
		},
		{
			name: "protocol",
			stmt: &ir.Statement{OwningFile: "NSObject", Kind: ir.StmtProtocol, Exported: sym("NSObject", "NSCopying")},
			want: "extern_protocol!(\n    pub unsafe trait NSCopying {}\n);\n\n",
		},
		{
			name: "const",
			stmt: &ir.Statement{OwningFile: "NSObjCRuntime", Kind: ir.StmtConst, Type: "f64", Value: "397.4",
				Exported: sym("NSObjCRuntime", "NSFoundationVersionNumber10_0")},
			want: "pub const NSFoundationVersionNumber10_0: f64 = 397.4;\n\n",
		},
		{
			name: "static",
			stmt: &ir.Statement{OwningFile: "NSString", Kind: ir.StmtStatic, Type: "&'static NSString",
				Required: ir.Capabilities("NSString", "NSObjCRuntime"), Exported: sym("NSString", "NSCharacterConversionException")},
			want: "#[cfg(all(feature = \"NSObjCRuntime\", feature = \"NSString\"))]\n" +
				"extern \"C\" {\n    pub static NSCharacterConversionException: &'static NSString;\n}\n\n",
		},
		{
			name: "fn",
			stmt: &ir.Statement{OwningFile: "NSObjCRuntime", Kind: ir.StmtFn, Signature: "(a_string: &NSString) -> Sel",
				Exported: sym("NSObjCRuntime", "NSSelectorFromString")},
			want: "extern \"C-unwind\" {\n    pub fn NSSelectorFromString(a_string: &NSString) -> Sel;\n}\n\n",
		},
		{
			name: "fn without signature",
			stmt: &ir.Statement{OwningFile: "NSThread", Kind: ir.StmtFn, Exported: sym("NSThread", "NSThreadTick")},
			want: "extern \"C-unwind\" {\n    pub fn NSThreadTick();\n}\n\n",
		},
		{
			name: "typedef",
			stmt: &ir.Statement{OwningFile: "NSObjCRuntime", Kind: ir.StmtTypedef, Type: "isize",
				Exported: sym("NSObjCRuntime", "NSInteger")},
			want: "pub type NSInteger = isize;\n\n",
		},
		{
			name: "raw",
			stmt: &ir.Statement{OwningFile: "NSString", Kind: ir.StmtRaw, Body: "unsafe impl Send for NSString {}",
				Required: ir.Capabilities("NSString")},
			want: "#[cfg(feature = \"NSString\")]\nunsafe impl Send for NSString {}\n\n",
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.RenderStatement(tt.stmt)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got:\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestRenderStatement_Errors(t *testing.T) {
	p := New()
	tests := []struct {
		name string
		stmt *ir.Statement
		want error
	}{
		{"nil", nil, ErrIncomplete},
		{"const without value", &ir.Statement{Kind: ir.StmtConst, Name: "K", Type: "i32"}, ErrIncomplete},
		{"empty raw", &ir.Statement{Kind: ir.StmtRaw, Body: "  \n"}, ErrIncomplete},
		{"unnamed class", &ir.Statement{Kind: ir.StmtClass}, ErrIncomplete},
		{"unknown kind", &ir.Statement{Kind: "macro", Name: "m"}, ErrUnsupportedKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.RenderStatement(tt.stmt); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLanguage(t *testing.T) {
	if New().Language() != "rust" {
		t.Error("unexpected language")
	}
}
