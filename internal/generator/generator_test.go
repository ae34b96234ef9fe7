package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/efebarandurmaz/framebind/internal/assembler"
	"github.com/efebarandurmaz/framebind/internal/config"
	"github.com/efebarandurmaz/framebind/internal/observability"
	"github.com/efebarandurmaz/framebind/internal/state"
)

const foundationDump = `library: Foundation
files:
  - id: NSString
    statements:
      - owning_file: NSString
        kind: typedef
        name: NSStringEncoding
        type: NSUInteger
        exported: {name: NSStringEncoding, owning_file: NSString}
  - id: NSObject
    statements:
      - owning_file: NSObject
        kind: class
        name: NSObject
        required: [NSObject]
        exported: {name: NSObject, owning_file: NSObject}
`

const shrunkDump = `library: Foundation
files:
  - id: NSObject
    statements:
      - owning_file: NSObject
        kind: class
        name: NSObject
        required: [NSObject]
        exported: {name: NSObject, owning_file: NSObject}
`

func foundation() config.Library {
	return config.Library{
		Name:      "Foundation",
		LinkName:  "Foundation",
		Linkage:   assembler.PlatformConditional,
		Input:     "dumps/Foundation.yaml",
		OutputDir: "out/Foundation",
	}
}

func setup(t *testing.T, dump string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "dumps/Foundation.yaml", []byte(dump), 0o644); err != nil {
		t.Fatal(err)
	}
	return fsys
}

func readUnit(t *testing.T, fsys afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, filepath.Join("out/Foundation", name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

func TestRunWritesUnitsAndState(t *testing.T) {
	fsys := setup(t, foundationDump)

	res, err := Run(context.Background(), Options{Library: foundation(), Fs: fsys, Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(res.Units))
	}
	if len(res.Changes.Added) != 3 {
		t.Errorf("first run should add every unit, got %+v", res.Changes)
	}

	if got := readUnit(t, fsys, "NSString.rs"); got != "pub type NSStringEncoding = NSUInteger;\n\n" {
		t.Errorf("NSString.rs = %q", got)
	}
	if got := readUnit(t, fsys, "NSObject.rs"); !strings.HasPrefix(got, "#[cfg(feature = \"NSObject\")]\nextern_class!(") {
		t.Errorf("NSObject.rs = %q", got)
	}
	mod := readUnit(t, fsys, "mod.rs")
	for _, want := range []string{
		"#[path = \"NSObject.rs\"]\nmod __NSObject;\n",
		"#[cfg(feature = \"NSObject\")]\npub use self::__NSObject::{NSObject};\n",
		"pub use self::__NSString::{NSStringEncoding};\n",
	} {
		if !strings.Contains(mod, want) {
			t.Errorf("mod.rs missing %q", want)
		}
	}

	st, err := state.Load(fsys, "out/Foundation")
	if err != nil || st == nil {
		t.Fatalf("state not saved: %v", err)
	}
	if len(st.Units) != 3 || st.LinkName != "Foundation" {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestRunIsStable(t *testing.T) {
	fsys := setup(t, foundationDump)
	ctx := context.Background()

	if _, err := Run(ctx, Options{Library: foundation(), Fs: fsys}); err != nil {
		t.Fatal(err)
	}
	first := readUnit(t, fsys, "mod.rs")

	res, err := Run(ctx, Options{Library: foundation(), Fs: fsys})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changes.Unchanged) != 3 || len(res.Changes.Added)+len(res.Changes.Changed) != 0 {
		t.Errorf("second run should change nothing, got %+v", res.Changes)
	}
	if readUnit(t, fsys, "mod.rs") != first {
		t.Error("aggregator differs between identical runs")
	}
}

func TestRunPrune(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		prune     bool
		wantGone  bool
		wantCount int
	}{
		{"keep stale units", false, false, 0},
		{"prune stale units", true, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := setup(t, foundationDump)
			if _, err := Run(ctx, Options{Library: foundation(), Fs: fsys}); err != nil {
				t.Fatal(err)
			}
			if err := afero.WriteFile(fsys, "dumps/Foundation.yaml", []byte(shrunkDump), 0o644); err != nil {
				t.Fatal(err)
			}

			res, err := Run(ctx, Options{Library: foundation(), Fs: fsys, Prune: tt.prune})
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Changes.Removed) != 1 || res.Changes.Removed[0] != "NSString.rs" {
				t.Errorf("Removed = %v", res.Changes.Removed)
			}
			if res.Pruned != tt.wantCount {
				t.Errorf("Pruned = %d, want %d", res.Pruned, tt.wantCount)
			}
			exists, _ := afero.Exists(fsys, "out/Foundation/NSString.rs")
			if exists == tt.wantGone {
				t.Errorf("NSString.rs exists = %v", exists)
			}
			if strings.Contains(readUnit(t, fsys, "mod.rs"), "NSString") {
				t.Error("aggregator still references the removed file")
			}
		})
	}
}

func TestRunInvalidDumpWritesNothing(t *testing.T) {
	dump := strings.Replace(foundationDump, "exported: {name: NSStringEncoding, owning_file: NSString}",
		"exported: {name: NSStringEncoding, owning_file: NSObject}", 1)
	fsys := setup(t, dump)

	_, err := Run(context.Background(), Options{Library: foundation(), Fs: fsys})
	if !errors.Is(err, assembler.ErrSymbolFileMismatch) {
		t.Fatalf("expected symbol mismatch, got %v", err)
	}
	var defect *assembler.DefectError
	if !errors.As(err, &defect) || defect.File != "NSString" {
		t.Errorf("expected defect in NSString, got %v", err)
	}
	if exists, _ := afero.DirExists(fsys, "out/Foundation"); exists {
		t.Error("output directory should not be created for an invalid package")
	}
}

func TestCheck(t *testing.T) {
	fsys := setup(t, foundationDump)
	ctx := context.Background()
	opts := Options{Library: foundation(), Fs: fsys}

	mismatches, err := Check(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(mismatches) != 3 {
		t.Errorf("before generating every unit should be missing, got %v", mismatches)
	}

	if _, err := Run(ctx, opts); err != nil {
		t.Fatal(err)
	}
	mismatches, err = Check(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(mismatches) != 0 {
		t.Errorf("fresh output should be up to date, got %v", mismatches)
	}

	if err := afero.WriteFile(fsys, "out/Foundation/NSString.rs", []byte("// edited\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mismatches, err = Check(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(mismatches) != 1 || mismatches[0].Path != "NSString.rs" || mismatches[0].Kind != state.Stale {
		t.Errorf("expected NSString.rs stale, got %v", mismatches)
	}
}

func TestLoadPackage(t *testing.T) {
	ctx := context.Background()
	reg := DefaultRegistry()
	fsys := setup(t, foundationDump)
	if err := afero.WriteFile(fsys, "dumps/Foundation.dump", []byte(foundationDump), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("by extension", func(t *testing.T) {
		p, err := LoadPackage(ctx, fsys, reg, foundation())
		if err != nil {
			t.Fatal(err)
		}
		if got := p.Keys(); len(got) != 2 || got[0] != "NSObject" || got[1] != "NSString" {
			t.Errorf("Keys = %v", got)
		}
	})

	t.Run("format overrides extension", func(t *testing.T) {
		lib := foundation()
		lib.Input = "dumps/Foundation.dump"
		lib.Format = "yaml"
		if _, err := LoadPackage(ctx, fsys, reg, lib); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("unknown extension", func(t *testing.T) {
		lib := foundation()
		lib.Input = "dumps/Foundation.dump"
		if _, err := LoadPackage(ctx, fsys, reg, lib); err == nil {
			t.Error("expected an error for an unrecognised dump")
		}
	})

	t.Run("no input", func(t *testing.T) {
		lib := foundation()
		lib.Input = ""
		if _, err := LoadPackage(ctx, fsys, reg, lib); !errors.Is(err, ErrNoInput) {
			t.Errorf("expected ErrNoInput, got %v", err)
		}
	})

	t.Run("missing dump", func(t *testing.T) {
		lib := foundation()
		lib.Input = "dumps/AppKit.yaml"
		if _, err := LoadPackage(ctx, fsys, reg, lib); err == nil {
			t.Error("expected an error for a missing dump")
		}
	})
}

func TestLoadPackageRejectsCollision(t *testing.T) {
	dump := `library: Foundation
files:
  - id: Foo+Bar
    statements: []
  - id: Foo_Bar
    statements: []
`
	fsys := setup(t, dump)
	_, err := LoadPackage(context.Background(), fsys, DefaultRegistry(), foundation())
	if !errors.Is(err, assembler.ErrSanitizeCollision) {
		t.Errorf("expected ErrSanitizeCollision, got %v", err)
	}
}

func TestRunUnknownTarget(t *testing.T) {
	fsys := setup(t, foundationDump)
	_, err := Run(context.Background(), Options{Library: foundation(), Fs: fsys, Target: "swift"})
	if err == nil {
		t.Error("expected an error for an unknown target")
	}
}

func TestRunAudit(t *testing.T) {
	fsys := setup(t, foundationDump)
	ctx := context.Background()
	var buf bytes.Buffer
	audit := observability.NewAuditWriter(&buf)

	if _, err := Run(ctx, Options{Library: foundation(), Fs: fsys, Audit: audit}); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "dumps/Foundation.yaml", []byte(shrunkDump), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Run(ctx, Options{Library: foundation(), Fs: fsys, Audit: audit, Prune: true}); err != nil {
		t.Fatal(err)
	}

	var types []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e observability.AuditEvent
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatal(err)
		}
		types = append(types, string(e.EventType))
	}
	want := "generate.start generate.complete generate.start unit.prune generate.complete"
	if got := strings.Join(types, " "); got != want {
		t.Errorf("audit events = %s, want %s", got, want)
	}
}
