package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/efebarandurmaz/framebind/internal/config"
)

// repoFs reads the checked-in sample config inputs and keeps writes in memory.
func repoFs() afero.Fs {
	base := afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), "../.."))
	return afero.NewCopyOnWriteFs(base, afero.NewMemMapFs())
}

func TestSampleLibraries(t *testing.T) {
	cfg, err := config.Load("../../configs/framebind.yaml")
	if err != nil {
		t.Fatalf("loading sample config: %v", err)
	}
	if warnings := cfg.Validate(); len(warnings) != 0 {
		t.Errorf("sample config has warnings: %v", warnings)
	}

	fsys := repoFs()
	for _, name := range cfg.LibraryNames() {
		lib, err := cfg.Library(name)
		if err != nil {
			t.Fatal(err)
		}
		res, err := Run(context.Background(), Options{Library: lib, Fs: fsys, Workers: cfg.Output.Workers})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(res.Units) != res.Package.Len()+1 {
			t.Errorf("%s: %d units for %d files", name, len(res.Units), res.Package.Len())
		}
	}
}

func TestSampleCoreGraphicsAggregator(t *testing.T) {
	cfg, err := config.Load("../../configs/framebind.yaml")
	if err != nil {
		t.Fatal(err)
	}
	lib, err := cfg.Library("CoreGraphics")
	if err != nil {
		t.Fatal(err)
	}
	fsys := repoFs()
	if _, err := Run(context.Background(), Options{Library: lib, Fs: fsys}); err != nil {
		t.Fatal(err)
	}

	got, err := afero.ReadFile(fsys, lib.OutputDir+"/mod.rs")
	if err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"// This file has been automatically generated by `framebind`.",
		"// DO NOT EDIT",
		"",
		"//! # Bindings to the `CoreGraphics` framework",
		"#![allow(unused_imports)]",
		"#![allow(deprecated)]",
		"#![allow(non_snake_case)]",
		"#![allow(non_camel_case_types)]",
		"#![allow(non_upper_case_globals)]",
		"#![allow(missing_docs)]",
		"#![allow(clippy::too_many_arguments)]",
		"#![allow(clippy::type_complexity)]",
		"#![allow(clippy::upper_case_acronyms)]",
		"#![allow(clippy::identity_op)]",
		"#![allow(clippy::missing_safety_doc)]",
		"",
		`#[link(name = "CoreGraphics", kind = "framework")]`,
		`extern "C" {}`,
		"",
		`#[path = "CGColorSpace_Extras.rs"]`,
		"mod __CGColorSpace_Extras;",
		`#[path = "CGGeometry.rs"]`,
		"mod __CGGeometry;",
		"",
		`#[cfg(feature = "CGColorSpace")]`,
		"pub use self::__CGColorSpace_Extras::{kCGColorSpaceSRGB};",
		"pub use self::__CGGeometry::{CGFloat};",
		`#[cfg(feature = "CGGeometry")]`,
		"pub use self::__CGGeometry::{CGPoint};",
		"",
	}, "\n")
	if string(got) != want {
		t.Errorf("mod.rs mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}

	// Writes stay in the overlay.
	if ok, _ := afero.Exists(afero.NewOsFs(), "../../"+lib.OutputDir); ok {
		t.Error("sample run wrote into the repository")
	}
}
