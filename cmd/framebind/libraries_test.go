package main

import (
	"path/filepath"
	"testing"

	"github.com/efebarandurmaz/framebind/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Output.Dir = "generated"
	cfg.Libraries = []config.LibraryConfig{
		{Name: "Foundation", Input: "dumps/Foundation.json"},
		{Name: "AppKit", LinkName: "AppKit", Linkage: "unconditional", Input: "dumps/AppKit.json"},
	}
	return cfg
}

func TestResolveLibraries(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name    string
		names   []string
		all     bool
		input   string
		output  string
		want    []string
		wantErr bool
	}{
		{name: "all", all: true, want: []string{"Foundation", "AppKit"}},
		{name: "one", names: []string{"AppKit"}, want: []string{"AppKit"}},
		{name: "case-insensitive", names: []string{"foundation"}, want: []string{"Foundation"}},
		{name: "nothing selected", wantErr: true},
		{name: "all with names", names: []string{"AppKit"}, all: true, wantErr: true},
		{name: "unknown", names: []string{"UIKit"}, wantErr: true},
		{name: "unknown with input", names: []string{"UIKit"}, input: "uikit.yaml", want: []string{"UIKit"}},
		{name: "input for several", names: []string{"AppKit", "Foundation"}, input: "x.json", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			libs, err := resolveLibraries(cfg, tt.names, tt.all, tt.input, tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(libs) != len(tt.want) {
				t.Fatalf("got %d libraries, want %d", len(libs), len(tt.want))
			}
			for i, name := range tt.want {
				if libs[i].Name != name {
					t.Errorf("library %d = %s, want %s", i, libs[i].Name, name)
				}
			}
		})
	}
}

func TestResolveLibrariesOverrides(t *testing.T) {
	libs, err := resolveLibraries(testConfig(), []string{"UIKit"}, false, "uikit.yaml", "out/uikit")
	if err != nil {
		t.Fatal(err)
	}
	lib := libs[0]
	if lib.Input != "uikit.yaml" || lib.OutputDir != "out/uikit" || lib.LinkName != "UIKit" {
		t.Errorf("unexpected library %+v", lib)
	}

	libs, err = resolveLibraries(testConfig(), []string{"Foundation"}, false, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("generated", "Foundation"); libs[0].OutputDir != want {
		t.Errorf("OutputDir = %s, want %s", libs[0].OutputDir, want)
	}
}
