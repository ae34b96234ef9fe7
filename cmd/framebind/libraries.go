package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/efebarandurmaz/framebind/internal/config"
	"github.com/efebarandurmaz/framebind/internal/generator"
	"github.com/efebarandurmaz/framebind/internal/graph"
	"github.com/efebarandurmaz/framebind/internal/plugins"
)

// resolveLibraries turns the command-line selection into resolved libraries.
// A library named on the command line but absent from the config is allowed
// when --input is given; it then links by its own name.
func resolveLibraries(cfg *config.Config, names []string, all bool, input, output string) ([]config.Library, error) {
	if all {
		if len(names) > 0 {
			return nil, errors.New("--all and --library are mutually exclusive")
		}
		names = cfg.LibraryNames()
		if len(names) == 0 {
			return nil, errors.New("no libraries configured")
		}
	}
	if len(names) == 0 {
		return nil, errors.New("specify --library or --all")
	}
	if (input != "" || output != "") && len(names) != 1 {
		return nil, errors.New("--input and --output apply to a single library")
	}

	libs := make([]config.Library, 0, len(names))
	for _, name := range names {
		lib, err := cfg.Library(name)
		if err != nil {
			if input == "" {
				return nil, err
			}
			adhoc := *cfg
			adhoc.Libraries = []config.LibraryConfig{{Name: name, Output: output}}
			lib, err = adhoc.Library(name)
			if err != nil {
				return nil, err
			}
		}
		if input != "" {
			lib.Input = input
		}
		if output != "" {
			lib.OutputDir = output
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

func indexLibrary(ctx context.Context, repo graph.Repository, reg *plugins.Registry, lib config.Library, capability string) error {
	p, err := generator.LoadPackage(ctx, afero.NewOsFs(), reg, lib)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := repo.StoreLibrary(ctx, lib.Name, p); err != nil {
		return err
	}
	fmt.Printf("%s: indexed %d exported symbols\n", lib.Name, len(graph.Records(lib.Name, p)))

	if capability == "" {
		return nil
	}
	syms, err := repo.QuerySymbolsByCapability(ctx, lib.Name, capability)
	if err != nil {
		return err
	}
	for _, s := range syms {
		fmt.Printf("  %-30s %-10s %-10s %s\n", s.Name, s.Visibility, s.Kind, s.File)
	}
	return nil
}
