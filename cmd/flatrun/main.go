/*
Copyright 2025 The flatrun Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"

	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/flatrun/flatrun/internal/localindex"
	"github.com/flatrun/flatrun/internal/metadata"
	"github.com/flatrun/flatrun/internal/ocibind"
	"github.com/flatrun/flatrun/internal/related"
	"github.com/flatrun/flatrun/internal/remotechooser"
	"github.com/flatrun/flatrun/internal/store"
)

// cli is flatrun's full command surface: the transaction-wide Globals plus
// one subcommand per Planner entry point (§4.7).
type cli struct {
	Globals

	Install    InstallCmd    `cmd:"" help:"Install a ref from a named remote."`
	Update     UpdateCmd     `cmd:"" help:"Update an installed ref."`
	InstallOCI InstallOCICmd `cmd:"install-oci" help:"Install a ref bundled as an OCI image."`
}

const (
	storeRoot   = "/var/lib/flatrun"
	remoteIndex = "/var/lib/flatrun/remotes"
)

func main() {
	log := logging.NewNopLogger()

	fs := afero.NewOsFs()
	fsStore := store.NewFSStore(fs, storeRoot)
	probe := store.NewProbe(fsStore)
	idx := localindex.New(fs, remoteIndex)

	var chooser remotechooser.Chooser = remotechooser.NewInteractive(os.Stdin, os.Stdout)

	c := &cli{}

	parser := kong.Must(c,
		kong.Name("flatrun"),
		kong.Description("Plan and run flatpak-style application-bundle transactions."),
		kong.UsageOnError(),
	)

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if c.Globals.Yes {
		chooser = remotechooser.First{}
	}

	collab := &Collaborators{
		Store:   fsStore,
		Probe:   probe,
		Fetcher: metadata.NewCacheFetcher(idx),
		Related: related.NewResolver(idx, idx, log),
		Chooser: chooser,
		Search:  idx,
		Binder:  ocibind.NewBinder(&ocibind.GGCRRegistry{}, fsStore),
		Log:     log,
	}

	err = ctx.Run(&c.Globals, collab)
	ctx.FatalIfErrorf(err)
}
