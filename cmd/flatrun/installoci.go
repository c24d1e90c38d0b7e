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
	"context"

	"github.com/alecthomas/kong"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

const errFmtInstallOCI = "cannot install from %s:%s"

// InstallOCICmd installs a flatpak ref bundled as an OCI image, binding a
// freshly provisioned origin remote to it (§4.6).
type InstallOCICmd struct {
	URI string `arg:"" help:"OCI repository name, e.g. registry.example.com/app."`
	Tag string `arg:"" default:"latest" help:"Tag to pull."`
}

// Run implements the install-oci subcommand.
func (c *InstallOCICmd) Run(k *kong.Context, g *Globals, collab *Collaborators) error {
	ctx := context.Background()

	tx := collab.newTransaction(g)
	if err := tx.AddInstallFromOCI(ctx, c.URI, c.Tag); err != nil {
		return errors.Wrapf(err, errFmtInstallOCI, c.URI, c.Tag)
	}

	return collab.run(ctx, g, tx)
}
