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

	"github.com/flatrun/flatrun/internal/plan"
)

const errFmtInstall = "cannot install %s"

// InstallCmd installs a ref from a named remote.
type InstallCmd struct {
	Remote   string   `arg:"" help:"Name of the remote to install from."`
	Ref      string   `arg:"" help:"Ref to install, e.g. app/org.example.App/x86_64/stable."`
	Subpaths []string `help:"Restrict the install to these subpaths instead of pulling everything." optional:""`
}

// Run implements the install subcommand.
func (c *InstallCmd) Run(k *kong.Context, g *Globals, collab *Collaborators) error {
	ctx := context.Background()

	var subpaths plan.Subpaths
	if len(c.Subpaths) > 0 {
		subpaths = plan.Filter(c.Subpaths...)
	}

	tx := collab.newTransaction(g)
	if err := tx.AddInstall(ctx, c.Remote, c.Ref, subpaths); err != nil {
		return errors.Wrapf(err, errFmtInstall, c.Ref)
	}

	return collab.run(ctx, g, tx)
}
