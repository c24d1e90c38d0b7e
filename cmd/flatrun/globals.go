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

// Package main implements flatrun's command-line front end: a thin kong
// wiring layer over the Planner and Executor.
package main

import (
	"github.com/flatrun/flatrun/internal/scope"
)

// Globals are the transaction-wide flags shared by every subcommand (§3).
type Globals struct {
	User             bool   `help:"Operate on the user installation scope instead of the system one."`
	NoPull           bool   `help:"Look up related refs in the local index only, and ask the store not to pull content."`
	NoDeploy         bool   `help:"Pull refs without deploying them."`
	NoDeps           bool   `help:"Do not resolve declared runtime dependencies."`
	NoRelated        bool   `help:"Do not resolve related refs (locale packs, debug info, extensions)."`
	Yes              bool   `short:"y" help:"Assume yes to any remote-selection prompt instead of asking interactively."`
	StopOnFirstError bool   `help:"Abort on the first failed operation instead of continuing through the rest of the plan."`
	DumpDOT          string `help:"Write the transaction's discovery graph as Graphviz DOT to this path before running." type:"path"`
}

// scope resolves the installation scope these Globals describe.
func (g *Globals) scope() scope.Scope {
	system := scope.NewSystem()
	if g.User {
		return scope.User(system)
	}
	return system
}
