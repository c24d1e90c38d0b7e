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

// Package scope models flatrun's two installation roots (user, system) and
// the rule that a user-scope install may be satisfied by either scope while
// a system-scope install may only ever be satisfied by the system scope.
package scope

// Scope identifies an installation root.
type Scope interface {
	// Name is a human-readable identifier, e.g. "user" or "system".
	Name() string
	// IsUser reports whether this scope is the per-user installation root.
	IsUser() bool
	// System returns the system scope that coexists with this one. Calling
	// System on the system scope itself returns the same scope.
	System() Scope
}

type simpleScope struct {
	name   string
	isUser bool
	system Scope
}

// User returns the user-installation scope. Its System() points back at the
// given system scope.
func User(system Scope) Scope {
	return &simpleScope{name: "user", isUser: true, system: system}
}

// NewSystem returns the system-installation scope.
func NewSystem() Scope {
	s := &simpleScope{name: "system", isUser: false}
	s.system = s
	return s
}

func (s *simpleScope) Name() string  { return s.name }
func (s *simpleScope) IsUser() bool  { return s.isUser }
func (s *simpleScope) System() Scope { return s.system }
