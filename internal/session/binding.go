// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// Binding records whether the message list belongs to a stored
// conversation. The zero value is unbound.
type Binding struct {
	id string
}

// Unbound returns a binding to no conversation.
func Unbound() Binding {
	return Binding{}
}

// Bound returns a binding to conversation id.
func Bound(id string) Binding {
	return Binding{id: id}
}

// IsBound reports whether a conversation is bound.
func (b Binding) IsBound() bool {
	return b.id != ""
}

// ID returns the bound conversation id, or "" when unbound.
func (b Binding) ID() string {
	return b.id
}

// String implements fmt.Stringer.
func (b Binding) String() string {
	if !b.IsBound() {
		return "unbound"
	}
	return "bound(" + b.id + ")"
}
