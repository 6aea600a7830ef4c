// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package chest

import (
	"github.com/samber/oops"
)

// Error codes for menu registration and lookup.
const (
	CodeInvalidMenu   = "INVALID_MENU"
	CodeDuplicateMenu = "DUPLICATE_MENU"
	CodeMenuNotFound  = "MENU_NOT_FOUND"
	CodeLoadClosed    = "LOAD_EVENT_CLOSED"
	CodeReloadFailed  = "RELOAD_FAILED"
)

// ErrMenuNotFound creates an error for an identifier that is not registered.
func ErrMenuNotFound(id string) error {
	return oops.Code(CodeMenuNotFound).
		With("menu_id", id).
		Errorf("chest GUI %q is not registered", id)
}

func errInvalidMenu(id, format string, args ...any) error {
	return oops.Code(CodeInvalidMenu).
		With("menu_id", id).
		Errorf(format, args...)
}

func errDuplicateMenu(id, source, existing string) error {
	return oops.Code(CodeDuplicateMenu).
		With("menu_id", id).
		With("source", source).
		With("registered_by", existing).
		Errorf("chest GUI %q is already registered by %s", id, existing)
}
