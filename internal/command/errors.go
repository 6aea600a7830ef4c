// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"github.com/samber/oops"

	"github.com/holomush/virtualchest/internal/chest"
)

// Error codes for command dispatch failures.
const (
	CodeEmptyInput       = "EMPTY_INPUT"
	CodeUnknownCommand   = "UNKNOWN_COMMAND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeInvalidArgs      = "INVALID_ARGS"
	CodeInvalidName      = "INVALID_COMMAND_NAME"
	CodeChestRejected    = "CHEST_REJECTED"
	CodeNoPlayer         = "NO_PLAYER"
	CodeNilServices      = "NIL_SERVICES"
)

// ErrNilRegistry is returned by NewDispatcher without a registry.
var ErrNilRegistry = oops.Code("NIL_REGISTRY").Errorf("command registry is required")

// ErrNilAccess is returned by NewDispatcher without a permission checker.
var ErrNilAccess = oops.Code("NIL_ACCESS").Errorf("permission checker is required")

// ErrUnknownCommand creates an error for an unknown command.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("unknown command: %s", cmd)
}

// ErrPermissionDenied creates an error for permission denial.
func ErrPermissionDenied(cmd, permission string) error {
	return oops.Code(CodePermissionDenied).
		With("command", cmd).
		With("permission", permission).
		Errorf("permission denied for command %s", cmd)
}

// ErrInvalidArgs creates an error for invalid arguments.
func ErrInvalidArgs(cmd, usage string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("usage", usage).
		Errorf("invalid arguments")
}

// ErrChestRejected creates an error for an open or close the directory
// refused. result is one of the chest.Result* labels.
func ErrChestRejected(menuID, result string) error {
	return oops.Code(CodeChestRejected).
		With("menu_id", menuID).
		With("result", result).
		Errorf("chest %s rejected: %s", menuID, result)
}

// ErrNoPlayer is returned when a command runs without a player.
func ErrNoPlayer() error {
	return oops.Code(CodeNoPlayer).Errorf("no player associated with connection")
}

// ErrNilServices is returned when a command runs without services.
func ErrNilServices() error {
	return oops.Code(CodeNilServices).Errorf("command services are not configured")
}

const genericMessage = "Something went wrong. Try again."

// PlayerMessage extracts a player-facing message from an error.
func PlayerMessage(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if err == nil || !ok {
		return genericMessage
	}

	switch oopsErr.Code() {
	case CodeEmptyInput:
		return ""
	case CodeUnknownCommand:
		return "Unknown command. Try 'help'."
	case CodePermissionDenied:
		return "You don't have permission to do that."
	case CodeInvalidArgs:
		if usage, ok := oopsErr.Context()["usage"].(string); ok && usage != "" {
			return "Usage: " + usage
		}
		return "Invalid arguments."
	case CodeChestRejected:
		id, _ := oopsErr.Context()["menu_id"].(string)
		result, _ := oopsErr.Context()["result"].(string)
		return chestMessage(id, result)
	case CodeNoPlayer:
		return "You are not connected. Use 'connect <name>' first."
	case chest.CodeMenuNotFound:
		return "There is no such chest."
	case chest.CodeReloadFailed:
		return "Reload failed. Nothing was changed."
	default:
		return genericMessage
	}
}

func chestMessage(id, result string) string {
	switch result {
	case chest.ResultUnknownMenu:
		return "There is no chest called '" + id + "'."
	case chest.ResultOffline, chest.ResultInvalidPlayer:
		return "You must be online to use chests."
	case chest.ResultDenied:
		return "You don't have permission to open '" + id + "'."
	case chest.ResultRequirement:
		return "You can't open '" + id + "' right now."
	case chest.ResultNotOpen:
		return "You don't have '" + id + "' open."
	default:
		return genericMessage
	}
}
