// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"strings"

	"github.com/samber/oops"
)

// ParsedCommand represents a parsed command input.
type ParsedCommand struct {
	Name string // command name (first whitespace-delimited token)
	Args string // unparsed argument string (preserves internal whitespace)
	Raw  string // original input
}

// Parse splits raw input into command name and arguments.
// Arguments preserve internal whitespace.
func Parse(input string) (*ParsedCommand, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, oops.Code(CodeEmptyInput).Errorf("no command provided")
	}

	name, args, found := strings.Cut(trimmed, " ")
	if tab := strings.IndexByte(name, '\t'); tab >= 0 {
		name, args, found = trimmed[:tab], trimmed[tab+1:], true
	}
	if !found {
		return &ParsedCommand{Name: trimmed, Raw: input}, nil
	}

	return &ParsedCommand{
		Name: name,
		Args: strings.TrimLeft(args, " \t"),
		Raw:  input,
	}, nil
}

// FirstArg returns the first whitespace-delimited word of args, or "".
func FirstArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
