// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"

	herrors "hyperbase/cli/internal/errors"
)

// PresentError is the debug line shown next to a notification: the command
// context, the error kind when known, and the masked error chain. Tokens and
// DSN passwords never reach the terminal.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	if kind := herrors.KindOf(err); kind != herrors.KindUnknown {
		return fmt.Sprintf("%s [%s]: %s", context, kind, Mask(err.Error()))
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}
