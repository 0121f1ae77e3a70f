// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/coder/websocket"
	"github.com/pterm/pterm"
)

// CloseCategory groups websocket close codes by what the user can do about them.
type CloseCategory int

const (
	CloseNormal CloseCategory = iota
	CloseNetwork
	CloseAuth
	CloseServer
	CloseRestart
	CloseUnknown
)

// ClassifyClose maps a close code of a subscription to a category.
func ClassifyClose(code websocket.StatusCode) CloseCategory {
	switch code {
	case websocket.StatusNormalClosure:
		return CloseNormal
	case websocket.StatusAbnormalClosure, websocket.StatusNoStatusRcvd, websocket.StatusTLSHandshake:
		return CloseNetwork
	case websocket.StatusPolicyViolation:
		return CloseAuth
	case websocket.StatusInternalError, websocket.StatusUnsupportedData, websocket.StatusInvalidFramePayloadData, websocket.StatusMessageTooBig:
		return CloseServer
	case websocket.StatusGoingAway, websocket.StatusServiceRestart, websocket.StatusTryAgainLater:
		return CloseRestart
	}
	return CloseUnknown
}

// FormatStreamClose describes why a live view stopped. A normal closure yields "".
func FormatStreamClose(code websocket.StatusCode, reason string) string {
	category := ClassifyClose(code)
	if category == CloseNormal {
		return ""
	}

	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Subscription closed"))
	b.WriteString("\n\n")

	switch category {
	case CloseNetwork:
		b.WriteString("The connection to the server dropped without a close handshake.\n")
		b.WriteString("Check your network connection and the websocket url.\n")
	case CloseAuth:
		b.WriteString("The server refused the subscription.\n")
		b.WriteString("Your session may have expired; run 'hyperbase login' and try again.\n")
	case CloseServer:
		b.WriteString("The server could not process the subscription.\n")
	case CloseRestart:
		b.WriteString("The server is restarting or shutting down.\n")
	default:
		b.WriteString("The server closed the subscription.\n")
	}

	b.WriteString("\n")
	b.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Run the command again to resubscribe"))
	b.WriteString("\n")

	details := fmt.Sprintf("close code %d (%s)", int(code), code)
	if strings.TrimSpace(reason) != "" {
		details += ": " + Mask(reason)
	}
	b.WriteString("\n")
	b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + details))
	return b.String()
}

// PresentStreamClose prints FormatStreamClose unless the closure was normal.
func PresentStreamClose(code websocket.StatusCode, reason string) {
	msg := FormatStreamClose(code, reason)
	if msg == "" {
		return
	}
	pterm.Println()
	pterm.Println(msg)
	pterm.Println()
}
