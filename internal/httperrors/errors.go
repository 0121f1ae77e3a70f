// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns client errors into user-facing notifications.
//
// Service errors show the server's status and message. Validation errors name
// the offending field. Transport errors get a troubleshooting hint picked from
// the underlying network failure. Cancellations are never shown.
package httperrors

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	herrors "hyperbase/cli/internal/errors"
	"hyperbase/cli/internal/logging"
)

// UnexpectedMessage is shown for failures outside the error taxonomy.
const UnexpectedMessage = "An unexpected error occurred. Check the server url."

// Category is the troubleshooting bucket of a transport failure.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryTimeout
	CategoryDNS
	CategoryRefused
	CategoryTLS
	CategoryServer
)

// Notify shows err to the user. context describes what was being done, e.g.
// "listing projects". It reports whether anything was shown.
func Notify(err error, context string) bool {
	if err == nil {
		return false
	}
	switch herrors.KindOf(err) {
	case herrors.KindAborted:
		return false
	case herrors.KindService:
		var se *herrors.ServiceError
		if errors.As(err, &se) {
			pterm.Error.Printfln("%s: %s", se.Status, se.Message)
			return true
		}
	case herrors.KindValidation:
		pterm.Warning.Printfln("%s: %s", context, validationMessage(err))
		return true
	case herrors.KindTransport:
		showTransport(err, context)
		return true
	}
	pterm.Error.Println(UnexpectedMessage)
	pterm.Debug.Println(logging.PresentError(context, err))
	return true
}

// validationMessage prefers the field-level text, then the bare message of an E.
func validationMessage(err error) string {
	var ve *herrors.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var e *herrors.E
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Classify picks the troubleshooting category of a transport failure.
func Classify(err error) Category {
	switch {
	case isTimeoutError(err):
		return CategoryTimeout
	case isDNSError(err):
		return CategoryDNS
	case isConnectionRefusedError(err):
		return CategoryRefused
	case isSSLError(err):
		return CategoryTLS
	case isServerError(err.Error()):
		return CategoryServer
	}
	return CategoryGeneric
}

func showTransport(err error, context string) {
	host := "the server"
	var te *herrors.TransportError
	if errors.As(err, &te) && te.URL != "" {
		host = ExtractHostFromURL(te.URL)
	}

	switch Classify(err) {
	case CategoryTimeout:
		pterm.Error.Printfln("Connection timeout while %s", context)
		pterm.Println("The server took too long to respond. This could mean:")
		pterm.Println("  • Slow or unstable network connection")
		pterm.Println("  • The server is under heavy load")
	case CategoryDNS:
		pterm.Error.Printfln("Cannot resolve %s while %s", host, context)
		pterm.Println("Check that the host name in the server url is spelled correctly.")
	case CategoryRefused:
		pterm.Error.Printfln("Connection refused by %s while %s", host, context)
		pterm.Println("Nothing is listening at the server url. This could mean:")
		pterm.Println("  • The Hyperbase server is not running")
		pterm.Println("  • The port in the server url is wrong")
	case CategoryTLS:
		pterm.Error.Printfln("Secure connection to %s failed while %s", host, context)
		pterm.Println("The TLS handshake did not complete. Check the certificate and your system clock.")
	case CategoryServer:
		pterm.Error.Printfln("Server error while %s", context)
		pterm.Println("The server returned a response the client could not read.")
	default:
		pterm.Error.Printfln("Cannot reach %s while %s", host, context)
	}
	pterm.Println()
	pterm.Println("Check the server url (hyperbase --base-url, or base_url in config.json).")
	pterm.Debug.Println("Technical details: " + logging.Mask(err.Error()))
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate")
}

func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	return strings.Contains(lower, "unexpected response (status 5")
}

// ExtractHostFromURL extracts the host from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "the server"
	}
	return u.Host
}
