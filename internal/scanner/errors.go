package scanner

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// classifyError maps a transport error onto the closed ErrorKind set.
// Timeouts win over everything else, then TLS, then connection failures.
func classifyError(err error) ErrorKind {
	if err == nil {
		return ErrorOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}

	if isTLSError(err) {
		return ErrorTLSFailed
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorConnectionFailed
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return ErrorConnectionFailed
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ErrorConnectionFailed
	}

	// Handshake failures from the server side surface as plain strings.
	if strings.Contains(err.Error(), "tls:") {
		return ErrorTLSFailed
	}
	return ErrorOther
}

func isTLSError(err error) bool {
	var certErr *tls.CertificateVerificationError
	var headerErr tls.RecordHeaderError
	var alertErr tls.AlertError
	var authErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	return errors.Is(err, http.ErrSchemeMismatch) ||
		errors.As(err, &certErr) ||
		errors.As(err, &headerErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}
