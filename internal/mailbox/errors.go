package mailbox

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
)

type phase int

const (
	phaseDial phase = iota
	phaseAuth
	phaseCommand
)

// classify maps a raw protocol or network failure onto an apperror kind.
// Errors already carrying a kind pass through.
func classify(op string, err error, p phase) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case isTimeout(err):
		return apperror.New(apperror.KindTimeout, op, err)
	case isConnectionFailure(err):
		return apperror.New(apperror.KindConnection, op, err)
	case p == phaseDial:
		return apperror.New(apperror.KindConnection, op, err)
	case p == phaseAuth:
		return apperror.New(apperror.KindAuth, op, err)
	default:
		return apperror.New(apperror.KindProtocol, op, err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionFailure(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	var (
		opErr      *net.OpError
		dnsErr     *net.DNSError
		recordErr  tls.RecordHeaderError
		alertErr   tls.AlertError
		verifyErr  *tls.CertificateVerificationError
		hostErr    x509.HostnameError
		unknownCA  x509.UnknownAuthorityError
		invalidErr x509.CertificateInvalidError
	)
	return errors.As(err, &opErr) ||
		errors.As(err, &dnsErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &unknownCA) ||
		errors.As(err, &invalidErr)
}
