package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
)

func TestClassify(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	already := apperror.New(apperror.KindAuth, "inner", errors.New("x"))

	cases := []struct {
		name  string
		err   error
		phase phase
		want  apperror.Kind
	}{
		{"deadline", context.DeadlineExceeded, phaseCommand, apperror.KindTimeout},
		{"socket timeout", fmt.Errorf("read: %w", errTimedOut), phaseAuth, apperror.KindTimeout},
		{"eof during auth", io.EOF, phaseAuth, apperror.KindConnection},
		{"dial error", opErr, phaseDial, apperror.KindConnection},
		{"unknown at dial", errors.New("tls: handshake failure"), phaseDial, apperror.KindConnection},
		{"rejected login", errors.New("NO bad password"), phaseAuth, apperror.KindAuth},
		{"unexpected reply", errors.New("BAD command"), phaseCommand, apperror.KindProtocol},
		{"already classified", already, phaseCommand, apperror.KindAuth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, apperror.KindOf(classify("op", tc.err, tc.phase)))
		})
	}
	require.NoError(t, classify("op", nil, phaseCommand))
}
