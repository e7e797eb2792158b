package models

import (
	"fmt"
	"strings"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
)

// Protocol is the retrieval protocol spoken by a mailbox host.
type Protocol string

const (
	ProtocolIMAP Protocol = "imap"
	ProtocolPOP3 Protocol = "pop3"
)

// ParseProtocol accepts imap/pop3 in any case, with or without a trailing "s".
func ParseProtocol(value string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "imap", "imaps":
		return ProtocolIMAP, nil
	case "pop3", "pop3s":
		return ProtocolPOP3, nil
	default:
		return "", apperror.Validation("parse protocol", fmt.Sprintf("unsupported protocol %q (want imap or pop3)", value))
	}
}

// Valid reports whether p is one of the supported protocols.
func (p Protocol) Valid() bool {
	return p == ProtocolIMAP || p == ProtocolPOP3
}

// Account is the credential and connection record of a polled mailbox.
type Account struct {
	Address  string   `json:"address" db:"address"`
	Secret   string   `json:"-" db:"secret"`
	Protocol Protocol `json:"protocol" db:"protocol"`
	Host     string   `json:"host" db:"host"`
	Port     int      `json:"port" db:"port"`
}

// AccountSummary is the listing view of an account; it never carries the secret.
type AccountSummary struct {
	Address string `json:"address" db:"address"`
	Host    string `json:"host" db:"host"`
	Port    int    `json:"port" db:"port"`
}

// NormalizeAddress trims and lower-cases a mailbox address for use as a key.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Validate checks the write-time invariants of an account.
func (a Account) Validate() error {
	const op = "validate account"
	addr := NormalizeAddress(a.Address)
	if addr == "" {
		return apperror.Validation(op, "address is required")
	}
	if at := strings.LastIndex(addr, "@"); at <= 0 || at == len(addr)-1 || strings.ContainsAny(addr, " \t") {
		return apperror.Validation(op, fmt.Sprintf("address %q is not a mailbox address", a.Address))
	}
	if a.Secret == "" {
		return apperror.Validation(op, "secret is required")
	}
	if !a.Protocol.Valid() {
		return apperror.Validation(op, fmt.Sprintf("unsupported protocol %q (want imap or pop3)", a.Protocol))
	}
	if strings.TrimSpace(a.Host) == "" {
		return apperror.Validation(op, "host is required")
	}
	if a.Port <= 0 || a.Port > 65535 {
		return apperror.Validation(op, fmt.Sprintf("port %d out of range", a.Port))
	}
	return nil
}

// Summary returns the listing view of the account.
func (a Account) Summary() AccountSummary {
	return AccountSummary{Address: a.Address, Host: a.Host, Port: a.Port}
}
