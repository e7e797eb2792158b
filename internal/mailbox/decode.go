package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"golang.org/x/net/html/charset"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/utils"
)

const maxPartBytes = 256 << 10

func init() {
	gomessage.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return charset.NewReaderLabel(label, input)
	}
}

var errNoTextPart = errors.New("message has no text part")

// decodeMessage flattens an RFC 5322 payload. The first text/plain part wins;
// otherwise the first text/html part is used with its markup stripped.
func decodeMessage(raw []byte) (Message, error) {
	if len(raw) == 0 {
		return Message{}, errors.New("empty message")
	}
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return Message{}, fmt.Errorf("parse message: %w", err)
	}
	if mr == nil {
		return Message{}, fmt.Errorf("parse message: %w", err)
	}
	defer mr.Close()

	msg := Message{}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = mr.Header.Get("Subject")
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.ReceivedAt = date.UTC()
	}

	var plain, html string
	var havePlain, haveHTML bool
	for !havePlain {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && (part == nil || !gomessage.IsUnknownCharset(err)) {
			if haveHTML {
				break
			}
			return Message{}, fmt.Errorf("read part: %w", err)
		}
		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, err := inline.ContentType()
		if err != nil {
			mediaType, _, _ = mime.ParseMediaType(inline.Get("Content-Type"))
		}
		if mediaType == "" {
			mediaType = "text/plain"
		}
		switch {
		case mediaType == "text/plain" && !havePlain:
			body, err := io.ReadAll(io.LimitReader(part.Body, maxPartBytes))
			if err != nil && !gomessage.IsUnknownCharset(err) {
				return Message{}, fmt.Errorf("read text part: %w", err)
			}
			plain, havePlain = string(body), true
		case mediaType == "text/html" && !haveHTML:
			body, err := io.ReadAll(io.LimitReader(part.Body, maxPartBytes))
			if err != nil && !gomessage.IsUnknownCharset(err) {
				return Message{}, fmt.Errorf("read html part: %w", err)
			}
			html, haveHTML = string(body), true
		}
	}

	switch {
	case havePlain:
		// Some senders label HTML as text/plain.
		if utils.IsHTML(plain) {
			plain = utils.StripHTML(plain)
		}
		msg.Body = strings.TrimSpace(plain)
	case haveHTML:
		msg.Body = strings.TrimSpace(utils.StripHTML(html))
	default:
		return Message{}, errNoTextPart
	}
	return msg, nil
}

func receivedAt(msg Message, fallback time.Time) time.Time {
	if !msg.ReceivedAt.IsZero() {
		return msg.ReceivedAt
	}
	return fallback
}
