// Package contact forwards contact form submissions to a hosted form relay.
package contact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

// Message is one contact form submission.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

const (
	maxNameLen    = 200
	maxMessageLen = 5000
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid contact message")

// Validate checks required fields and the email address shape.
func (m *Message) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Message = strings.TrimSpace(m.Message)

	var errs []error
	if m.Name == "" {
		errs = append(errs, errors.New("name is required"))
	} else if len(m.Name) > maxNameLen {
		errs = append(errs, fmt.Errorf("name is longer than %d bytes", maxNameLen))
	}
	if m.Email == "" {
		errs = append(errs, errors.New("email is required"))
	} else if a, err := mail.ParseAddress(m.Email); err != nil || a.Address != m.Email {
		errs = append(errs, fmt.Errorf("email %q is not a valid address", m.Email))
	}
	if m.Message == "" {
		errs = append(errs, errors.New("message is required"))
	} else if len(m.Message) > maxMessageLen {
		errs = append(errs, fmt.Errorf("message is longer than %d bytes", maxMessageLen))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Relay posts messages to a form endpoint such as Formspree.
type Relay struct {
	endpoint string
	client   *http.Client
}

// NewRelay returns a Relay for endpoint. An empty endpoint disables it.
func NewRelay(endpoint string, client *http.Client) (*Relay, error) {
	if endpoint == "" {
		return &Relay{}, nil
	}
	u, err := url.ParseRequestURI(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, xerrors.Newf("invalid contact relay url %q", endpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Relay{endpoint: endpoint, client: client}, nil
}

// Enabled reports whether a relay endpoint is configured.
func (r *Relay) Enabled() bool { return r != nil && r.endpoint != "" }

// ErrDisabled is returned by Send when no endpoint is configured.
var ErrDisabled = errors.New("contact relay not configured")

// Send validates m and forwards it. Any non-2xx answer is a failure.
func (r *Relay) Send(ctx context.Context, m Message) error {
	if !r.Enabled() {
		return ErrDisabled
	}
	if err := m.Validate(); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("name", m.Name)
	form.Set("email", m.Email)
	form.Set("message", m.Message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return xerrors.Wrap(err, "build contact request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return xerrors.Wrap(err, "send contact message")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return xerrors.Newf("contact relay answered %s", resp.Status)
	}
	return nil
}
