// Package mailbox polls a remote IMAP mailbox for vendor replies.
// A poll cycle connects, searches for subjects carrying the reference
// token marker, fetches and decodes the bodies, and returns normalized
// inbound messages. Messages are marked seen but never deleted;
// idempotency across polls is the correlation guard's job, not ours.
package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"github.com/mdidris/rfpd/internal/model"
	"github.com/mdidris/rfpd/internal/token"
)

// ErrUnavailable wraps every connectivity-level failure: dial, auth,
// select, search, fetch. A poll cycle either returns a full batch or
// this error - it never partially succeeds silently.
var ErrUnavailable = errors.New("inbox unavailable")

// Config holds the static mailbox connection settings.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Folder      string
	Timeout     time.Duration
	InsecureTLS bool
}

// ConfigFromModel converts model.MailboxConfig to mailbox.Config.
func ConfigFromModel(mc model.MailboxConfig) Config {
	return Config{
		Host:        mc.Host,
		Port:        mc.Port,
		Username:    mc.Username,
		Password:    mc.Password,
		Folder:      mc.Folder,
		Timeout:     time.Duration(mc.Timeout) * time.Second,
		InsecureTLS: mc.InsecureTLS,
	}
}

// Client polls one configured mailbox. The connection is scoped to a
// single Poll call: acquired at cycle start, released at cycle end
// regardless of outcome. A mutex keeps concurrent callers from sharing
// one cycle's connection.
type Client struct {
	cfg Config
	mu  sync.Mutex
}

// New creates a mailbox client. No connection is made until Poll.
func New(cfg Config) *Client {
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	return &Client{cfg: cfg}
}

// Poll retrieves all messages whose subject contains the reference
// token marker and returns them as normalized inbound messages.
// Messages with no extractable text part, or whose subject does not
// decode to a request identifier, are skipped silently. Messages are
// marked seen on the server but retained.
func (c *Client) Poll(ctx context.Context) ([]model.InboundMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	tlsConfig := &tls.Config{
		ServerName:         c.cfg.Host,
		InsecureSkipVerify: c.cfg.InsecureTLS,
	}

	conn, err := imapclient.DialTLS(addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnavailable, addr, err)
	}
	defer func() { _ = conn.Logout() }()

	if c.cfg.Timeout > 0 {
		conn.Timeout = c.cfg.Timeout
	}

	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		return nil, fmt.Errorf("%w: login: %v", ErrUnavailable, err)
	}
	if _, err := conn.Select(c.cfg.Folder, false); err != nil {
		return nil, fmt.Errorf("%w: select %s: %v", ErrUnavailable, c.cfg.Folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Subject", token.Marker)

	uids, err := conn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrUnavailable, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	// Fetching the full body section without Peek marks the messages
	// seen, matching the retain-but-mark contract.
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	fetchDone := make(chan error, 1)
	go func() {
		fetchDone <- conn.UidFetch(seqset, items, messages)
	}()

	var out []model.InboundMessage
	for msg := range messages {
		if ctx.Err() != nil {
			break
		}
		inbound, ok := c.normalize(msg, section)
		if !ok {
			continue // malformed or uncorrelated message, skip-and-continue
		}
		out = append(out, inbound)
	}

	if err := <-fetchDone; err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", ErrUnavailable, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalize converts one fetched message into an InboundMessage.
// Returns false when the message has no sender, no decodable token in
// its subject, or no extractable text part.
func (c *Client) normalize(msg *imap.Message, section *imap.BodySectionName) (model.InboundMessage, bool) {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return model.InboundMessage{}, false
	}

	subject := msg.Envelope.Subject
	if _, ok := token.Decode(subject); !ok {
		return model.InboundMessage{}, false
	}

	body := msg.GetBody(section)
	if body == nil {
		return model.InboundMessage{}, false
	}
	text, err := extractBody(body)
	if err != nil || text == "" {
		return model.InboundMessage{}, false
	}

	return model.InboundMessage{
		UID:     msg.Uid,
		From:    msg.Envelope.From[0].Address(),
		Subject: subject,
		Text:    text,
	}, true
}
