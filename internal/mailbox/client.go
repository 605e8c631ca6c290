package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2/imapclient"
)

// Client holds the connection settings for an IMAP mailbox.
type Client struct {
	host     string
	port     string
	username string
	password string
	folder   string
	timeout  time.Duration
}

// NewClient creates a new IMAP client configuration. folder defaults to
// INBOX and timeout bounds every socket operation on the connection.
func NewClient(
	host, port, username, password, folder string, timeout time.Duration,
) *Client {
	if folder == "" {
		folder = "INBOX"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		folder:   folder,
		timeout:  timeout,
	}
}

// Connect dials the server over TLS, authenticates, and selects the
// configured folder. The returned session owns the connection; the
// caller is responsible for calling Close on it.
func (c *Client) Connect(_ context.Context) (*Session, error) {
	addr := c.host + ":" + c.port

	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	// Bound every subsequent read/write so a hung server cannot stall a
	// scan indefinitely.
	client := imapclient.New(&deadlineConn{Conn: conn, timeout: c.timeout}, nil)

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating %s: %w", c.username, err)
	}

	if _, err := client.Select(c.folder, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", c.folder, err)
	}

	return &Session{client: client}, nil
}

// deadlineConn applies a rolling deadline to each read and write on the
// underlying connection.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
