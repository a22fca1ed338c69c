package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/liftplan/internal/logging"
)

// Server is a running application instance for end-to-end tests.
type Server struct {
	url        string
	client     *Client
	cancel     context.CancelCauseFunc
	serverDone chan struct{}
}

// LogAddrKey is the key used to log the address the server is listening on.
const LogAddrKey = "addr"

// webAuthnOrigin is the relying party origin the test server is configured with through its localhost:0 address.
const webAuthnOrigin = "http://localhost:0"

// StartServer starts the test server and waits for it to be ready. The server is shut down when the test ends.
//
// logSink is the writer to which the server logs are written. You usually want to use testhelpers.NewWriter.
// lookupEnv has the same signature as [os.LookupEnv] and configures the server.
// run starts the server. It must log the address it's listening on with LogAddrKey.
func StartServer(
	t *testing.T,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	run func(context.Context, *slog.Logger, func(string) (string, bool)) error,
) (*Server, error) {
	var server *Server
	t.Cleanup(func() {
		if server != nil {
			server.Shutdown()
		}
	})
	ctx, cancel := context.WithCancelCause(t.Context())
	serverDone := make(chan struct{})

	// The port is allocated dynamically so it has to be read from the log output.
	addrCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				select {
				case addrCh <- a.Value.String():
				default:
				}
			}
			return a
		},
	})))

	go func() {
		defer close(serverDone)
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()

	var addr string
	select {
	case <-ctx.Done():
		<-serverDone
		return nil, fmt.Errorf("server did not start: %w", context.Cause(ctx))
	case addr = <-addrCh:
	}

	server = &Server{
		url:        "http://" + addr,
		client:     nil,
		cancel:     cancel,
		serverDone: serverDone,
	}
	client, err := server.NewClient()
	if err != nil {
		return nil, err
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	server.client = client
	return server, nil
}

// Client returns the default client of the server. It starts out anonymous.
func (s *Server) Client() *Client {
	return s.client
}

// NewClient returns a new anonymous client with its own cookie jar and authenticator.
func (s *Server) NewClient() (*Client, error) {
	client, err := NewClient(s.url, "localhost", webAuthnOrigin)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	return client, nil
}

// NewUser returns a client for a freshly registered user.
func (s *Server) NewUser(ctx context.Context) (*Client, error) {
	client, err := s.NewClient()
	if err != nil {
		return nil, err
	}
	if _, err = client.Register(ctx); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return client, nil
}

func (s *Server) URL() string {
	return s.url
}

// Shutdown stops the server and waits for it to exit.
func (s *Server) Shutdown() {
	s.cancel(nil)
	<-s.serverDone
}
