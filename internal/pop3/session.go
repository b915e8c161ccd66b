// Package pop3 implements the maildrop side of the POP3 protocol on a
// pre-connected byte stream. Each session is a single-threaded command loop
// over one journal snapshot; nothing it does outlives the process.
package pop3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/infodancer/maildrop/internal/creds"
	"github.com/infodancer/maildrop/internal/journal"
	"github.com/infodancer/maildrop/internal/metrics"
)

// State identifies the position in the POP3 state machine.
type State int

const (
	// StateStart is the initial state; only USER advances from here.
	StateStart State = iota

	// StateUser means a username has been accepted and PASS is expected.
	StateUser

	// StateLogin is the transaction phase entered after authentication.
	StateLogin

	// StateQuit is terminal.
	StateQuit
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateUser:
		return "USER"
	case StateLogin:
		return "LOGIN"
	case StateQuit:
		return "QUIT"
	default:
		return "UNKNOWN"
	}
}

// SnapshotLoader captures the maildrop visible to an authenticated user.
// journal.Loader is the production implementation.
type SnapshotLoader interface {
	Load(user string) (*journal.Snapshot, error)
}

// Config assembles a session's collaborators.
type Config struct {
	// MailDir is the directory holding the message files named by
	// journal records.
	MailDir string

	// Loader supplies the login-time maildrop snapshot.
	Loader SnapshotLoader

	// Checker validates USER/PASS credentials. Defaults to accepting
	// everything.
	Checker creds.Checker

	// Implementation is the tag advertised in the CAPA response.
	Implementation string

	Logger    *slog.Logger
	Collector metrics.Collector
}

// Session is one POP3 conversation. It owns the protocol reader and writer
// and the snapshot loaded at login.
type Session struct {
	state    State
	username string
	drop     *journal.Snapshot

	mailDir string
	loader  SnapshotLoader
	check   creds.Checker
	impl    string

	reader    *LineReader
	out       *responseWriter
	logger    *slog.Logger
	collector metrics.Collector
}

// New creates a session speaking on in and out.
func New(cfg Config, in io.Reader, out io.Writer) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := cfg.Collector
	if collector == nil {
		collector = &metrics.NoopCollector{}
	}
	check := cfg.Checker
	if check == nil {
		check = creds.AllowAny{}
	}
	impl := cfg.Implementation
	if impl == "" {
		impl = "maildrop"
	}

	return &Session{
		state:     StateStart,
		mailDir:   cfg.MailDir,
		loader:    cfg.Loader,
		check:     check,
		impl:      impl,
		reader:    NewLineReader(in, logger),
		out:       newResponseWriter(out),
		logger:    logger,
		collector: collector,
	}
}

// State returns the current protocol state.
func (s *Session) State() State {
	return s.state
}

// Run services the session until QUIT or client EOF. A nil return is a
// clean shutdown. ErrWriteFailed means the client stream broke mid-response
// (exit code 2 at the CLI); any other error is a fatal protocol or I/O
// failure (exit code 1).
func (s *Session) Run(ctx context.Context) error {
	s.collector.SessionOpened()
	defer s.collector.SessionClosed()

	if err := s.reply("+OK POP3 server ready"); err != nil {
		return err
	}

	for s.state != StateQuit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cmd, err := s.reader.ReadCommand()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("client closed connection", "state", s.state.String())
				return nil
			}
			return err
		}
		s.collector.CommandProcessed(strings.ToUpper(strings.TrimSpace(cmd)))

		switch cmd {
		case tokenQuit:
			err = s.handleQuit()
		case tokenCapa:
			err = s.handleCapa()
		case tokenNoop:
			err = s.handleNoop()
		case tokenUser:
			err = s.handleUser()
		case tokenPass:
			err = s.handlePass()
		case tokenRset:
			err = s.handleRset()
		case tokenStat:
			err = s.handleStat()
		case tokenList:
			err = s.handleList()
		case tokenUidl:
			err = s.handleUidl()
		case tokenDele:
			err = s.handleDele()
		case tokenRetr:
			err = s.handleRetr()
		case tokenTop:
			err = s.handleTop()
		default:
			if err = s.reader.DiscardLine(); err == nil {
				err = s.reply("-ERR command not recognized")
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// reply sends a single response line and flushes it.
func (s *Session) reply(line string) error {
	if err := s.out.line(line); err != nil {
		return err
	}
	return s.out.flush()
}

func (s *Session) handleQuit() error {
	if err := s.reader.DiscardLine(); err != nil {
		return err
	}
	s.state = StateQuit
	// Deletion marks only ever live in the session snapshot; there is no
	// durable delete to perform, so pending marks are reported as a
	// failure rather than silently dropped.
	if s.drop != nil && s.drop.HasInactive() {
		return s.reply("-ERR unable to delete some messages")
	}
	return s.reply("+OK bye")
}

func (s *Session) handleCapa() error {
	if err := s.reader.DiscardLine(); err != nil {
		return err
	}
	lines := []string{
		"+OK capabilities list follows",
		"USER",
		"UIDL",
		"TOP",
		"EXPIRE NEVER",
		"IMPLEMENTATION " + s.impl,
		".",
	}
	for _, l := range lines {
		if err := s.out.line(l); err != nil {
			return err
		}
	}
	return s.out.flush()
}

func (s *Session) handleNoop() error {
	if err := s.reader.DiscardLine(); err != nil {
		return err
	}
	return s.reply("+OK did nothing")
}

func (s *Session) handleUser() error {
	arg, ok, err := s.reader.ReadArg()
	if err != nil {
		return err
	}
	if !ok {
		return s.reply("-ERR Parameters too long")
	}
	if s.state != StateStart {
		return s.reply("-ERR command out of sequence")
	}
	lead := leadingSpace(arg)
	if lead == 0 {
		return s.reply("-ERR unrecognized command")
	}
	if lead == len(arg) {
		return s.reply("-ERR parameter required for user command")
	}
	name, cerr := CanonicalUsername(arg[lead:])
	if cerr != nil {
		s.logger.Info("rejected username", "error", cerr.Error())
		return s.reply("-ERR invalid username")
	}
	s.username = name
	s.state = StateUser
	return s.reply("+OK got username")
}

func (s *Session) handlePass() error {
	arg, ok, err := s.reader.ReadArg()
	if err != nil {
		return err
	}
	if !ok {
		return s.reply("-ERR Parameters too long")
	}
	if s.state != StateUser {
		return s.reply("-ERR command out of sequence")
	}
	if len(arg) == 0 || arg[0] != ' ' {
		return s.reply("-ERR unrecognized command")
	}
	password := arg[1:]

	authOK := s.check.Check(s.username, password)
	s.collector.AuthAttempt(authOK)
	if !authOK {
		s.logger.Info("authentication failed", "user", s.username)
		return s.reply("-ERR unauthorized")
	}

	drop, err := s.loader.Load(s.username)
	if err != nil {
		return fmt.Errorf("loading maildrop for %s: %w", s.username, err)
	}
	s.drop = drop
	s.state = StateLogin
	s.logger.Info("session authenticated", "user", s.username, "messages", drop.Len())
	return s.reply("+OK got password")
}

func (s *Session) handleRset() error {
	if err := s.reader.DiscardLine(); err != nil {
		return err
	}
	if s.state != StateLogin {
		return s.reply("-ERR unauthenticated")
	}
	s.drop.ResetActive()
	return s.reply("+OK reset complete")
}

func (s *Session) handleStat() error {
	if err := s.reader.DiscardLine(); err != nil {
		return err
	}
	if s.state != StateLogin {
		return s.reply("-ERR unauthenticated")
	}
	active, size := s.drop.Stat()
	return s.reply(fmt.Sprintf("+OK %d %d", active, size))
}

func (s *Session) handleList() error {
	arg, ok, err := s.reader.ReadArg()
	if err != nil {
		return err
	}
	if !ok {
		return s.reply("-ERR Parameters too long")
	}
	if s.state != StateLogin {
		return s.reply("-ERR unauthenticated")
	}

	if arg == "" {
		if err := s.out.line("+OK maildrop follows"); err != nil {
			return err
		}
		for i := 0; i < s.drop.Len(); i++ {
			rec := s.drop.Record(i)
			if !rec.Active {
				continue
			}
			if err := s.out.line(fmt.Sprintf("%d %d", i+1, rec.Size)); err != nil {
				return err
			}
		}
		if err := s.out.line("."); err != nil {
			return err
		}
		return s.out.flush()
	}

	idx, rec, errMsg := s.resolveIndex(arg, "list")
	if errMsg != "" {
		return s.reply(errMsg)
	}
	return s.reply(fmt.Sprintf("+OK %d %d", idx, rec.Size))
}

func (s *Session) handleUidl() error {
	arg, ok, err := s.reader.ReadArg()
	if err != nil {
		return err
	}
	if !ok {
		return s.reply("-ERR Parameters too long")
	}
	if s.state != StateLogin {
		return s.reply("-ERR unauthenticated")
	}

	if arg == "" {
		if err := s.out.line("+OK ids follow"); err != nil {
			return err
		}
		for i := 0; i < s.drop.Len(); i++ {
			rec := s.drop.Record(i)
			if !rec.Active {
				continue
			}
			if err := s.out.line(fmt.Sprintf("%d %s", i+1, rec.Name())); err != nil {
				return err
			}
		}
		if err := s.out.line("."); err != nil {
			return err
		}
		return s.out.flush()
	}

	idx, rec, errMsg := s.resolveIndex(arg, "uidl")
	if errMsg != "" {
		return s.reply(errMsg)
	}
	return s.reply(fmt.Sprintf("+OK %d %s", idx, rec.Name()))
}

func (s *Session) handleDele() error {
	arg, ok, err := s.reader.ReadArg()
	if err != nil {
		return err
	}
	if !ok {
		return s.reply("-ERR Parameters too long")
	}
	if s.state != StateLogin {
		return s.reply("-ERR unauthenticated")
	}
	if arg == "" {
		return s.reply("-ERR arg required for dele command")
	}

	_, rec, errMsg := s.resolveIndex(arg, "dele")
	if errMsg != "" {
		return s.reply(errMsg)
	}
	rec.Active = false
	s.collector.MessageDeleted()
	return s.reply("+OK marked for deletion")
}

func (s *Session) handleRetr() error {
	arg, ok, err := s.reader.ReadArg()
	if err != nil {
		return err
	}
	if !ok {
		return s.reply("-ERR Parameters too long")
	}
	if s.state != StateLogin {
		return s.reply("-ERR unauthenticated")
	}
	if arg == "" {
		return s.reply("-ERR arg required for retr command")
	}

	_, rec, errMsg := s.resolveIndex(arg, "retr")
	if errMsg != "" {
		return s.reply(errMsg)
	}
	f, err := s.openMessage(rec.Name())
	if err != nil {
		return s.reply("-ERR internal server error")
	}
	defer f.Close()

	if err := s.out.line("+OK message follows"); err != nil {
		return err
	}
	// The body is streamed raw with no terminating dot-line; see the
	// maildrop design notes on dot-stuffing.
	if err := s.out.streamFile(f, rec.Size); err != nil {
		return err
	}
	s.collector.MessageRetrieved(rec.Size)
	return nil
}

func (s *Session) handleTop() error {
	arg, ok, err := s.reader.ReadArg()
	if err != nil {
		return err
	}
	if !ok {
		return s.reply("-ERR Parameters too long")
	}
	if s.state != StateLogin {
		return s.reply("-ERR unauthenticated")
	}
	if arg == "" {
		return s.reply("-ERR arg required for top command")
	}

	idx, argErr := parseTopArgs(arg)
	switch argErr {
	case topArgMissing:
		return s.reply("-ERR missing args to top command")
	case topArgNonzero:
		return s.reply("-ERR top arg 2 of nonzero value unsupported")
	}
	if idx == 0 || idx > uint64(s.drop.Len()) {
		return s.reply("-ERR index out of bounds for top command")
	}
	rec := s.drop.Record(int(idx - 1))
	if !rec.Active {
		return s.reply("-ERR invalid index refers to deleted message")
	}

	f, err := s.openMessage(rec.Name())
	if err != nil {
		return s.reply("-ERR internal server error")
	}
	defer f.Close()

	if err := s.out.line("+OK message follows"); err != nil {
		return err
	}
	if err := s.out.streamFile(f, rec.TopLimit); err != nil {
		return err
	}
	return s.reply(".")
}

// resolveIndex maps a 1-based index argument onto a snapshot record.
// errMsg is the response to send when resolution fails.
func (s *Session) resolveIndex(arg, cmd string) (idx uint64, rec *journal.Record, errMsg string) {
	idx, ok := parseIndex(arg)
	if !ok {
		return 0, nil, fmt.Sprintf("-ERR invalid index to %s command", cmd)
	}
	if idx == 0 || idx > uint64(s.drop.Len()) {
		return 0, nil, fmt.Sprintf("-ERR index out of bounds for %s command", cmd)
	}
	rec = s.drop.Record(int(idx - 1))
	if !rec.Active {
		return 0, nil, "-ERR invalid index refers to deleted message"
	}
	return idx, rec, ""
}

// openMessage opens a message file from the mail directory. A missing file
// is possible when housekeeping removed it after ingest; the caller reports
// it as an internal error and the session continues.
func (s *Session) openMessage(name string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.mailDir, name))
	if err != nil {
		s.logger.Error("unable to open message file", "name", name, "error", err.Error())
		return nil, err
	}
	return f, nil
}
