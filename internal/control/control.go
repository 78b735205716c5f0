package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"catcher/internal/api"
	"catcher/internal/config"
	"catcher/internal/ui"

	"github.com/sirupsen/logrus"
)

// Control socket ops.
const (
	OpStatus    = "status"
	OpHealth    = "health"
	OpYesterday = "yesterday"
	OpToday     = "today"
	OpOpen      = "open"
	OpClose     = "close"
	OpInput     = "input"
	OpExample   = "example"
	OpCommand   = "command"
	OpVoice     = "voice"
	OpDismiss   = "dismiss"
	OpRefresh   = "refresh"
)

// Request is one newline-delimited JSON request on the control socket.
// Text carries the input for "input" and "command"; Index picks an example.
type Request struct {
	Op    string `json:"op"`
	Text  string `json:"text,omitempty"`
	Index int    `json:"index,omitempty"`
}

// Snapshot is the wire form of the controller state.
type Snapshot struct {
	Loading   bool           `json:"loading"`
	ModalOpen bool           `json:"modal_open"`
	Input     string         `json:"input"`
	Recording bool           `json:"recording"`
	Response  ui.Panel       `json:"response"`
	Stats     map[string]int `json:"stats"`
	Backend   *api.Status    `json:"backend,omitempty"`
}

// SnapshotOf converts a controller state.
func SnapshotOf(s ui.State) Snapshot {
	return Snapshot{
		Loading:   s.Loading,
		ModalOpen: s.ModalOpen,
		Input:     s.Input,
		Recording: s.Recording,
		Response:  s.Response,
		Stats:     s.Stats.Map(),
		Backend:   s.Backend,
	}
}

type Status struct {
	Running    bool           `json:"running"`
	UptimeSec  float64        `json:"uptime_sec"`
	BackendURL string         `json:"backend_url"`
	State      Snapshot       `json:"state"`
	History    []HistoryEntry `json:"history"`
}

type SimpleResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Response answers an action op. Panel is set when the action produced one.
type Response struct {
	OK      bool      `json:"ok"`
	Message string    `json:"message,omitempty"`
	Panel   *ui.Panel `json:"panel,omitempty"`
	State   Snapshot  `json:"state"`
}

// HistoryEntry is one panel the daemon has shown.
type HistoryEntry struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Error     bool      `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrNoDaemon is returned by Call when nothing listens on the socket.
var ErrNoDaemon = errors.New("cannot connect to daemon")

// Call sends req to the daemon at socketPath and decodes the reply into out.
func Call(socketPath string, req Request, out any) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoDaemon, err)
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return err
	}
	if err := json.NewDecoder(conn).Decode(out); err != nil {
		return fmt.Errorf("decode %s reply: %w", req.Op, err)
	}
	return nil
}

// NewBackend builds the backend client from cfg.
func NewBackend(cfg *config.Config, logger logrus.FieldLogger) (*api.Client, error) {
	return api.New(cfg.Backend.BaseURL,
		api.WithTimeout(cfg.BackendTimeout()),
		api.WithLogger(logger),
	)
}
