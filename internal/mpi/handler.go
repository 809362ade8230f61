package mpi

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/creack/pty"
	"github.com/google/uuid"
)

// defaultEditor and defaultPager mirror original_source's
// TINTINEDITOR/TINTINPAGER environment-variable defaults.
const (
	defaultEditor = "nano -w"
	defaultPager  = "less"
)

// Handler owns the envelope Detector plus a joinable pool of view/edit
// worker goroutines, one per active MPI session (spec.md §4.3's
// concurrency note: "each MPI task runs on its own worker; on shutdown,
// the core joins all outstanding MPI tasks before final teardown").
type Handler struct {
	Detector *Detector

	// ToServer receives the framed response bytes an edit session
	// produces; the proxy's server pump writes these to the server
	// socket.
	ToServer chan []byte

	Editor string
	Pager  string

	wg sync.WaitGroup
}

// New returns a Handler wired to a fresh Detector, with editor/pager
// commands resolved from TINTINEDITOR/TINTINPAGER (notepad on Windows),
// per spec.md §6.
func New() *Handler {
	h := &Handler{
		Detector: NewDetector(),
		ToServer: make(chan []byte, 8),
		Editor:   envOr("TINTINEDITOR", platformDefault(defaultEditor)),
		Pager:    envOr("TINTINPAGER", platformDefault(defaultPager)),
	}
	h.Detector.OnEnvelope = h.dispatch
	return h
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func platformDefault(unixDefault string) string {
	if isWindows() {
		return "notepad"
	}
	return unixDefault
}

// Feed forwards to the Detector; see Detector.Feed.
func (h *Handler) Feed(data []byte) []byte {
	return h.Detector.Feed(data)
}

// Wait blocks until all outstanding MPI worker goroutines have finished,
// then closes ToServer. Call this once, during shutdown, after the
// detector will receive no more input.
func (h *Handler) Wait() {
	h.wg.Wait()
	close(h.ToServer)
}

func (h *Handler) dispatch(env Envelope) {
	switch env.Command {
	case 'V':
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.runView(env.Payload)
		}()
	case 'E':
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.runEdit(env.Payload)
		}()
	}
}

func (h *Handler) runView(payload []byte) {
	tmp, err := writeTempFile("mume_viewing_", payload)
	if err != nil {
		return
	}
	defer removeFile(tmp)
	_ = runCommand(h.Pager, tmp)
}

func (h *Handler) runEdit(payload []byte) {
	parts := bytes.SplitN(payload, []byte("\n"), 3)
	if len(parts) != 3 {
		return
	}
	session, _, body := parts[0], parts[1], parts[2]

	tmp, err := writeTempFile("mume_editing_", body)
	if err != nil {
		return
	}
	defer removeFile(tmp)

	before, err := mtime(tmp)
	if err != nil {
		return
	}

	_ = runCommand(h.Editor, tmp)

	after, err := mtime(tmp)
	if err != nil {
		return
	}

	var response []byte
	if after.Equal(before) {
		response = append([]byte("C"), session...)
	} else {
		contents, err := os.ReadFile(tmp)
		if err != nil {
			return
		}
		response = append([]byte("E"), session...)
		response = append(response, '\n')
		response = append(response, contents...)
	}
	response = frameResponse(response)

	h.ToServer <- response
}

// frameResponse applies spec.md §4.3's response transform (strip `\r`,
// double embedded IAC, trim whitespace, append one `\n`) and wraps it in
// the `~$#EE<len>\n<body>` envelope.
func frameResponse(body []byte) []byte {
	body = bytes.ReplaceAll(body, []byte("\r"), nil)
	body = bytes.ReplaceAll(body, []byte{0xFF}, []byte{0xFF, 0xFF})
	body = bytes.TrimSpace(body)
	body = append(body, '\n')

	var out bytes.Buffer
	out.WriteString("~$#EE")
	out.WriteString(strconv.Itoa(len(body)))
	out.WriteByte('\n')
	out.Write(body)
	return out.Bytes()
}

func writeTempFile(prefix string, data []byte) (string, error) {
	name := prefix + uuid.NewString() + ".txt"
	path := tempPath(name)
	normalized := bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))
	if err := os.WriteFile(path, normalized, 0600); err != nil {
		return "", fmt.Errorf("failed to write MPI temp file: %w", err)
	}
	return path, nil
}

func tempPath(name string) string {
	return os.TempDir() + string(os.PathSeparator) + name
}

func removeFile(path string) {
	_ = os.Remove(path)
}

func mtime(path string) (mtimeValue, error) {
	info, err := os.Stat(path)
	if err != nil {
		return mtimeValue{}, err
	}
	return mtimeValue{info.ModTime().UnixNano()}, nil
}

// mtimeValue wraps a modification time for equality comparison without
// pulling time.Time's monotonic-reading subtleties into the comparison.
type mtimeValue struct {
	nanos int64
}

func (m mtimeValue) Equal(other mtimeValue) bool {
	return m.nanos == other.nanos
}

// runCommand spawns cmdLine (program plus its own arguments) with path
// appended as the final argument, attached to a pseudo-terminal so
// curses-based editors/pagers behave correctly when the proxy itself was
// launched without one. Grounded on
// stlalpha-vision3/internal/transfer/pty.go's creack/pty-based external
// process pattern, adapted from an SSH-attached session to the proxy's
// own stdio.
func runCommand(cmdLine, path string) error {
	fields := strings.Fields(cmdLine)
	if len(fields) == 0 {
		return fmt.Errorf("empty command")
	}
	args := append(append([]string{}, fields[1:]...), path)
	cmd := exec.Command(fields[0], args...)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		cmd = exec.Command(fields[0], args...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}
	defer ptmx.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(ptmx, os.Stdin)
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(os.Stdout, ptmx)
	}()

	err = cmd.Wait()
	wg.Wait()
	return err
}
