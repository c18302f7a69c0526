package host

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jeeftor/yamlsql/internal/grammar"
	"github.com/jeeftor/yamlsql/internal/logging"
)

// ErrClosed is returned by calls made after the connection ended
var ErrClosed = errors.New("rpc connection closed")

// errFraming marks a malformed message; the stream itself is still usable
var errFraming = errors.New("malformed message")

// maxMessageSize caps the Content-Length of a single message
var maxMessageSize = 16 << 20

// Callbacks receive editor events. They run on the reader goroutine and
// must not wait on a call to the editor.
type Callbacks struct {
	OnInitialize    func(params InitializeParams)
	OnInitialized   func()
	OnConfiguration func(settings map[string]any)
	OnRegenerate    func()
	OnShutdown      func()
}

// RPC is a Host speaking Content-Length framed JSON-RPC 2.0, usually over
// stdio with an editor extension on the other end.
type RPC struct {
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex

	callbacks Callbacks
	version   string

	nextID  atomic.Int64
	mu      sync.Mutex
	pending map[int64]chan *RPCMessage
	closed  bool

	hotSwap  atomic.Bool
	shutdown atomic.Bool
}

// NewRPC creates an RPC host; call Serve to start reading
func NewRPC(r io.Reader, w io.Writer, version string, cb Callbacks) *RPC {
	return &RPC{
		reader:    bufio.NewReader(r),
		writer:    w,
		callbacks: cb,
		version:   version,
		pending:   make(map[int64]chan *RPCMessage),
	}
}

// Serve reads and dispatches messages until exit, EOF or a read error.
// A cancelled ctx is noticed between messages.
func (h *RPC) Serve(ctx context.Context) error {
	defer h.closePending()
	logging.Debug("RPC host listening")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := h.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logging.Info("Client disconnected")
				return nil
			}
			if errors.Is(err, errFraming) {
				logging.Error("Error reading message", "error", err)
				continue
			}
			return fmt.Errorf("rpc read failed: %w", err)
		}

		if h.dispatch(msg) {
			return nil
		}
	}
}

// readMessage reads one framed message from the input stream
func (h *RPC) readMessage() (*RPCMessage, error) {
	contentLength := -1
	for {
		line, err := h.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			if contentLength < 0 {
				// Stray blank line between messages
				continue
			}
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			contentLength, err = strconv.Atoi(strings.TrimSpace(value))
			if err != nil || contentLength < 0 {
				return nil, fmt.Errorf("%w: invalid Content-Length %q", errFraming, value)
			}
		}
	}

	if contentLength > maxMessageSize {
		// Skip the body so the stream stays aligned on the next header
		if _, err := io.CopyN(io.Discard, h.reader, int64(contentLength)); err != nil {
			return nil, fmt.Errorf("error reading body: %w", err)
		}
		return nil, fmt.Errorf("%w: Content-Length %d exceeds %d", errFraming, contentLength, maxMessageSize)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(h.reader, body); err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	if logging.IsDebug() {
		logging.Debug("Frame received", "bytes", contentLength, "body", string(body))
	}

	var msg RPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.sendResponse(nil, nil, &RPCError{Code: CodeParseError, Message: err.Error()})
		return nil, fmt.Errorf("%w: %v", errFraming, err)
	}
	return &msg, nil
}

// dispatch handles one message and reports whether the session has ended
func (h *RPC) dispatch(msg *RPCMessage) bool {
	if msg.Method == "" && msg.ID != nil {
		h.deliver(msg)
		return false
	}

	logging.Debug("Received", "method", msg.Method)

	switch msg.Method {
	case MethodInitialize:
		var params InitializeParams
		if len(msg.Params) > 0 {
			if err := json.Unmarshal(msg.Params, &params); err != nil {
				h.sendResponse(msg.ID, nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()})
				return false
			}
		}
		h.hotSwap.Store(params.InitializationOptions.HotSwap)
		if h.callbacks.OnInitialize != nil {
			h.callbacks.OnInitialize(params)
		}
		h.sendResponse(msg.ID, InitializeResult{
			Capabilities: ServerCapabilities{Regenerate: true},
			ServerInfo:   ServerInfo{Name: "yamlsql", Version: h.version},
		}, nil)

	case MethodInitialized:
		if h.callbacks.OnInitialized != nil {
			h.callbacks.OnInitialized()
		}

	case MethodDidChangeConfig:
		var params DidChangeConfigurationParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			logging.Warn("Ignoring malformed configuration change", "error", err)
			return false
		}
		if h.callbacks.OnConfiguration != nil {
			h.callbacks.OnConfiguration(params.Settings)
		}

	case MethodRegenerate:
		if h.callbacks.OnRegenerate != nil {
			h.callbacks.OnRegenerate()
		}
		if msg.ID != nil {
			h.sendResponse(msg.ID, nil, nil)
		}

	case MethodShutdown:
		h.shutdown.Store(true)
		if h.callbacks.OnShutdown != nil {
			h.callbacks.OnShutdown()
		}
		h.sendResponse(msg.ID, nil, nil)

	case MethodExit:
		logging.Debug("Exit requested", "after_shutdown", h.shutdown.Load())
		return true

	default:
		if msg.ID != nil {
			h.sendResponse(msg.ID, nil, &RPCError{
				Code:    CodeMethodNotFound,
				Message: "Method not found: " + msg.Method,
			})
		}
	}
	return false
}

// ApplyGrammar asks the editor to swap in the persisted grammar
func (h *RPC) ApplyGrammar(ctx context.Context, path string, doc *grammar.Document) error {
	if !h.hotSwap.Load() {
		return ErrHotSwapUnsupported
	}

	var result ApplyGrammarResult
	if err := h.call(ctx, MethodApplyGrammar, ApplyGrammarParams{Path: path, ScopeName: doc.ScopeName}, &result); err != nil {
		return err
	}
	if !result.Applied {
		return errors.New("editor declined the grammar swap")
	}
	return nil
}

// Reload asks the editor to reload its window
func (h *RPC) Reload(ctx context.Context) error {
	return h.notify(MethodReloadWindow, nil)
}

// ShowMessage sends a notification, or a request when actions are offered
func (h *RPC) ShowMessage(ctx context.Context, msg Message) (string, error) {
	if len(msg.Actions) == 0 {
		return "", h.notify(MethodShowMessage, ShowMessageParams{
			Type:    messageType(msg.Severity),
			Message: msg.Text,
		})
	}

	items := make([]MessageActionItem, len(msg.Actions))
	for i, a := range msg.Actions {
		items[i] = MessageActionItem{Title: a}
	}

	var chosen *MessageActionItem
	err := h.call(ctx, MethodShowMessageRequest, ShowMessageRequestParams{
		Type:    messageType(msg.Severity),
		Message: msg.Text,
		Actions: items,
	}, &chosen)
	if err != nil {
		return "", err
	}
	if chosen == nil {
		return "", nil
	}
	return chosen.Title, nil
}

// call sends a request and waits for the matching response
func (h *RPC) call(ctx context.Context, method string, params any, result any) error {
	id := h.nextID.Add(1)
	ch := make(chan *RPCMessage, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.pending[id] = ch
	h.mu.Unlock()

	rawID := json.RawMessage(strconv.FormatInt(id, 10))
	msg := RPCMessage{JSONRPC: "2.0", ID: &rawID, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			h.forget(id)
			return err
		}
		msg.Params = data
	}
	if err := h.writeMessage(&msg); err != nil {
		h.forget(id)
		return err
	}

	select {
	case <-ctx.Done():
		h.forget(id)
		return ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("%s: invalid result: %w", method, err)
			}
		}
		return nil
	}
}

func (h *RPC) forget(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, id)
}

func (h *RPC) deliver(msg *RPCMessage) {
	var id int64
	if err := json.Unmarshal(*msg.ID, &id); err != nil {
		logging.Warn("Response with unexpected id", "id", string(*msg.ID))
		return
	}

	h.mu.Lock()
	ch, ok := h.pending[id]
	delete(h.pending, id)
	h.mu.Unlock()

	if !ok {
		logging.Debug("Response for unknown request", "id", id)
		return
	}
	ch <- msg
}

func (h *RPC) closePending() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.pending {
		close(ch)
		delete(h.pending, id)
	}
}

func (h *RPC) notify(method string, params any) error {
	msg := RPCMessage{JSONRPC: "2.0", Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		msg.Params = data
	}
	return h.writeMessage(&msg)
}

func (h *RPC) sendResponse(id *json.RawMessage, result any, rpcErr *RPCError) {
	msg := RPCMessage{JSONRPC: "2.0", ID: id}
	if rpcErr != nil {
		msg.Error = rpcErr
	} else {
		data, _ := json.Marshal(result)
		msg.Result = data
	}
	if err := h.writeMessage(&msg); err != nil {
		logging.Error("Error sending response", "error", err)
	}
}

// writeMessage writes one framed message to the output stream
func (h *RPC) writeMessage(msg *RPCMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling message: %w", err)
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if _, err := fmt.Fprintf(h.writer, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	_, err = h.writer.Write(body)
	return err
}
