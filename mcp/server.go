package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/snackbase/snackbase-go/errors"
	"github.com/snackbase/snackbase-go/logger"
	"github.com/snackbase/snackbase-go/observability"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2024-11-05": true,
	"2025-03-26": true,
	"2025-06-18": true,
}

// latestProtocolVersion is the version advertised when the client asks for
// one this server does not know.
const latestProtocolVersion = "2025-06-18"

// MaxMessageSize is the largest accepted JSON-RPC line (1MB).
const MaxMessageSize = 1 << 20

// maxConcurrentCalls bounds tool calls handled at once.
const maxConcurrentCalls = 8

// ToolHandler runs a tool. A returned error becomes an error result; a
// value becomes a text result.
type ToolHandler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is a named operation exposed through tools/call.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     ToolHandler
}

// ServerInfo identifies the server in the initialize response.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server serves tools over newline-delimited JSON-RPC.
type Server struct {
	info  ServerInfo
	log   *logger.Logger
	tools map[string]Tool
	order []string

	writeMu sync.Mutex
}

// NewServer creates a server. A nil logger discards output.
func NewServer(info ServerInfo, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		info:  info,
		log:   log.WithComponent("mcp"),
		tools: make(map[string]Tool),
	}
}

// Register adds tools. A tool registered twice replaces the earlier one
// and keeps its position in tools/list.
func (s *Server) Register(tools ...Tool) {
	for _, t := range tools {
		if _, ok := s.tools[t.Name]; !ok {
			s.order = append(s.order, t.Name)
		}
		s.tools[t.Name] = t
	}
}

// Serve reads requests from r and writes responses to w until r is
// exhausted or ctx is done. Requests are handled concurrently, so
// responses may arrive out of order; each carries its request id. A line
// longer than MaxMessageSize is discarded and answered with an invalid
// request error; serving continues with the next line.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCalls)

	lines := make(chan inputLine)
	var readErr error
	go func() {
		defer close(lines)
		br := bufio.NewReaderSize(r, 64*1024)
		for {
			line, err := readLine(br, MaxMessageSize)
			if line.data != nil || line.tooLong {
				select {
				case lines <- line:
				case <-gctx.Done():
					return
				}
			}
			if err != nil {
				if !stderrors.Is(err, io.EOF) {
					readErr = err
				}
				return
			}
		}
	}()

	for {
		select {
		case <-gctx.Done():
			if err := g.Wait(); err != nil {
				return err
			}
			return ctxErr(ctx)
		case line, ok := <-lines:
			if !ok {
				if err := g.Wait(); err != nil {
					return err
				}
				if readErr != nil {
					return fmt.Errorf("mcp: read: %w", readErr)
				}
				return nil
			}
			if line.tooLong {
				s.log.Warn("Discarded oversized message", logger.Fields("limit_bytes", MaxMessageSize))
				g.Go(func() error {
					return s.write(enc, errorResponse(nil, CodeInvalidRequest, "message too large"))
				})
				continue
			}
			if len(line.data) == 0 {
				continue
			}
			g.Go(func() error {
				resp := s.HandleMessage(gctx, line.data)
				if resp == nil {
					return nil
				}
				return s.write(enc, resp)
			})
		}
	}
}

// inputLine is one newline-terminated message, or the marker for a line
// that exceeded the size limit.
type inputLine struct {
	data    []byte
	tooLong bool
}

// readLine reads up to the next newline. Lines longer than limit are
// consumed to their end and reported as tooLong without their content.
// A final line without a trailing newline is returned with io.EOF.
func readLine(br *bufio.Reader, limit int) (inputLine, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > limit+1 {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if stderrors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			return inputLine{tooLong: true}, err
		}
		buf = bytes.TrimRight(buf, "\r\n")
		if err != nil && len(buf) == 0 {
			return inputLine{}, err
		}
		if buf == nil {
			buf = []byte{}
		}
		return inputLine{data: buf}, err
	}
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil && !stderrors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) write(enc *json.Encoder, resp *Response) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("mcp: write: %w", err)
	}
	return nil
}

// HandleMessage processes one JSON-RPC message. It returns nil for
// notifications.
func (s *Server) HandleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse(nil, CodeParseError, "invalid JSON")
	}
	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, CodeInvalidRequest, "invalid JSON-RPC version")
	}
	if req.IsNotification() {
		s.log.Debug("Notification ignored", logger.Fields(logger.FieldMethod, req.Method))
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return resultResponse(req.ID, struct{}{})
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, "method not found")
	}
}

func (s *Server) handleInitialize(req Request) *Response {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid params")
		}
	}
	version := params.ProtocolVersion
	if !supportedProtocolVersions[version] {
		version = latestProtocolVersion
	}

	s.log.Info("Session initialized", logger.Fields("protocol_version", version))
	return resultResponse(req.ID, map[string]any{
		"protocolVersion": version,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": s.info,
	})
}

func (s *Server) handleToolsList(req Request) *Response {
	result := ListToolsResult{Tools: make([]ToolInfo, 0, len(s.order))}
	for _, name := range s.order {
		t := s.tools[name]
		schema := t.InputSchema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		result.Tools = append(result.Tools, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return resultResponse(req.ID, result)
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) *Response {
	var params CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid params")
		}
	}
	if params.Name == "" {
		return errorResponse(req.ID, CodeInvalidParams, "tool name is required")
	}
	tool, ok := s.tools[params.Name]
	if !ok {
		return errorResponse(req.ID, CodeInvalidParams, "tool not found")
	}

	// Generate request ID for correlation
	requestID := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, observability.SpanToolCall, trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrToolName, tool.Name)
	observability.SetSpanAttribute(ctx, observability.AttrRequestID, requestID)

	log := s.log.WithFields(logger.Fields(logger.FieldTool, tool.Name, logger.FieldRequestID, requestID))
	log.Debug("Tool call")

	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	value, err := s.invoke(ctx, tool, args)
	if err != nil {
		appErr := errors.FromError(err)
		observability.SetSpanError(ctx, appErr)
		observability.SetSpanAttribute(ctx, observability.AttrErrorCode, string(appErr.Code))
		log.Warn("Tool call failed", logger.Fields(logger.FieldErrorCode, string(appErr.Code), logger.FieldError, appErr.Message))
		return resultResponse(req.ID, ErrorResult(appErr))
	}
	log.Debug("Tool call complete")
	return resultResponse(req.ID, TextResult(value))
}

// invoke runs the handler, converting a panic into an UnexpectedError so
// one bad call does not end the session.
func (s *Server) invoke(ctx context.Context, tool Tool, args json.RawMessage) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Unexpected(fmt.Errorf("tool %s panicked: %v", tool.Name, r))
		}
	}()
	return tool.Handler(ctx, args)
}

func resultResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) *Response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}
