// Package lsp implements a Language Server Protocol server for esguard. It
// lints open documents from memory, publishes the findings as diagnostics
// and offers rule fixes as code actions.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/santosr2/esguard/internal/config"
	"github.com/santosr2/esguard/internal/parse"
	"github.com/santosr2/esguard/internal/runner"
	"github.com/santosr2/esguard/pkg/sdk"
	"github.com/santosr2/esguard/pkg/syntax"
)

// ServerName is reported in the initialize response.
const ServerName = "esguard-lsp"

// ErrExitWithoutShutdown is returned by Run when the client sends exit
// before shutdown.
var ErrExitWithoutShutdown = errors.New("exit before shutdown")

// Server represents an LSP server instance
type Server struct {
	reader        *bufio.Reader
	writer        io.Writer
	writeMu       sync.Mutex
	version       string
	logger        *log.Logger
	runner        *runner.Runner
	documents     map[string]*Document
	docMu         sync.RWMutex
	workspaceRoot string
	initialized   bool
	shutdown      bool
	exited        bool
}

// Document represents an open document and the findings of its last check
type Document struct {
	URI      string
	Content  string
	Version  int
	findings []sdk.Finding
}

// NewServer creates a new LSP server. Logs go to logger, or are discarded
// when it is nil.
func NewServer(in io.Reader, out io.Writer, version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		reader:    bufio.NewReader(in),
		writer:    out,
		version:   version,
		logger:    logger,
		documents: make(map[string]*Document),
	}
}

// Run serves messages until the client exits or the input is closed.
func (s *Server) Run(ctx context.Context) error {
	for !s.exited {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading message: %w", err)
		}

		if err := s.handleMessage(ctx, msg); err != nil {
			s.logger.Printf("handling message: %v", err)
		}
	}

	if !s.shutdown {
		return ErrExitWithoutShutdown
	}
	return nil
}

// readMessage reads one Content-Length framed message
func (s *Server) readMessage() (json.RawMessage, error) {
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if value, ok := strings.CutPrefix(line, "Content-Length:"); ok {
			contentLength, err = strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid content length: %w", err)
			}
		}
	}

	if contentLength <= 0 {
		return nil, fmt.Errorf("no content length header")
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, content); err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	return content, nil
}

// writeMessage writes one Content-Length framed message
func (s *Server) writeMessage(msg interface{}) error {
	content, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n", len(content)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := s.writer.Write(content); err != nil {
		return fmt.Errorf("writing content: %w", err)
	}
	return nil
}

// handleMessage dispatches an incoming message by method
func (s *Server) handleMessage(ctx context.Context, content json.RawMessage) error {
	var msg RequestMessage
	if err := json.Unmarshal(content, &msg); err != nil {
		return fmt.Errorf("parsing message: %w", err)
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		s.initialized = true
		return nil
	case "shutdown":
		s.shutdown = true
		return s.sendResult(msg.ID, nil)
	case "exit":
		s.exited = true
		return nil
	case "textDocument/didOpen":
		return s.handleDidOpen(ctx, msg)
	case "textDocument/didChange":
		return s.handleDidChange(ctx, msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/didSave":
		return s.handleDidSave(ctx, msg)
	case "textDocument/formatting":
		return s.handleFormatting(ctx, msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(ctx, msg)
	default:
		if msg.ID != nil {
			return s.sendError(msg.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method))
		}
		return nil
	}
}

// handleInitialize loads the workspace configuration and builds the engines
func (s *Server) handleInitialize(msg RequestMessage) error {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "Invalid params")
	}

	switch {
	case params.RootURI != "":
		s.workspaceRoot = uriToPath(params.RootURI)
	case params.RootPath != "":
		s.workspaceRoot = params.RootPath
	}

	if err := s.configure(); err != nil {
		return s.sendError(msg.ID, codeInternalError, err.Error())
	}

	return s.sendResult(msg.ID, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    1,
				Save:      &SaveOptions{IncludeText: true},
			},
			DocumentFormattingProvider: true,
			CodeActionProvider: &CodeActionOptions{
				CodeActionKinds: []string{CodeActionQuickFix, CodeActionFixAll},
			},
		},
		ServerInfo: &ServerInfo{Name: ServerName, Version: s.version},
	})
}

// configure builds the runner from the workspace config file. A config that
// fails to load or validate is logged and replaced by the defaults.
func (s *Server) configure() error {
	cfg := config.DefaultConfig()
	if path := config.Find(s.workspaceRoot); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			s.logger.Printf("loading %s: %v, using defaults", path, err)
		} else {
			cfg = loaded
		}
	}

	r, err := runner.New(cfg, runner.Options{Logger: s.logger})
	if err != nil {
		s.logger.Printf("configuring engines: %v, using defaults", err)
		r, err = runner.New(config.DefaultConfig(), runner.Options{Logger: s.logger})
		if err != nil {
			return err
		}
	}
	s.runner = r
	return nil
}

func (s *Server) setContent(uri, content string, version int) {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	doc, ok := s.documents[uri]
	if !ok {
		doc = &Document{URI: uri}
		s.documents[uri] = doc
	}
	doc.Content = content
	doc.Version = version
	doc.findings = nil
}

func (s *Server) document(uri string) (Document, bool) {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	doc, ok := s.documents[uri]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// handleDidOpen handles textDocument/didOpen notification
func (s *Server) handleDidOpen(ctx context.Context, msg RequestMessage) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("parsing didOpen params: %w", err)
	}

	s.setContent(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	return s.publishDiagnostics(ctx, params.TextDocument.URI)
}

// handleDidChange handles textDocument/didChange notification
func (s *Server) handleDidChange(ctx context.Context, msg RequestMessage) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("parsing didChange params: %w", err)
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	if _, ok := s.document(params.TextDocument.URI); !ok {
		return nil
	}

	last := params.ContentChanges[len(params.ContentChanges)-1]
	s.setContent(params.TextDocument.URI, last.Text, params.TextDocument.Version)
	return s.publishDiagnostics(ctx, params.TextDocument.URI)
}

// handleDidClose forgets the document and clears its diagnostics
func (s *Server) handleDidClose(msg RequestMessage) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("parsing didClose params: %w", err)
	}

	s.docMu.Lock()
	delete(s.documents, params.TextDocument.URI)
	s.docMu.Unlock()

	return s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []Diagnostic{},
	})
}

// handleDidSave handles textDocument/didSave notification
func (s *Server) handleDidSave(ctx context.Context, msg RequestMessage) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("parsing didSave params: %w", err)
	}

	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil
	}
	if params.Text != "" {
		s.setContent(doc.URI, params.Text, doc.Version)
	}
	return s.publishDiagnostics(ctx, params.TextDocument.URI)
}

// handleFormatting applies every available fix and returns the result as a
// single whole-document edit.
func (s *Server) handleFormatting(ctx context.Context, msg RequestMessage) error {
	var params DocumentFormattingParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "Invalid params")
	}

	doc, ok := s.document(params.TextDocument.URI)
	if !ok || s.runner == nil || !parse.IsSource(uriToPath(doc.URI)) {
		return s.sendResult(msg.ID, []TextEdit{})
	}

	edit, err := s.fixAll(ctx, doc)
	if err != nil {
		return s.sendError(msg.ID, codeInternalError, err.Error())
	}
	if edit == nil {
		return s.sendResult(msg.ID, []TextEdit{})
	}
	return s.sendResult(msg.ID, []TextEdit{*edit})
}

func (s *Server) fixAll(ctx context.Context, doc Document) (*TextEdit, error) {
	res, err := s.runner.Lint().FixSource(ctx, uriToPath(doc.URI), []byte(doc.Content))
	if err != nil {
		return nil, err
	}
	if !res.Changed() {
		return nil, nil
	}
	return &TextEdit{
		Range:   Range{Start: Position{}, End: positionAt(doc.Content, len(doc.Content))},
		NewText: string(res.Output),
	}, nil
}

// handleCodeAction offers a quick fix for each fixable finding that
// overlaps the requested range, plus a fix-all action for the document.
func (s *Server) handleCodeAction(ctx context.Context, msg RequestMessage) error {
	var params CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "Invalid params")
	}

	doc, ok := s.document(params.TextDocument.URI)
	if !ok || s.runner == nil {
		return s.sendResult(msg.ID, []CodeAction{})
	}

	actions := []CodeAction{}
	fixable := 0
	for _, f := range doc.findings {
		if f.Fix == nil || len(f.Fix.Edits) == 0 {
			continue
		}
		fixable++
		diag := toDiagnostic(doc.Content, f)
		if !wants(params.Context.Only, CodeActionQuickFix) || !overlaps(diag.Range, params.Range) {
			continue
		}
		edits := make([]TextEdit, 0, len(f.Fix.Edits))
		for _, e := range f.Fix.Edits {
			edits = append(edits, TextEdit{Range: toRange(doc.Content, e.Range), NewText: e.Text})
		}
		actions = append(actions, CodeAction{
			Title:       fmt.Sprintf("Fix: %s (%s)", f.Message, f.Rule),
			Kind:        CodeActionQuickFix,
			Diagnostics: []Diagnostic{diag},
			IsPreferred: true,
			Edit:        &WorkspaceEdit{Changes: map[string][]TextEdit{doc.URI: edits}},
		})
	}

	if fixable > 0 && wants(params.Context.Only, CodeActionFixAll) {
		edit, err := s.fixAll(ctx, doc)
		if err != nil {
			return s.sendError(msg.ID, codeInternalError, err.Error())
		}
		if edit != nil {
			actions = append(actions, CodeAction{
				Title: "Fix all auto-fixable esguard problems",
				Kind:  CodeActionFixAll,
				Edit:  &WorkspaceEdit{Changes: map[string][]TextEdit{doc.URI: {*edit}}},
			})
		}
	}

	return s.sendResult(msg.ID, actions)
}

// wants reports whether kind passes the client's "only" filter, which
// matches by hierarchical prefix.
func wants(only []string, kind string) bool {
	if len(only) == 0 {
		return true
	}
	for _, o := range only {
		if kind == o || strings.HasPrefix(kind, o+".") {
			return true
		}
	}
	return false
}

// publishDiagnostics checks the document and publishes its findings
func (s *Server) publishDiagnostics(ctx context.Context, uri string) error {
	doc, ok := s.document(uri)
	if !ok || s.runner == nil {
		return nil
	}

	path := uriToPath(uri)
	if !parse.IsSource(path) {
		return nil
	}

	findings, err := s.runner.CheckSource(ctx, path, []byte(doc.Content))
	if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	s.docMu.Lock()
	if current, ok := s.documents[uri]; ok && current.Version == doc.Version {
		current.findings = findings
	}
	s.docMu.Unlock()

	diagnostics := make([]Diagnostic, 0, len(findings))
	for _, f := range findings {
		diagnostics = append(diagnostics, toDiagnostic(doc.Content, f))
	}

	return s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Version:     doc.Version,
		Diagnostics: diagnostics,
	})
}

func toDiagnostic(content string, f sdk.Finding) Diagnostic {
	return Diagnostic{
		Range:    findingRange(content, f),
		Severity: severityToLSP(f.Severity),
		Code:     f.Rule,
		Source:   "esguard",
		Message:  f.Message,
	}
}

// findingRange prefers the byte span. Findings that only carry a line and
// column, such as some policy violations, fall back to those.
func findingRange(content string, f sdk.Finding) Range {
	if !f.Span.IsEmpty() || f.Location.Start.Line == 0 {
		return toRange(content, f.Span)
	}
	lines := syntax.NewLineIndex([]byte(content))
	start := lines.Offset(f.Location.Start.Line, f.Location.Start.Column)
	end := start
	if f.Location.End.Line > 0 {
		end = lines.Offset(f.Location.End.Line, f.Location.End.Column)
	}
	return toRange(content, syntax.Span{Start: start, End: max(start, end)})
}

func toRange(content string, span syntax.Span) Range {
	return Range{Start: positionAt(content, span.Start), End: positionAt(content, span.End)}
}

// positionAt converts a byte offset into an LSP position, counting UTF-16
// code units within the line.
func positionAt(content string, offset int) Position {
	offset = min(max(offset, 0), len(content))
	before := content[:offset]
	lineStart := strings.LastIndexByte(before, '\n') + 1

	character := 0
	for _, r := range before[lineStart:] {
		if n := utf16.RuneLen(r); n > 0 {
			character += n
		} else {
			character++
		}
	}
	return Position{Line: strings.Count(before, "\n"), Character: character}
}

func less(a, b Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
}

// overlaps treats both ranges as closed so that a cursor touching either
// end of a diagnostic selects it.
func overlaps(a, b Range) bool {
	return !less(a.End, b.Start) && !less(b.End, a.Start)
}

func (s *Server) notify(method string, params interface{}) error {
	return s.writeMessage(NotificationMessage{JSONRPC: "2.0", Method: method, Params: params})
}

// sendResult sends a successful response. A nil result is sent as null.
func (s *Server) sendResult(id json.RawMessage, result interface{}) error {
	if result == nil {
		result = json.RawMessage("null")
	}
	return s.writeMessage(ResponseMessage{JSONRPC: "2.0", ID: id, Result: result})
}

// sendError sends an error response
func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	return s.writeMessage(ResponseMessage{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ResponseError{Code: code, Message: message},
	})
}

// uriToPath converts a file URI to a file path
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return u.Path
}

// severityToLSP converts SDK severity to LSP diagnostic severity
func severityToLSP(severity sdk.Severity) int {
	switch severity {
	case sdk.SeverityError:
		return 1
	case sdk.SeverityWarning:
		return 2
	case sdk.SeverityInfo:
		return 3
	default:
		return 4
	}
}
