package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
)

// DefaultConnectTimeout bounds the handshake with each server during Initialize.
const DefaultConnectTimeout = 30 * time.Second

// ErrNotConnected is returned when a call names a server without a live session.
var ErrNotConnected = errors.New("MCP server is not connected")

// ToolInfo is one tool offered by a connected server.
type ToolInfo struct {
	Server      string `json:"server,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ResourceInfo is one resource offered by a connected server.
type ResourceInfo struct {
	Server string `json:"server,omitempty"`
	URI    string `json:"uri"`
	Name   string `json:"name,omitempty"`
}

// PromptInfo is one prompt template offered by a connected server.
type PromptInfo struct {
	Server      string `json:"server,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TransportFunc creates the transport used to reach a server.
type TransportFunc func(name string, cfg ServerConfig) (mcp.Transport, error)

type connection struct {
	config  ServerConfig
	session *mcp.ClientSession
}

// Manager holds client sessions to every configured MCP server.
type Manager struct {
	// initMu serializes Initialize and Shutdown; mu guards the fields below.
	initMu         sync.Mutex
	mu             sync.RWMutex
	config         *Config
	connections    map[string]*connection
	newTransport   TransportFunc
	connectTimeout time.Duration
	initialized    bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithTransport replaces the default stdio command transport.
func WithTransport(fn TransportFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newTransport = fn
		}
	}
}

// WithConnectTimeout overrides DefaultConnectTimeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.connectTimeout = d
		}
	}
}

// NewManager creates a manager for cfg. A nil cfg means no configured servers.
func NewManager(cfg *Config, opts ...Option) *Manager {
	if cfg == nil {
		cfg = &Config{Servers: map[string]ServerConfig{}}
	}
	m := &Manager{
		config:         cfg,
		connections:    make(map[string]*connection),
		newTransport:   CommandTransport,
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CommandTransport launches the server as a child process speaking MCP over
// stdio. The server env is layered over the current process env.
func CommandTransport(name string, cfg ServerConfig) (mcp.Transport, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("MCP server %q: command is required", name)
	}
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = os.Environ()
	for _, k := range slices.Sorted(maps.Keys(cfg.Env)) {
		cmd.Env = append(cmd.Env, k+"="+cfg.Env[k])
	}
	return &mcp.CommandTransport{Command: cmd}, nil
}

// Initialize connects all enabled servers concurrently. Servers that fail to
// connect are logged and skipped. Concurrent callers wait for the first call to
// finish; later calls are no-ops until Shutdown. Connections are not tied to
// ctx's cancellation, only to its values.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.mu.RLock()
	done := m.initialized
	var names []string
	for _, name := range slices.Sorted(maps.Keys(m.config.Servers)) {
		if m.config.Servers[name].IsEnabled() {
			names = append(names, name)
		}
	}
	m.mu.RUnlock()
	if done {
		return nil
	}

	connectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.connectTimeout)
	defer cancel()

	var g errgroup.Group
	for _, name := range names {
		cfg := m.config.Servers[name]
		g.Go(func() error {
			if err := m.connect(connectCtx, name, cfg); err != nil {
				log.Printf("[MCP] Failed to connect to %q: %v", name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()

	log.Printf("[MCP] Initialized with %d/%d servers connected", len(m.ConnectedServers()), len(names))
	return nil
}

func (m *Manager) connect(ctx context.Context, name string, cfg ServerConfig) error {
	transport, err := m.newTransport(name, cfg)
	if err != nil {
		return err
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "redesign/" + name,
		Version: "1.0.0",
	}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	m.mu.Lock()
	if _, exists := m.connections[name]; exists {
		m.mu.Unlock()
		_ = session.Close()
		return fmt.Errorf("MCP server %q is already connected", name)
	}
	m.connections[name] = &connection{config: cfg, session: session}
	m.mu.Unlock()

	desc := cfg.Description
	if desc == "" {
		desc = cfg.Command
	}
	log.Printf("[MCP] Connected to %q (%s)", name, desc)
	return nil
}

func (m *Manager) session(name string) (*mcp.ClientSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[name]
	if !ok {
		connected := slices.Sorted(maps.Keys(m.connections))
		return nil, fmt.Errorf("%w: %q (connected: [%s])", ErrNotConnected, name, strings.Join(connected, ", "))
	}
	return conn.session, nil
}

// CallTool invokes a tool on one server.
func (m *Manager) CallTool(ctx context.Context, server, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	session, err := m.session(server)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
}

// ListTools lists the tools of one server.
func (m *Manager) ListTools(ctx context.Context, server string) ([]ToolInfo, error) {
	session, err := m.session(server)
	if err != nil {
		return nil, err
	}
	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, err
	}
	tools := make([]ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, ToolInfo{Name: t.Name, Description: t.Description})
	}
	return tools, nil
}

// ReadResource reads one resource from a server.
func (m *Manager) ReadResource(ctx context.Context, server, uri string) (*mcp.ReadResourceResult, error) {
	session, err := m.session(server)
	if err != nil {
		return nil, err
	}
	return session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
}

// ListResources lists the resources of one server.
func (m *Manager) ListResources(ctx context.Context, server string) ([]ResourceInfo, error) {
	session, err := m.session(server)
	if err != nil {
		return nil, err
	}
	res, err := session.ListResources(ctx, &mcp.ListResourcesParams{})
	if err != nil {
		return nil, err
	}
	resources := make([]ResourceInfo, 0, len(res.Resources))
	for _, r := range res.Resources {
		resources = append(resources, ResourceInfo{URI: r.URI, Name: r.Name})
	}
	return resources, nil
}

// GetPrompt renders a prompt template on one server.
func (m *Manager) GetPrompt(ctx context.Context, server, prompt string, args map[string]string) (*mcp.GetPromptResult, error) {
	session, err := m.session(server)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]string{}
	}
	return session.GetPrompt(ctx, &mcp.GetPromptParams{Name: prompt, Arguments: args})
}

// ListPrompts lists the prompt templates of one server.
func (m *Manager) ListPrompts(ctx context.Context, server string) ([]PromptInfo, error) {
	session, err := m.session(server)
	if err != nil {
		return nil, err
	}
	res, err := session.ListPrompts(ctx, &mcp.ListPromptsParams{})
	if err != nil {
		return nil, err
	}
	prompts := make([]PromptInfo, 0, len(res.Prompts))
	for _, p := range res.Prompts {
		prompts = append(prompts, PromptInfo{Name: p.Name, Description: p.Description})
	}
	return prompts, nil
}

// ListAllTools lists tools across every connected server, skipping servers
// that fail to answer.
func (m *Manager) ListAllTools(ctx context.Context) []ToolInfo {
	return collect(ctx, m, m.ListTools, func(t *ToolInfo, server string) { t.Server = server })
}

// ListAllResources lists resources across every connected server.
func (m *Manager) ListAllResources(ctx context.Context) []ResourceInfo {
	return collect(ctx, m, m.ListResources, func(r *ResourceInfo, server string) { r.Server = server })
}

// ListAllPrompts lists prompts across every connected server.
func (m *Manager) ListAllPrompts(ctx context.Context) []PromptInfo {
	return collect(ctx, m, m.ListPrompts, func(p *PromptInfo, server string) { p.Server = server })
}

// collect fans list out to every connected server and concatenates the
// results in server name order.
func collect[T any](ctx context.Context, m *Manager, list func(context.Context, string) ([]T, error), tag func(*T, string)) []T {
	servers := m.ConnectedServers()
	results := make([][]T, len(servers))

	g, gctx := errgroup.WithContext(ctx)
	for i, server := range servers {
		g.Go(func() error {
			items, err := list(gctx, server)
			if err != nil {
				log.Printf("[MCP] Skipping %q: %v", server, err)
				return nil
			}
			for j := range items {
				tag(&items[j], server)
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	all := make([]T, 0)
	for _, items := range results {
		all = append(all, items...)
	}
	return all
}

// ConnectedServers returns the names of connected servers, sorted.
func (m *Manager) ConnectedServers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.connections))
}

// IsConnected reports whether server has a live session.
func (m *Manager) IsConnected(server string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.connections[server]
	return ok
}

// AddServer connects a server that is not in the config file.
func (m *Manager) AddServer(ctx context.Context, name string, cfg ServerConfig) error {
	if m.IsConnected(name) {
		return fmt.Errorf("MCP server %q is already connected", name)
	}
	return m.connect(ctx, name, cfg)
}

// DisconnectServer closes one session. Unknown names are ignored.
func (m *Manager) DisconnectServer(name string) error {
	m.mu.Lock()
	conn, ok := m.connections[name]
	delete(m.connections, name)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	err := conn.session.Close()
	log.Printf("[MCP] Disconnected from %q", name)
	return err
}

// Shutdown closes every session and allows Initialize to run again.
func (m *Manager) Shutdown() error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	var errs []error
	for _, name := range m.ConnectedServers() {
		if err := m.DisconnectServer(name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	m.mu.Lock()
	m.initialized = false
	m.mu.Unlock()
	return errors.Join(errs...)
}
