package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/ipc"
	"github.com/1broseidon/unitydialog/internal/platform"
)

const (
	ServerName    = "unitydialog"
	ServerVersion = "0.1.0"
)

// Backend is the daemon as seen over IPC. *ipc.Client implements it.
type Backend interface {
	GetStatus() (*ipc.StatusData, error)
	ListParents() (*ipc.ParentsData, error)
	Check() (*ipc.CheckData, error)
	Reload() error
}

// Server is the MCP server exposing the dialog daemon's state.
type Server struct {
	mcpServer *mcpsdk.Server
	backend   Backend
}

// NewServer creates a new MCP server that forwards to backend.
func NewServer(backend Backend) *Server {
	s := &Server{backend: backend}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report whether the unitydialog daemon is running, how many windows it manages, how many parents are dimmed behind a transient dialog, and the configured fade time.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_parents",
		Description: "List every parent window that is dimmed because it has transient dialogs, with its transients, current dim level (0 to 1), and whether clicks on it are redirected to the dialog.",
	}, s.handleListParents)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "check_relationships",
		Description: "Verify that every parent/transient link is mirrored on both sides and that no transient chain loops. Returns the problems found; an empty list means the state is consistent.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Ask the daemon to re-read its config file. Fails without changing anything when the file does not validate.",
	}, s.handleReload)
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	status, err := s.backend.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	return nil, GetStatusOutput{
		DaemonRunning:     status.DaemonRunning,
		UptimeSeconds:     status.UptimeSeconds,
		Windows:           status.Windows,
		Parents:           status.Parents,
		Transients:        status.Transients,
		SwitchingViewport: status.SwitchingViewport,
		FadeTimeMS:        status.FadeTimeMS,
	}, nil
}

func (s *Server) handleListParents(_ context.Context, _ *mcpsdk.CallToolRequest, args ListParentsInput) (*mcpsdk.CallToolResult, ListParentsOutput, error) {
	var filter platform.WindowID
	if w := strings.TrimSpace(args.Window); w != "" {
		id, err := parseWindowID(w)
		if err != nil {
			return nil, ListParentsOutput{}, err
		}
		filter = id
	}

	data, err := s.backend.ListParents()
	if err != nil {
		return nil, ListParentsOutput{}, err
	}

	out := ListParentsOutput{Parents: []ParentInfo{}}
	for _, p := range data.Parents {
		if filter != 0 && p.ID != filter {
			continue
		}
		out.Parents = append(out.Parents, toParentInfo(p))
	}
	if filter != 0 && len(out.Parents) == 0 {
		return nil, ListParentsOutput{}, fmt.Errorf("window %s is not a dimmed parent", formatWindowID(filter))
	}
	return nil, out, nil
}

func (s *Server) handleCheck(_ context.Context, _ *mcpsdk.CallToolRequest, _ CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	data, err := s.backend.Check()
	if err != nil {
		return nil, CheckOutput{}, err
	}
	problems := data.Problems
	if problems == nil {
		problems = []string{}
	}
	return nil, CheckOutput{OK: len(problems) == 0, Problems: problems}, nil
}

func (s *Server) handleReload(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadInput) (*mcpsdk.CallToolResult, ReloadOutput, error) {
	if err := s.backend.Reload(); err != nil {
		return nil, ReloadOutput{}, err
	}
	return nil, ReloadOutput{Reloaded: true}, nil
}

func toParentInfo(p dialog.ParentInfo) ParentInfo {
	info := ParentInfo{
		Window:           formatWindowID(p.ID),
		Transients:       make([]string, 0, len(p.Transients)),
		Dim:              float64(p.ShadeProgress) / float64(dialog.Opaque),
		FadingOut:        len(p.Transients) == 0,
		InputPassthrough: p.HasInputPassthrough,
		Constrained:      p.Constrained,
	}
	for _, t := range p.Transients {
		info.Transients = append(info.Transients, formatWindowID(t))
	}
	return info
}

func formatWindowID(id platform.WindowID) string {
	return fmt.Sprintf("0x%x", uint32(id))
}

// parseWindowID accepts decimal and 0x-prefixed hex ids.
func parseWindowID(s string) (platform.WindowID, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return platform.WindowID(v), nil
}
