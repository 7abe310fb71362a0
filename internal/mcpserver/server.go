// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes graph and node operations over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/nodenote/internal/apperr"
	"github.com/starford/nodenote/internal/node"
	"github.com/starford/nodenote/internal/workspace"
)

const layoutURI = "nodenote://layout"

// Server wraps the MCP server with NodeNote tools.
type Server struct {
	mcp *server.MCPServer
	ws  *workspace.Service
}

// New creates a new MCP server with all tools registered.
func New(ws *workspace.Service, version string) *Server {
	s := &Server{ws: ws}

	s.mcp = server.NewMCPServer(
		"NodeNote",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	graphArgs := []mcp.ToolOption{
		mcp.WithString("base_path", mcp.Required(), mcp.Description("Directory that contains the graph directory")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Graph name (a single directory name)")),
	}
	nodeArgs := append(graphArgs[:len(graphArgs):len(graphArgs)],
		mcp.WithString("node", mcp.Required(), mcp.Description("Node base name, with directory prefix if nested (e.g. dir/foo)")),
	)
	with := func(base []mcp.ToolOption, extra ...mcp.ToolOption) []mcp.ToolOption {
		out := make([]mcp.ToolOption, 0, len(base)+len(extra))
		return append(append(out, base...), extra...)
	}

	s.mcp.AddTool(mcp.NewTool("create_graph", with(graphArgs,
		mcp.WithDescription("Create a graph workspace (marker, nodes and edges directories plus config stub) and register it."),
	)...), s.createGraph)

	s.mcp.AddTool(mcp.NewTool("init_registry",
		mcp.WithDescription("Create an empty graph registry if none exists yet. Existing entries are kept."),
	), s.initRegistry)

	s.mcp.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List every registered graph with creation, last-opened and validation state."),
	), s.listGraphs)

	s.mcp.AddTool(mcp.NewTool("open_graph", with(graphArgs,
		mcp.WithDescription("Validate the registry, mark a graph as opened and return the listing."),
	)...), s.openGraph)

	s.mcp.AddTool(mcp.NewTool("validate_graphs",
		mcp.WithDescription("Check that every registered graph still exists on disk."),
		mcp.WithBoolean("repair", mcp.Description("Remove entries whose directory is missing")),
	), s.validateGraphs)

	s.mcp.AddTool(mcp.NewTool("remove_graph", with(graphArgs,
		mcp.WithDescription("Unregister a graph. Files on disk are kept."),
	)...), s.removeGraph)

	s.mcp.AddTool(mcp.NewTool("list_nodes", with(graphArgs,
		mcp.WithDescription("List the nodes of a graph with their associated files and subgraph state."),
	)...), s.listNodes)

	s.mcp.AddTool(mcp.NewTool("create_node", with(graphArgs,
		mcp.WithDescription("Create a new node markdown file in a graph. Read "+layoutURI+" for naming rules."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Name of the new node (no dots or separators)")),
	)...), s.createNode)

	s.mcp.AddTool(mcp.NewTool("rename_node", with(nodeArgs,
		mcp.WithDescription("Rename a node together with its associated files and its directory."),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New node name (no dots or separators)")),
	)...), s.renameNode)

	s.mcp.AddTool(mcp.NewTool("create_subgraph", with(nodeArgs,
		mcp.WithDescription("Give a node its own nested graph."),
	)...), s.createSubgraph)

	s.mcp.AddTool(mcp.NewTool("delete_subgraph", with(nodeArgs,
		mcp.WithDescription("Delete a node's nested graph. Fails if it has content unless force is set."),
		mcp.WithBoolean("force", mcp.Description("Delete even when the subgraph is not empty")),
	)...), s.deleteSubgraph)

	s.mcp.AddResource(
		mcp.NewResource(layoutURI, "Graph Layout",
			mcp.WithResourceDescription("On-disk layout of graph workspaces and node naming rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// errorResult renders err for the tool caller.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s [%s]", apperr.Message(err), apperr.Kind(err)))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func graphIdentity(req mcp.CallToolRequest) (string, string, error) {
	base, err := req.RequireString("base_path")
	if err != nil {
		return "", "", err
	}
	name, err := req.RequireString("name")
	if err != nil {
		return "", "", err
	}
	return base, name, nil
}

func (s *Server) lookupNode(req mcp.CallToolRequest) (*node.Node, error) {
	base, name, err := graphIdentity(req)
	if err != nil {
		return nil, err
	}
	baseName, err := req.RequireString("node")
	if err != nil {
		return nil, err
	}
	return s.ws.FindNode(base, name, baseName)
}

func (s *Server) createGraph(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base, name, err := graphIdentity(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := s.ws.Create(base, name)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) initRegistry(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ws.Init(); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText("registry initialized"), nil
}

func (s *Server) listGraphs(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.ws.List()
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(entries)
}

func (s *Server) openGraph(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base, name, err := graphIdentity(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.ws.Open(base, name)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(entries)
}

func (s *Server) validateGraphs(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.ws.Validate(req.GetBool("repair", false))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{
		"checked": rep.Checked,
		"invalid": len(rep.Invalid),
		"removed": rep.Removed,
	})
}

func (s *Server) removeGraph(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base, name, err := graphIdentity(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ws.Remove(base, name); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", name)), nil
}

func (s *Server) listNodes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base, name, err := graphIdentity(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.ws.Nodes(base, name)
	if err != nil {
		return errorResult(err), nil
	}
	summaries := make([]node.Summary, 0, len(nodes))
	for _, n := range nodes {
		sum, err := n.Summary()
		if err != nil {
			return errorResult(err), nil
		}
		summaries = append(summaries, sum)
	}
	return jsonResult(summaries)
}

func (s *Server) createNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base, name, err := graphIdentity(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodeName, err := req.RequireString("node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.ws.CreateNode(base, name, nodeName)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", n.BaseName)), nil
}

func (s *Server) renameNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	newName, err := req.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.lookupNode(req)
	if err != nil {
		return errorResult(err), nil
	}
	old := n.BaseName
	if err := n.Rename(newName); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed: %s -> %s", old, n.BaseName)), nil
}

func (s *Server) createSubgraph(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.lookupNode(req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := n.CreateSubgraph(); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("subgraph created: %s", n.SubgraphPath)), nil
}

func (s *Server) deleteSubgraph(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.lookupNode(req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := n.DeleteSubgraph(req.GetBool("force", false)); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("subgraph deleted: %s", n.BaseName)), nil
}

func (s *Server) readLayoutResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      layoutURI,
			MIMEType: "text/markdown",
			Text:     LayoutContract,
		},
	}, nil
}
