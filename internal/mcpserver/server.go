// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Wayfarer document tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/wayfarer/internal/docservice"
	"github.com/starford/wayfarer/internal/document"
	"github.com/starford/wayfarer/internal/inline"
)

const formatURI = "wayfarer://block-format"

// Server wraps the MCP server with Wayfarer tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all Wayfarer tools registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Wayfarer",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List documents, most recently updated first."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document as a list of blocks. Text content is rendered as inline markup."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles and block text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document. Blocks MUST follow the block format contract; "+
			"read it first via the get_block_contract tool or the "+formatURI+" resource."),
		mcp.WithString("id", mcp.Description("Optional id (letters, digits, - and _). Generated when empty.")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title")),
		mcp.WithString("blocks", mcp.Description("Optional JSON array of blocks")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("insert_block",
		mcp.WithDescription("Insert a block after another block (or at the end) of a document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("after", mcp.Description("Block id to insert after (empty appends)")),
		mcp.WithString("type", mcp.Description("Block type (default paragraph)")),
		mcp.WithString("markup", mcp.Description("Inline markup: **bold**, _italic_, [label](url)")),
	), s.insertBlock)

	s.mcp.AddTool(mcp.NewTool("set_block_image",
		mcp.WithDescription("Import an image onto an image block with the default centered crop. "+
			"Accepts http(s) URLs, data: URIs and /attachments/ paths."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("block", mcp.Required(), mcp.Description("Image block id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image source")),
	), s.setBlockImage)

	s.mcp.AddTool(mcp.NewTool("find_image_users",
		mcp.WithDescription("List the documents and blocks that reference an image URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image URL, e.g. /attachments/harbour.jpg")),
	), s.findImageUsers)

	s.mcp.AddTool(mcp.NewTool("get_block_contract",
		mcp.WithDescription("Returns the Wayfarer block format contract. "+
			"Call this before creating documents or inserting blocks."),
	), s.getBlockContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Block Format Contract",
			mcp.WithResourceDescription("Block document format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBlockFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.List(ctx, req.GetInt("limit", 0), 0, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(items)+1)
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%d blocks", it.ID, it.Title, it.BlockCount))
	}
	lines = append(lines, fmt.Sprintf("(%d of %d)", len(items), total))
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// renderedBlock is a block with its content as inline markup.
type renderedBlock struct {
	ID        string             `json:"id"`
	Type      document.BlockType `json:"type"`
	Markup    string             `json:"markup,omitempty"`
	Alignment document.Alignment `json:"alignment,omitempty"`
	ImageURL  string             `json:"imageUrl,omitempty"`
	ImageAlt  string             `json:"imageAlt,omitempty"`
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	blocks := make([]renderedBlock, len(d.Blocks))
	for i, b := range d.Blocks {
		blocks[i] = renderedBlock{
			ID:        b.ID,
			Type:      b.Type,
			Markup:    inline.Render(b.Content),
			Alignment: b.Alignment,
			ImageURL:  b.ImageURL,
			ImageAlt:  b.ImageAlt,
		}
	}
	return jsonResult(map[string]any{
		"id":       d.ID,
		"title":    d.Title,
		"checksum": d.Checksum,
		"blocks":   blocks,
	})
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var blocks []document.Block
	if raw := req.GetString("blocks", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid blocks JSON: %v", err)), nil
		}
	}
	d, err := s.svc.Create(ctx, req.GetString("id", ""), title, blocks)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", d.ID)), nil
}

func (s *Server) insertBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t := document.BlockType(req.GetString("type", string(document.Paragraph)))
	if !t.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown block type: %s", t)), nil
	}
	content, err := inline.Parse(req.GetString("markup", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, b, err := s.svc.InsertBlock(ctx, id, "", req.GetString("after", ""), t, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("inserted: %s", b.ID)), nil
}

func (s *Server) setBlockImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blockID, err := req.RequireString("block")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.SetBlockImage(ctx, id, blockID, url)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, _ := findBlock(res.Document.Blocks, blockID)
	return jsonResult(map[string]any{
		"imageUrl": b.ImageURL,
		"natural":  res.Result.Natural,
	})
}

func findBlock(blocks []document.Block, id string) (document.Block, bool) {
	for _, b := range blocks {
		if b.ID == id {
			return b, true
		}
	}
	return document.Block{}, false
}

func (s *Server) findImageUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	users, err := s.svc.ImageUsers(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(users) == 0 {
		return mcp.NewToolResultText("no documents use this image"), nil
	}
	return jsonResult(users)
}

func (s *Server) getBlockContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BlockFormatContract), nil
}

func (s *Server) readBlockFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     BlockFormatContract,
		},
	}, nil
}
