package mcp

import "github.com/mark3labs/mcp-go/mcp"

var classifyToolDef = mcp.NewTool("bookmark_classify",
	mcp.WithDescription("Classify a message into a bookmark record: section, optional alternative, confidence, name, description and URL. Runs the prompt heuristic, then the backend cascade, then the link fallback. Does not publish."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("The raw message text, including any link"),
	),
)

var publishToolDef = mcp.NewTool("bookmark_publish",
	mcp.WithDescription("Classify a message and publish it into the bookmark document. Returns outcome 'ok' or 'duplicate'; a duplicate is not written unless force is set."),
	mcp.WithReadOnlyHintAnnotation(false),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("The raw message text, including any link"),
	),
	mcp.WithString("section",
		mcp.Description("Override the classified section code (e.g., 'dev', 'ai', 'prompts')"),
	),
	mcp.WithString("url",
		mcp.Description("Override the extracted URL. '#' publishes without a link."),
	),
	mcp.WithBoolean("force",
		mcp.Description("Publish even if the URL already appears in the document (default: false)"),
	),
)

var extractURLToolDef = mcp.NewTool("bookmark_extract_url",
	mcp.WithDescription("Extract the first link from text, skipping links to the chat platform. Returns 'MISSING' when none is found."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Text to scan for a link"),
	),
)

var historyToolDef = mcp.NewTool("bookmark_history",
	mcp.WithDescription("List published bookmarks from the publication log, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("section",
		mcp.Description("Only entries of this section code"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of entries (default: 20, max: 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Number of entries to skip (default: 0)"),
	),
)
