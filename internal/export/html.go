// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/jeranaias/liquidgpt/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// markdownRenderer converts message content to HTML. Raw HTML in messages
// is omitted and dangerous link schemes are dropped by goldmark's defaults.
var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// HTMLExporter exports conversations to a standalone HTML page with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}
	if len(conv.Messages) == 0 {
		return nil, ErrEmptyConversation
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(conv.Title))
	sb.WriteString("    <meta name=\"generator\" content=\"liquidgpt\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", html.EscapeString(conv.Timestamp))
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", theme)
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		body, err := e.renderMessage(msg)
		if err != nil {
			return nil, err
		}
		sb.WriteString(body)
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from LiquidGPT on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

func (e *HTMLExporter) renderHeader(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", html.EscapeString(conv.Title))
	sb.WriteString("            <div class=\"metadata\">\n")
	fmt.Fprintf(&sb, "                <span>Created: %s</span>\n", html.EscapeString(formatTimestamp(conv.Timestamp)))
	if conv.UpdatedAt != "" {
		fmt.Fprintf(&sb, "                <span>Updated: %s</span>\n", html.EscapeString(formatTimestamp(conv.UpdatedAt)))
	}
	fmt.Fprintf(&sb, "                <span>Messages: %d</span>\n", len(conv.Messages))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg model.Message) (string, error) {
	class := "message " + html.EscapeString(string(msg.Role))
	if msg.IsError {
		class += " error"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "            <article class=\"%s\">\n", class)
	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(&sb, "                    <span class=\"role\">%s</span>\n", html.EscapeString(roleLabel(msg)))
	if e.options.IncludeTimestamps {
		if ts := formatShortTimestamp(msg.Timestamp); ts != "" {
			fmt.Fprintf(&sb, "                    <time datetime=\"%s\">%s</time>\n",
				html.EscapeString(msg.Timestamp), ts)
		}
	}
	sb.WriteString("                </div>\n")

	content, err := renderContent(msg.Content)
	if err != nil {
		return "", err
	}
	sb.WriteString("                <div class=\"content\">\n")
	sb.WriteString(content)
	sb.WriteString("                </div>\n")
	sb.WriteString("            </article>\n")
	return sb.String(), nil
}

// renderContent converts Markdown message content to HTML.
func renderContent(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

const htmlCSS = `    <style>
        :root { --radius: 8px; }
        .dark-theme { --bg: #1a1b26; --fg: #c0caf5; --muted: #565f89; --user: #24283b; --assistant: #1f2335; --accent: #7aa2f7; --error: #f7768e; --code: #16161e; }
        .light-theme { --bg: #ffffff; --fg: #1f2328; --muted: #6e7781; --user: #eef2ff; --assistant: #f6f8fa; --accent: #0969da; --error: #cf222e; --code: #f3f4f6; }
        body { margin: 0; background: var(--bg); color: var(--fg); font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
        .container { max-width: 860px; margin: 0 auto; padding: 24px; }
        .header h1 { margin: 0 0 8px; font-size: 1.6em; }
        .metadata { color: var(--muted); font-size: 0.85em; display: flex; gap: 16px; flex-wrap: wrap; }
        .conversation { margin-top: 24px; display: flex; flex-direction: column; gap: 16px; }
        .message { border-radius: var(--radius); padding: 12px 16px; }
        .message.user { background: var(--user); margin-left: 15%; }
        .message.assistant { background: var(--assistant); margin-right: 15%; }
        .message.error { border-left: 3px solid var(--error); }
        .message-header { display: flex; justify-content: space-between; color: var(--muted); font-size: 0.8em; margin-bottom: 4px; }
        .role { font-weight: 600; color: var(--accent); }
        .content pre { background: var(--code); padding: 12px; border-radius: 6px; overflow-x: auto; }
        .content code { font-family: "JetBrains Mono", Menlo, Consolas, monospace; font-size: 0.9em; }
        .content p:first-child { margin-top: 0; }
        .content p:last-child { margin-bottom: 0; }
        .footer { margin-top: 32px; color: var(--muted); font-size: 0.8em; text-align: center; }
    </style>
`
