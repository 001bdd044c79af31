// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdConversations
	CmdModels
	CmdConfig
	CmdServe
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Model   string
	Storage string

	// Command-specific
	Query      string
	Subcommand string

	// Raw args (remaining after the command name)
	Raw []string
}

const usageText = `liquidgpt - chat with OpenRouter models from the terminal

Usage:
  liquidgpt                          Start the TUI (default)
  liquidgpt chat                     Interactive line chat
  liquidgpt ask "question"           Ask a single question
  liquidgpt conversations [cmd]      Manage stored conversations
  liquidgpt models                   List selectable models
  liquidgpt config [cmd]             Configuration
  liquidgpt serve [--port N]         Run the local HTTP API
  liquidgpt version                  Show version

Conversation Commands (alias: conv, c):
  liquidgpt conversations list               List conversations, newest first
  liquidgpt conversations show <n|id>        Print a conversation
  liquidgpt conversations delete <n|id>      Delete a conversation
  liquidgpt conversations search <text>      Search titles and messages
  liquidgpt conversations export <n|id>      Export a conversation
    --format md|html|json                    Export format (default: md)
    --output DIR                             Output directory (default: .)
    --open                                   Open the exported file
  liquidgpt conversations export --all       Print every conversation as JSON
  liquidgpt conversations import <file>      Import a JSON export
  liquidgpt conversations watch              Print changes as they are saved

Config Commands:
  liquidgpt config show              Show configuration (key redacted)
  liquidgpt config path              Print the config file path
  liquidgpt config init              Write a default config file
  liquidgpt config get <key>         Print one value (e.g. chat.default_model)
  liquidgpt config set <key> <val>   Change one value
  liquidgpt config keys              List settable keys

Chat Commands (inside liquidgpt chat):
  /new              Start a new conversation
  /clear            Clear the current conversation
  /list             List stored conversations
  /open <n|id>      Open a conversation
  /delete <n|id>    Delete a conversation
  /model [n|id]     Show or switch the model
  /models           List models
  /history          Print the current conversation
  /help             Show commands
  /quit             Exit

Global Flags:
  -m, --model ID     Model for this run (catalog number, id or name)
  --storage KIND     Storage backend: file, sqlite, memory
  --json             JSON output where supported
  -q, --quiet        Minimal output
  -v, --verbose      Debug logging to stderr

Environment:
  OPENROUTER_API_KEY   API key (also read from .env)
  LIQUIDGPT_HOME       Config directory (default: ~/.liquidgpt)
  LIQUIDGPT_MODEL      Default model
  LIQUIDGPT_STORAGE    Storage backend
  NO_COLOR             Disable colored output

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("liquidgpt version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses an argument list (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining
	if len(remaining) > 0 {
		parsedArgs.Subcommand = strings.ToLower(remaining[0])
	}

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs
	case "chat":
		return CmdChat, parsedArgs
	case "ask", "a":
		parsedArgs.Query = strings.Join(remaining, " ")
		parsedArgs.Subcommand = ""
		return CmdAsk, parsedArgs
	case "conversations", "conversation", "conv", "c":
		return CmdConversations, parsedArgs
	case "models":
		return CmdModels, parsedArgs
	case "config":
		return CmdConfig, parsedArgs
	case "serve", "server":
		return CmdServe, parsedArgs
	case "version", "--version", "-V":
		return CmdVersion, parsedArgs
	case "help", "--help", "-h":
		return CmdHelp, parsedArgs
	default:
		parsedArgs.Subcommand = cmd
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags and returns remaining args.
// Flags after the command name are left for the command's own parser.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--json":
			args.JSON = true
		case arg == "-m" || arg == "--model":
			if i+1 < len(argv) {
				args.Model = argv[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--model="):
			args.Model = strings.TrimPrefix(arg, "--model=")
		case arg == "--storage":
			if i+1 < len(argv) {
				args.Storage = argv[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--storage="):
			args.Storage = strings.TrimPrefix(arg, "--storage=")
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, args
}
