package dashboard

import (
	"encoding/json"
	"net/http"
	"strings"
)

// APIKeyPlaceholder stands in for the caller's key in IDE snippets.
const APIKeyPlaceholder = "YOUR_API_KEY_HERE"

type guideOS struct {
	ID   string
	Name string
}

var guideOSes = []guideOS{
	{ID: "macos", Name: "macOS"},
	{ID: "windows", Name: "Windows"},
	{ID: "linux", Name: "Linux"},
}

// ideSetup is the MCP configuration for one IDE.
type ideSetup struct {
	ID          string
	Name        string
	Description string
	Paths       map[string]string
	config      func(mcpURL, apiKey string) any
	// restart is the last instruction once the file is saved.
	restart map[string]string
}

var ideSetups = []ideSetup{
	{
		ID:          "cursor",
		Name:        "Cursor",
		Description: "Configure Cursor with DevDox MCP for code assistance",
		Paths: map[string]string{
			"macos":   "~/.cursor/mcp.json",
			"windows": `%USERPROFILE%\.cursor\mcp.json`,
			"linux":   "~/.cursor/mcp.json",
		},
		config: func(mcpURL, apiKey string) any {
			return map[string]any{"mcpServers": map[string]any{"devdox": map[string]any{
				"url":     mcpURL,
				"headers": map[string]string{"API-KEY": apiKey},
			}}}
		},
		restart: map[string]string{"": "Restart Cursor"},
	},
	{
		ID:          "claude",
		Name:        "Claude Desktop",
		Description: "Configure Claude Desktop with DevDox for code understanding",
		Paths: map[string]string{
			"macos":   "~/Library/Application Support/Claude/claude_desktop_config.json",
			"windows": `%APPDATA%\Claude\claude_desktop_config.json`,
			"linux":   "~/.config/Claude/claude_desktop_config.json",
		},
		config: func(mcpURL, apiKey string) any {
			return map[string]any{"devdox": map[string]any{
				"command": "npx",
				"args":    []string{"-y", "mcp-remote", mcpURL, "--header", "API-KEY: " + apiKey},
			}}
		},
		restart: map[string]string{"": "Restart Claude Desktop"},
	},
	{
		ID:          "vscode",
		Name:        "VS Code",
		Description: "Configure VS Code with DevDox over MCP",
		Paths: map[string]string{
			"macos":   "~/.vscode/mcp.json",
			"windows": `%USERPROFILE%\.vscode\mcp.json`,
			"linux":   "~/.vscode/mcp.json",
		},
		config: func(mcpURL, apiKey string) any {
			return map[string]any{
				"servers": map[string]any{"devdox": map[string]any{
					"url":     mcpURL,
					"type":    "http",
					"headers": map[string]string{"API-KEY": apiKey},
				}},
				"inputs": []any{},
			}
		},
		restart: map[string]string{
			"":      `Reload the VS Code window (Ctrl+Shift+P, "Reload Window")`,
			"macos": `Reload the VS Code window (Cmd+Shift+P, "Reload Window")`,
		},
	},
}

// setupStep is one numbered instruction; Command is shown as code.
type setupStep struct {
	Text    string
	Command string
}

type gettingStartedPage struct {
	IDEs   []ideSetup
	OSes   []guideOS
	IDE    ideSetup
	OS     string
	Path   string
	Config string
	Steps  []setupStep
}

func findIDE(id string) ideSetup {
	for _, ide := range ideSetups {
		if ide.ID == id {
			return ide
		}
	}
	return ideSetups[0]
}

func findOS(id string) string {
	for _, o := range guideOSes {
		if o.ID == id {
			return o.ID
		}
	}
	return guideOSes[0].ID
}

// ideConfig renders the IDE's configuration file with apiKey filled in.
func ideConfig(ide ideSetup, mcpURL, apiKey string) string {
	out, err := json.MarshalIndent(ide.config(mcpURL, apiKey), "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}

// setupSteps lists the shell steps that create the config file on osID.
func setupSteps(ide ideSetup, osID string) []setupStep {
	path := ide.Paths[osID]
	dir := path[:strings.LastIndexAny(path, `/\`)]

	restart, ok := ide.restart[osID]
	if !ok {
		restart = ide.restart[""]
	}

	if osID == "windows" {
		return []setupStep{
			{Text: "Open PowerShell or Command Prompt"},
			{Text: "Create directory", Command: "mkdir " + dir},
			{Text: "Edit file", Command: "notepad " + path},
			{Text: "Paste the configuration above"},
			{Text: "Save (Ctrl+S) and close"},
			{Text: restart},
		}
	}
	escape := strings.NewReplacer(" ", `\ `)
	return []setupStep{
		{Text: "Open Terminal"},
		{Text: "Create directory", Command: "mkdir -p " + escape.Replace(dir)},
		{Text: "Edit file", Command: "nano " + escape.Replace(path)},
		{Text: "Paste the configuration above"},
		{Text: "Save (Ctrl+O, Enter) and exit (Ctrl+X)"},
		{Text: restart},
	}
}

func (s *Server) handleGettingStarted(w http.ResponseWriter, r *http.Request) {
	ide := findIDE(r.URL.Query().Get("ide"))
	osID := findOS(r.URL.Query().Get("os"))

	s.render(w, r, http.StatusOK, "getting_started", PageData{
		Title:  "Getting started",
		Active: "getting-started",
		Data: gettingStartedPage{
			IDEs:   ideSetups,
			OSes:   guideOSes,
			IDE:    ide,
			OS:     osID,
			Path:   ide.Paths[osID],
			Config: ideConfig(ide, s.cfg.MCPURL, APIKeyPlaceholder),
			Steps:  setupSteps(ide, osID),
		},
	})
}
