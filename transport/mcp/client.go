package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/online-games/game/service"
)

// playerHeader must match api.PlayerHeader
const playerHeader = "X-Player-ID"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	playerID   string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API. playerID is
// used for tool calls that do not name a player.
func NewClient(baseURL, playerID string) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		playerID: playerID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Online Games",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Online Games - MCP Interface

Play Connect Four, Checkers, Battleship and Chess against another player.
This is a thin client that proxies all requests to the REST API server.

TYPICAL FLOW:
1. list_game_types or list_presets to pick a game
2. create_match, then share the match id with your opponent,
   or challenge_player to invite one opponent privately
3. The opponent calls join_match (or list_challenges and accept_challenge)
4. Take turns with match_state (shows the board and your valid moves) and make_move

AVAILABLE TOOLS:
- list_game_types: Games the server hosts
- list_presets: Match presets (time limits, ranked)
- list_matches: Matches waiting for a player or in progress
- create_match: Open a match in seat 1
- join_match: Take seat 2 of a waiting match
- challenge_player: Open a private match only the named opponent can join
- list_challenges: Challenges waiting for your answer
- accept_challenge / decline_challenge: Answer a challenge
- match_state: Board from your seat, whose turn it is, valid moves
- make_move: Submit a move in the game's move format
- resign: Concede the match
- move_history: Paginated move log
- game_rules: Move format and rules for a game type

Every tool that acts for a player accepts an optional player_id.`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func playerProp() map[string]any {
	return stringProp("Your player id (optional, defaults to the id the server was started with)")
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Catalog
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_game_types",
		Description: "List the games this server can host",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListGameTypes)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List match presets with their game type and time limit",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Explain the rules and the move format of a game type",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"game_type": stringProp("connect_four, checkers, battleship or chess"),
			},
			Required: []string{"game_type"},
		},
	}, c.handleGameRules)

	// Match lifecycle
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_matches",
		Description: "List matches, optionally filtered by game type, status or player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"game_type": stringProp("Only this game type"),
				"status":    stringProp("waiting, in_progress, completed or abandoned"),
				"player_id": stringProp("Only matches with this player"),
			},
		},
	}, c.handleListMatches)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_match",
		Description: "Create a match and take seat 1. Pass a preset id or a bare game type.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"preset":    stringProp("Preset id or game type (optional, server default when empty)"),
				"player_id": playerProp(),
			},
		},
	}, c.handleCreateMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_match",
		Description: "Join a waiting match as player 2",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"match_id":  stringProp("Match ID"),
				"player_id": playerProp(),
			},
			Required: []string{"match_id"},
		},
	}, c.handleJoinMatch)

	// Private challenges
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "challenge_player",
		Description: "Open a private match in seat 1 that only opponent_id can accept",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"opponent_id": stringProp("Player id of the opponent to challenge"),
				"preset":      stringProp("Preset id or game type (optional, server default when empty)"),
				"player_id":   playerProp(),
			},
			Required: []string{"opponent_id"},
		},
	}, c.handleChallenge)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_challenges",
		Description: "List open challenges addressed to you",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"player_id": playerProp(),
			},
		},
	}, c.handleListChallenges)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "accept_challenge",
		Description: "Accept a challenge addressed to you and take seat 2",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"match_id":  stringProp("Match ID of the challenge"),
				"player_id": playerProp(),
			},
			Required: []string{"match_id"},
		},
	}, c.handleAnswerChallenge("accept"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "decline_challenge",
		Description: "Decline a challenge addressed to you",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"match_id":  stringProp("Match ID of the challenge"),
				"player_id": playerProp(),
			},
			Required: []string{"match_id"},
		},
	}, c.handleAnswerChallenge("decline"))

	// Play
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_state",
		Description: "Show the board from your seat, whose turn it is and your valid moves",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"match_id":  stringProp("Match ID"),
				"player_id": playerProp(),
			},
			Required: []string{"match_id"},
		},
	}, c.handleMatchState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "make_move",
		Description: "Submit a move. The move object uses the game's format, see game_rules.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"match_id": stringProp("Match ID"),
				"move": map[string]any{
					"type":        "object",
					"description": `Move payload, e.g. {"column": 3} or {"from": "e2", "to": "e4"}`,
				},
				"player_id": playerProp(),
			},
			Required: []string{"match_id", "move"},
		},
	}, c.handleMakeMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "resign",
		Description: "Concede the match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"match_id":  stringProp("Match ID"),
				"player_id": playerProp(),
			},
			Required: []string{"match_id"},
		},
	}, c.handleResign)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get paginated move history",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"match_id": stringProp("Match ID"),
				"page": map[string]any{
					"type":        "number",
					"description": "Page number (default 1)",
				},
				"limit": map[string]any{
					"type":        "number",
					"description": "Moves per page (default 20, max 100)",
				},
				"order": stringProp("desc (newest first, default) or asc"),
			},
			Required: []string{"match_id"},
		},
	}, c.handleMoveHistory)
}

// GetMCPServer returns the MCP server instance
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path, playerID string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if playerID != "" {
		req.Header.Set(playerHeader, playerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]any {
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		return args
	}
	return map[string]any{}
}

func (c *Client) player(args map[string]any) string {
	if id, _ := args["player_id"].(string); id != "" {
		return id
	}
	return c.playerID
}

// Tool handlers

func (c *Client) handleListGameTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var types []service.GameTypeInfo
	if err := c.apiCall(ctx, "GET", "/api/game-types", "", nil, &types); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Game types (%d):\n\n", len(types))
	for _, t := range types {
		fmt.Fprintf(&b, "- %s (%s): %s\n", t.Type, t.Name, t.Description)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []service.PresetInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", "", nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Presets (%d):\n\n", len(presets))
	for _, p := range presets {
		clock := "untimed"
		if p.TimeLimitSeconds > 0 {
			clock = fmt.Sprintf("%ds per player", p.TimeLimitSeconds)
		}
		ranked := ""
		if p.Ranked {
			ranked = ", ranked"
		}
		fmt.Fprintf(&b, "- %s: %s [%s, %s%s]\n", p.PresetID, p.Name, p.GameType, clock, ranked)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameType, _ := arguments(request)["game_type"].(string)
	rules, ok := gameRules[gameType]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown game type %q", gameType)), nil
	}
	return mcp.NewToolResultText(rules), nil
}

func (c *Client) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	query := url.Values{}
	for _, key := range []string{"game_type", "status", "player_id"} {
		if v, _ := args[key].(string); v != "" {
			query.Set(key, v)
		}
	}
	path := "/api/matches"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var response struct {
		Count   int                    `json:"count"`
		Matches []service.MatchSummary `json:"matches"`
	}
	if err := c.apiCall(ctx, "GET", path, "", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Matches (%d):\n\n", response.Count)
	for _, m := range response.Matches {
		opponent := m.Player2
		if opponent == "" {
			opponent = "(open seat)"
		}
		fmt.Fprintf(&b, "- %s %s %s: %s vs %s\n", m.ID, m.GameType, m.Status, m.Player1, opponent)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleCreateMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	preset, _ := args["preset"].(string)

	body := map[string]string{}
	if preset != "" {
		body["preset_id"] = preset
	}

	var match matchView
	if err := c.apiCall(ctx, "POST", "/api/matches", c.player(args), body, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created match: %s\nGame: %s (preset %s)\nWaiting for an opponent to join.\n",
		match.ID, match.GameType, match.PresetID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleJoinMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)

	var match matchView
	if err := c.apiCall(ctx, "POST", "/api/matches/"+url.PathEscape(matchID)+"/join", c.player(args), nil, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMatch(&match)), nil
}

func (c *Client) handleChallenge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	opponent, _ := args["opponent_id"].(string)
	if opponent == "" {
		return mcp.NewToolResultError("opponent_id is required"), nil
	}

	body := map[string]string{"opponent_id": opponent}
	if preset, _ := args["preset"].(string); preset != "" {
		body["preset_id"] = preset
	}

	var match matchView
	if err := c.apiCall(ctx, "POST", "/api/challenges", c.player(args), body, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Challenged %s: match %s\nGame: %s (preset %s)\nOnly %s can accept.\n",
		opponent, match.ID, match.GameType, match.PresetID, opponent)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListChallenges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count      int                    `json:"count"`
		Challenges []service.MatchSummary `json:"challenges"`
	}
	if err := c.apiCall(ctx, "GET", "/api/challenges", c.player(arguments(request)), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Challenges (%d):\n\n", response.Count)
	for _, m := range response.Challenges {
		clock := "untimed"
		if m.TimeLimitSeconds > 0 {
			clock = fmt.Sprintf("%ds per player", m.TimeLimitSeconds)
		}
		fmt.Fprintf(&b, "- %s %s from %s [%s]\n", m.ID, m.GameType, m.Player1, clock)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleAnswerChallenge posts answer ("accept" or "decline") for a challenge
func (c *Client) handleAnswerChallenge(answer string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := arguments(request)
		matchID, _ := args["match_id"].(string)

		var match matchView
		path := "/api/matches/" + url.PathEscape(matchID) + "/" + answer
		if err := c.apiCall(ctx, "POST", path, c.player(args), nil, &match); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatMatch(&match)), nil
	}
}

func (c *Client) handleMatchState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)

	var match matchView
	if err := c.apiCall(ctx, "GET", "/api/matches/"+url.PathEscape(matchID), c.player(args), nil, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMatch(&match)), nil
}

func (c *Client) handleMakeMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)
	move, ok := args["move"]
	if !ok || move == nil {
		return mcp.NewToolResultError("move is required"), nil
	}
	// a move sent as a JSON string is accepted too
	if s, isString := move.(string); isString {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return mcp.NewToolResultError("move must be a JSON object"), nil
		}
		move = decoded
	}

	var result moveResultView
	body := map[string]any{"move": move}
	if err := c.apiCall(ctx, "POST", "/api/matches/"+url.PathEscape(matchID)+"/move", c.player(args), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleResign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)

	var result moveResultView
	if err := c.apiCall(ctx, "POST", "/api/matches/"+url.PathEscape(matchID)+"/resign", c.player(args), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, _ := args["match_id"].(string)

	query := url.Values{}
	if page, ok := args["page"].(float64); ok && page > 0 {
		query.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if order, _ := args["order"].(string); order != "" {
		query.Set("order", order)
	}
	path := "/api/matches/" + url.PathEscape(matchID) + "/history"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, "", nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}
