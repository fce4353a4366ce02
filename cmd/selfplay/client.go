package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wricardo/online-games/game/service"
)

// MatchState is the part of a match view selfplay needs. Moves stay raw so
// they can be sent back unchanged.
type MatchState struct {
	ID         string              `json:"id"`
	GameType   string              `json:"game_type"`
	Status     service.MatchStatus `json:"status"`
	Winner     int                 `json:"winner"`
	WinnerID   string              `json:"winner_id"`
	EndReason  string              `json:"end_reason"`
	IsYourTurn bool                `json:"is_your_turn"`
	ValidMoves []json.RawMessage   `json:"valid_moves"`
	MoveCount  int                 `json:"move_count"`
}

// MoveResponse mirrors service.MoveResult
type MoveResponse struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	GameOver bool        `json:"game_over"`
	Match    *MatchState `json:"match"`
}

// Client talks to the REST API on behalf of any player
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path, player string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Player-ID", player)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func matchPath(id string, suffix string) string {
	return "/api/matches/" + url.PathEscape(id) + suffix
}

// CreateMatch opens a match with player in seat 1
func (c *Client) CreateMatch(ctx context.Context, player, preset string) (*MatchState, error) {
	var match MatchState
	body := map[string]string{"preset_id": preset}
	if err := c.do(ctx, http.MethodPost, "/api/matches", player, body, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

// JoinMatch seats player in seat 2
func (c *Client) JoinMatch(ctx context.Context, id, player string) (*MatchState, error) {
	var match MatchState
	if err := c.do(ctx, http.MethodPost, matchPath(id, "/join"), player, nil, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

// GetState returns the match as player sees it
func (c *Client) GetState(ctx context.Context, id, player string) (*MatchState, error) {
	var match MatchState
	if err := c.do(ctx, http.MethodGet, matchPath(id, ""), player, nil, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

// Move submits a raw move payload for player
func (c *Client) Move(ctx context.Context, id, player string, move json.RawMessage) (*MoveResponse, error) {
	var result MoveResponse
	body := map[string]json.RawMessage{"move": move}
	if err := c.do(ctx, http.MethodPost, matchPath(id, "/move"), player, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
