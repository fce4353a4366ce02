// Package config loads match presets.
//
// A preset is a small JSON file in the configs directory that names a game
// type and the match settings to use with it:
//
//	{
//	  "name": "Blitz Chess",
//	  "description": "Five minutes per player for the whole game",
//	  "game_type": "chess",
//	  "time_limit_seconds": 300,
//	  "ranked": true
//	}
//
// The file name without extension is the preset id clients pass when they
// create a match. Every registered game type is also available as an
// untimed preset whose id is the game type itself ("chess", "checkers",
// "connect_four", "battleship"); a file with the same name replaces it.
//
// Presets are validated on load: the game type must be registered and the
// time limit must not be negative. Invalid files are skipped by ListConfigs
// and rejected by LoadConfig with ErrInvalidConfig.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	preset, err := manager.LoadConfig("blitz_chess")
//	presets, err := manager.ListConfigs()
//
// Loaded presets are cached. RefreshCache forces the next load to read the
// files again.
package config
