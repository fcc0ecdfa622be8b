package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// WatchRooms reloads rooms.yaml on change and calls onUpdate with the latest config.
// It performs an initial load before entering the watch loop.
func WatchRooms(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*RoomsConfig)) error {
	if path == "" {
		path = "configs/rooms.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadRoomsConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				cfg, err := LoadRoomsConfig(path)
				if err != nil {
					if logger != nil {
						logger.Warn().Err(err).Str("path", path).Msg("rooms config reload rejected")
					}
					continue
				}
				lastMod = info.ModTime()
				if logger != nil {
					logger.Info().Str("summary", cfg.String()).Msg("rooms config reloaded")
				}
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
