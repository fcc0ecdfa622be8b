package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// RoomConfig represents a single room in rooms.yaml.
type RoomConfig struct {
	ID        int64  `yaml:"id"`
	Name      string `yaml:"name"`
	Floor     int    `yaml:"floor"`
	Capacity  int    `yaml:"capacity"`
	Equipment string `yaml:"equipment"`
	IsActive  *bool  `yaml:"is_active,omitempty"`
}

// Active reports the room's active flag; rooms are active unless stated otherwise.
func (r RoomConfig) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// RoomsConfig is the root configuration for rooms.yaml.
type RoomsConfig struct {
	Rooms []RoomConfig `yaml:"rooms"`
}

// LoadRoomsConfig loads and validates the room catalog from a YAML file.
func LoadRoomsConfig(path string) (*RoomsConfig, error) {
	if path == "" {
		path = "configs/rooms.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rooms config: %w", err)
	}

	return ParseRoomsConfig(data)
}

// ParseRoomsConfig decodes and validates rooms.yaml content.
func ParseRoomsConfig(data []byte) (*RoomsConfig, error) {
	var cfg RoomsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rooms config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate rooms config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *RoomsConfig) Validate() error {
	if len(c.Rooms) == 0 {
		return fmt.Errorf("no rooms defined")
	}

	ids := make(map[int64]bool)
	names := make(map[string]bool)

	for i, room := range c.Rooms {
		if room.ID <= 0 {
			return fmt.Errorf("room[%d]: id must be positive, got %d", i, room.ID)
		}
		if ids[room.ID] {
			return fmt.Errorf("room[%d]: duplicate id %d", i, room.ID)
		}
		ids[room.ID] = true

		if room.Name == "" {
			return fmt.Errorf("room[%d]: name is required", i)
		}
		if names[room.Name] {
			return fmt.Errorf("room[%d]: duplicate name '%s'", i, room.Name)
		}
		names[room.Name] = true

		if room.Floor <= 0 {
			return fmt.Errorf("room[%d]: floor must be positive, got %d", i, room.Floor)
		}
		if room.Capacity <= 0 {
			return fmt.Errorf("room[%d]: capacity must be positive, got %d", i, room.Capacity)
		}
	}

	return nil
}

// GetRoomByID returns room config by ID.
func (c *RoomsConfig) GetRoomByID(id int64) *RoomConfig {
	for i := range c.Rooms {
		if c.Rooms[i].ID == id {
			return &c.Rooms[i]
		}
	}
	return nil
}

// Floors returns the distinct floors of active rooms in ascending order.
func (c *RoomsConfig) Floors() []int {
	seen := make(map[int]struct{})
	floors := make([]int, 0)
	for _, room := range c.Rooms {
		if !room.Active() {
			continue
		}
		if _, ok := seen[room.Floor]; ok {
			continue
		}
		seen[room.Floor] = struct{}{}
		floors = append(floors, room.Floor)
	}
	sort.Ints(floors)
	return floors
}

// String returns a summary of the configuration.
func (c *RoomsConfig) String() string {
	active := 0
	for _, room := range c.Rooms {
		if room.Active() {
			active++
		}
	}
	return fmt.Sprintf("RoomsConfig: %d rooms (%d active) on %d floors",
		len(c.Rooms), active, len(c.Floors()))
}
