package replcraft

import (
	"context"
	"encoding/json"
)

// Location is a position in world coordinates.
type Location struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Size is the extent of a structure's inner region.
type Size struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Item is one inventory slot.
type Item struct {
	Index  int    `json:"index"`
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

// ItemRef addresses one slot of a container block inside a structure.
type ItemRef struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Z     int `json:"z"`
	Index int `json:"index"`
}

// Entity is a living entity inside a structure's region.
type Entity struct {
	Type   string  `json:"type"`
	Name   string  `json:"name"`
	Health float64 `json:"health"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

// FuelStats reports fuel balances and cost information.
type FuelStats struct {
	APIs       map[string]float64 `json:"apis"`
	Strategies []FuelStrategy     `json:"strategies"`
}

// FuelStrategy is one way the structure can obtain fuel and how much it can
// currently spend.
type FuelStrategy struct {
	Strategy    string  `json:"strategy"`
	Spendable   float64 `json:"spendable"`
	Generatable float64 `json:"generatableEstimate"`
}

// The operation catalogue. Each method builds one request, awaits the
// response, and projects the relevant field. Coordinates are relative to the
// structure's inner origin unless noted.

// GetBlock returns the block at (x, y, z).
func (sc *Context) GetBlock(ctx context.Context, x, y, z int) (string, error) {
	res, err := sc.call(ctx, map[string]any{"action": "get_block", "x": x, "y": y, "z": z})
	if err != nil {
		return "", err
	}
	var out struct {
		Block string `json:"block"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return "", err
	}
	return out.Block, nil
}

// SetBlock places a block at (x, y, z).
func (sc *Context) SetBlock(ctx context.Context, x, y, z int, block string) error {
	_, err := sc.call(ctx, map[string]any{"action": "set_block", "x": x, "y": y, "z": z, "block": block})
	return err
}

// GetSize returns the structure's inner dimensions.
func (sc *Context) GetSize(ctx context.Context) (Size, error) {
	var out Size
	res, err := sc.call(ctx, map[string]any{"action": "get_size"})
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(res, &out)
	return out, err
}

// GetLocation returns the structure's origin in world coordinates.
func (sc *Context) GetLocation(ctx context.Context) (Location, error) {
	var out Location
	res, err := sc.call(ctx, map[string]any{"action": "get_location"})
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(res, &out)
	return out, err
}

// Watch subscribes to block updates for the block at (x, y, z).
func (sc *Context) Watch(ctx context.Context, x, y, z int) error {
	_, err := sc.call(ctx, map[string]any{"action": "watch", "x": x, "y": y, "z": z})
	return err
}

// Unwatch cancels a Watch.
func (sc *Context) Unwatch(ctx context.Context, x, y, z int) error {
	_, err := sc.call(ctx, map[string]any{"action": "unwatch", "x": x, "y": y, "z": z})
	return err
}

// WatchAll subscribes to block updates for the whole structure.
func (sc *Context) WatchAll(ctx context.Context) error {
	_, err := sc.call(ctx, map[string]any{"action": "watch_all"})
	return err
}

// UnwatchAll cancels a WatchAll.
func (sc *Context) UnwatchAll(ctx context.Context) error {
	_, err := sc.call(ctx, map[string]any{"action": "unwatch_all"})
	return err
}

// Poll asks the server to re-scan the block at (x, y, z) periodically,
// reporting changes as block updates with cause "poll".
func (sc *Context) Poll(ctx context.Context, x, y, z int) error {
	_, err := sc.call(ctx, map[string]any{"action": "poll", "x": x, "y": y, "z": z})
	return err
}

// Unpoll cancels a Poll.
func (sc *Context) Unpoll(ctx context.Context, x, y, z int) error {
	_, err := sc.call(ctx, map[string]any{"action": "unpoll", "x": x, "y": y, "z": z})
	return err
}

// PollAll polls the whole structure.
func (sc *Context) PollAll(ctx context.Context) error {
	_, err := sc.call(ctx, map[string]any{"action": "poll_all"})
	return err
}

// UnpollAll cancels a PollAll.
func (sc *Context) UnpollAll(ctx context.Context) error {
	_, err := sc.call(ctx, map[string]any{"action": "unpoll_all"})
	return err
}

// GetInventory lists the contents of the container block at (x, y, z).
func (sc *Context) GetInventory(ctx context.Context, x, y, z int) ([]Item, error) {
	res, err := sc.call(ctx, map[string]any{"action": "get_inventory", "x": x, "y": y, "z": z})
	if err != nil {
		return nil, err
	}
	var out struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// MoveItem moves amount items from one container slot to another. amount 0
// moves the whole stack.
func (sc *Context) MoveItem(ctx context.Context, source ItemRef, target ItemRef, amount int) error {
	_, err := sc.call(ctx, map[string]any{
		"action":       "move_item",
		"amount":       amount,
		"index":        source.Index,
		"source_x":     source.X,
		"source_y":     source.Y,
		"source_z":     source.Z,
		"target_index": target.Index,
		"target_x":     target.X,
		"target_y":     target.Y,
		"target_z":     target.Z,
	})
	return err
}

// GetPowerLevel returns the redstone power level at (x, y, z).
func (sc *Context) GetPowerLevel(ctx context.Context, x, y, z int) (int, error) {
	res, err := sc.call(ctx, map[string]any{"action": "get_power_level", "x": x, "y": y, "z": z})
	if err != nil {
		return 0, err
	}
	var out struct {
		Power int `json:"power"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return 0, err
	}
	return out.Power, nil
}

// GetEntities lists living entities inside the structure's region.
func (sc *Context) GetEntities(ctx context.Context) ([]Entity, error) {
	res, err := sc.call(ctx, map[string]any{"action": "get_entities"})
	if err != nil {
		return nil, err
	}
	var out struct {
		Entities []Entity `json:"entities"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

// Craft combines the given ingredient slots using the structure's crafting
// table.
func (sc *Context) Craft(ctx context.Context, ingredients []ItemRef) error {
	_, err := sc.call(ctx, map[string]any{"action": "craft", "ingredients": ingredients})
	return err
}

// Tell sends a private message to a player.
func (sc *Context) Tell(ctx context.Context, target, message string) error {
	_, err := sc.call(ctx, map[string]any{"action": "tell", "target": target, "message": message})
	return err
}

// Pay transfers currency from the structure's account to a player.
func (sc *Context) Pay(ctx context.Context, target string, amount float64) error {
	_, err := sc.call(ctx, map[string]any{"action": "pay", "target": target, "amount": amount})
	return err
}

// Turn rotates the directional block at (x, y, z) to face direction.
func (sc *Context) Turn(ctx context.Context, x, y, z int, direction string) error {
	_, err := sc.call(ctx, map[string]any{"action": "turn", "x": x, "y": y, "z": z, "direction": direction})
	return err
}

// FuelInfo returns the structure's fuel balances and API costs.
func (sc *Context) FuelInfo(ctx context.Context) (FuelStats, error) {
	var out FuelStats
	res, err := sc.call(ctx, map[string]any{"action": "fuel_info"})
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(res, &out)
	return out, err
}

// SetFuelLimit caps how much fuel this connection may spend per minute.
// A limit of 0 removes the cap.
func (sc *Context) SetFuelLimit(ctx context.Context, limit float64) error {
	_, err := sc.call(ctx, map[string]any{"action": "set_fuel_limit", "limit": limit})
	return err
}
