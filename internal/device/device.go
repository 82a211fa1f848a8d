package device

import "strings"

// Direction is the stream direction of an audio device
type Direction string

const (
	// Output devices play audio (speakers, headphones)
	Output Direction = "output"
	// Input devices capture audio (microphones)
	Input Direction = "input"
)

// Directions lists both directions in the order they are processed
var Directions = []Direction{Output, Input}

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == Output || d == Input
}

// Transport is the connection type reported by the host for a device
type Transport string

const (
	BuiltIn     Transport = "builtIn"
	USB         Transport = "usb"
	Bluetooth   Transport = "bluetooth"
	Virtual     Transport = "virtual"
	AirPlay     Transport = "airPlay"
	DisplayPort Transport = "displayPort"
	HDMI        Transport = "hdmi"
	Thunderbolt Transport = "thunderbolt"
	Unknown     Transport = "unknown"
)

// Sticky reports whether devices of this transport stay online in the
// catalog while temporarily missing from enumeration.
func (t Transport) Sticky() bool {
	return t == Bluetooth || t == AirPlay
}

// AudioDevice is one entry of the device catalog
type AudioDevice struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	Transport Transport `json:"transportType"`
	IsActive  bool      `json:"isActive"`
	IsOnline  bool      `json:"isOnline"`
	IsStarred bool      `json:"isStarred"`
	IsHidden  bool      `json:"isHidden"`
	Shortcut  string    `json:"shortcut,omitempty"`
}

// MakeID builds the catalog key for a hardware UID in a direction.
// The same UID commonly exposes both directions, so the key is qualified.
func MakeID(dir Direction, uid string) string {
	return string(dir) + ":" + uid
}

// SplitID is the inverse of MakeID
func SplitID(id string) (Direction, string, bool) {
	dir, uid, ok := strings.Cut(id, ":")
	if !ok || !Direction(dir).Valid() {
		return "", "", false
	}
	return Direction(dir), uid, true
}

// Less orders devices for display: starred first, then by name.
// Callers use a stable sort so equal names keep their enumeration order.
func Less(a, b AudioDevice) bool {
	if a.IsStarred != b.IsStarred {
		return a.IsStarred
	}
	return a.Name < b.Name
}
