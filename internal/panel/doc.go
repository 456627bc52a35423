// Package panel serves the live sensor dashboard as embedded assets.
//
// The page opens a WebSocket to the relay, requests the device
// configuration on connect, plots readings as they arrive and sends
// setInterval, setLightThreshold and setSoundThreshold commands.
//
// Assets are embedded with go:embed so the binary has no runtime file
// dependency. A directory may be supplied instead for development.
package panel
