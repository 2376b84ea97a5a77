// vsound runs a virtual sound card: a guest streams PCM and control
// messages over a websocket and the card plays them on a host backend.
//
// Usage:
//
//	vsound run                        # Serve with the current context
//	vsound run -c lab --backend rtp   # Override the backend
//	vsound guest music.pcm            # Play a raw PCM file as a guest
//	vsound settings list              # Show persisted device settings
//	vsound config context set lab --listen :7070
//
// Configuration is stored in ~/.giztoy/vsound/
package main

import (
	"os"

	"github.com/haivivi/vsound/cmd/vsound/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
