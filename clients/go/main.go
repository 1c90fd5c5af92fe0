// Atrium CLI - Command line client for the Atrium admin API
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/atrium-chat/atrium/clients/go/atrium"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("ATRIUM_URL")
	client := atrium.NewClient(baseURL)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "create-room":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: atrium create-room <name> <DM|GROUP> <owner_agent_id>")
			os.Exit(1)
		}
		resp, err := client.CreateRoom(os.Args[2], os.Args[3], os.Args[4])
		exitOnError(err)
		fmt.Printf("Created room: %s\n", resp.ID)

	case "room":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: atrium room <room_id>")
			os.Exit(1)
		}
		resp, err := client.GetRoom(os.Args[2])
		exitOnError(err)
		printJSON(resp)

	case "mappings":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: atrium mappings <room_id>")
			os.Exit(1)
		}
		resp, err := client.GetRoomMappings(os.Args[2])
		exitOnError(err)
		for _, m := range resp.Mappings {
			fmt.Printf("  %s -> %s\n", m.AgentID, m.AgentRoomID)
		}

	case "map":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: atrium map <room_id> <agent_id>")
			os.Exit(1)
		}
		resp, err := client.EnsureMapping(os.Args[2], os.Args[3])
		exitOnError(err)
		fmt.Printf("Agent room: %s\n", resp.AgentRoomID)

	case "connect":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: atrium connect <agent_a_id> <agent_b_id>")
			os.Exit(1)
		}
		resp, err := client.Connect(atrium.ConnectRequest{
			AgentAID: os.Args[2],
			AgentBID: os.Args[3],
		})
		exitOnError(err)
		printJSON(resp)

	case "user":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: atrium user <user_id> [display_name]")
			os.Exit(1)
		}
		displayName := ""
		if len(os.Args) > 3 {
			displayName = os.Args[3]
		}
		resp, err := client.ResolveUser(os.Args[2], displayName)
		exitOnError(err)
		fmt.Printf("Pseudo-agent: %s\n", resp.PseudoAgentID)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Atrium CLI - multi-agent room administration

Usage: atrium <command> [options]

Commands:
  create-room <name> <DM|GROUP> <owner>   Create a conceptual room
  room <room_id>                          Fetch a conceptual room
  mappings <room_id>                      List agent mappings for a room
  map <room_id> <agent_id>                Ensure an agent's mirrored room
  connect <agent_a> <agent_b>             Connect two agents directly
  user <user_id> [name]                   Resolve a human user to a pseudo-agent
  health                                  Check server health

Environment:
  ATRIUM_URL    Server URL (default: http://localhost:8080)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
