// Command nudgectl is an operator CLI for the nudge API: it mints access
// tokens, runs migrations and drives the task endpoints.
package main

import (
	"log"

	"github.com/phrazzld/nudge-api/cmd/nudgectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
