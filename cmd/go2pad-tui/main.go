// Package main runs a terminal joystick that drives a go2pad server.
package main

import (
	"flag"
	"log"
	"os"
)

// main is the entrypoint for the terminal joystick.
func main() {
	server := flag.String("server", "http://localhost:8000", "go2pad server URL")
	size := flag.Float64("size", 0, "Joystick diameter in pixels (default: server setting)")
	flag.Parse()

	password := os.Getenv("UI_PASSWORD")
	if err := run(*server, password, *size); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}
