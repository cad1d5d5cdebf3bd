// Package main starts the go2pad server.
package main

import "flag"

// main is the entrypoint for the go2pad server.
func main() {
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	configPath := flag.String("config", "", "Robot YAML config (default: ROBOT_CONFIG or data/robot.yaml)")
	flag.Parse()

	if err := run(*debug, *configPath); err != nil {
		logFatal(err)
	}
}
