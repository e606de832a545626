// Package main provides the entry point for the playlist2csv application.
//
// playlist2csv exports the tracks of a public Spotify playlist to a CSV file.
package main

import cmd "github.com/toozej/playlist2csv/cmd/playlist2csv"

// main is the entry point of the playlist2csv application.
// It delegates execution to the cmd package which handles all
// command-line interface functionality.
func main() {
	cmd.Execute()
}
