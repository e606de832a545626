// Package main generates architecture diagrams for playlist2csv.
//
// Run it from the repository root; the .dot files are written under docs/.
package main

import (
	"os"
	"path/filepath"

	"github.com/blushft/go-diagrams/diagram"
	"github.com/blushft/go-diagrams/nodes/gcp"
	log "github.com/sirupsen/logrus"
)

const outputDir = "docs"

func main() {
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		log.WithError(err).Fatal("Failed to create docs directory")
	}
	if err := os.Chdir(outputDir); err != nil {
		log.WithError(err).Fatal("Failed to change to docs directory")
	}

	generateArchitectureDiagram()
	generateComponentDiagram()

	log.WithField("dir", filepath.Join(outputDir, "go-diagrams")).Info("Diagrams generated")
}

// generateArchitectureDiagram renders the export pipeline end to end
func generateArchitectureDiagram() {
	d, err := diagram.New(
		diagram.Filename("architecture"),
		diagram.Label("playlist2csv Architecture"),
		diagram.Direction("LR"),
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to create architecture diagram")
	}

	cli := gcp.Compute.ComputeEngine(diagram.NodeLabel("playlist2csv CLI"))
	tokenEndpoint := gcp.Network.Dns(diagram.NodeLabel("Spotify Accounts\n/api/token"))
	webAPI := gcp.Network.LoadBalancing(diagram.NodeLabel("Spotify Web API\n/v1/playlists"))
	credStore := gcp.Database.Sql(diagram.NodeLabel("Credential Store\nJSON file or SQLite"))
	csvFile := gcp.Database.Memorystore(diagram.NodeLabel("<name>_playlist.csv"))

	spotifyGroup := diagram.NewGroup("spotify").Label("Spotify").Add(tokenEndpoint, webAPI)

	d.Connect(cli, credStore, diagram.Forward()).
		Connect(cli, tokenEndpoint, diagram.Forward()).
		Connect(cli, webAPI, diagram.Forward()).
		Connect(cli, csvFile, diagram.Forward()).
		Group(spotifyGroup)

	if err := d.Render(); err != nil {
		log.WithError(err).Fatal("Failed to render architecture diagram")
	}
}

// generateComponentDiagram renders the internal packages and their dependencies
func generateComponentDiagram() {
	d, err := diagram.New(
		diagram.Filename("components"),
		diagram.Label("playlist2csv Components"),
		diagram.Direction("TB"),
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to create component diagram")
	}

	cmd := gcp.Compute.ComputeEngine(diagram.NodeLabel("cmd/playlist2csv"))
	exporter := gcp.Compute.ComputeEngine(diagram.NodeLabel("internal/export"))
	spotifyClient := gcp.Compute.ComputeEngine(diagram.NodeLabel("internal/spotify"))
	csvExport := gcp.Compute.ComputeEngine(diagram.NodeLabel("internal/csvexport"))
	duplicates := gcp.Compute.ComputeEngine(diagram.NodeLabel("internal/duplicate"))
	searcher := gcp.Compute.ComputeEngine(diagram.NodeLabel("internal/search"))
	fileStore := gcp.Database.Memorystore(diagram.NodeLabel("store: JSON file"))
	sqliteStore := gcp.Database.Sql(diagram.NodeLabel("store: SQLite"))

	pipeline := diagram.NewGroup("pipeline").Label("Export pipeline").
		Add(exporter, spotifyClient, csvExport, duplicates)
	stores := diagram.NewGroup("stores").Label("Credential stores").
		Add(fileStore, sqliteStore)

	d.Connect(cmd, exporter, diagram.Forward()).
		Connect(cmd, searcher, diagram.Forward()).
		Connect(exporter, spotifyClient, diagram.Forward()).
		Connect(exporter, duplicates, diagram.Forward()).
		Connect(exporter, csvExport, diagram.Forward()).
		Connect(exporter, fileStore, diagram.Forward()).
		Connect(exporter, sqliteStore, diagram.Forward()).
		Group(pipeline).
		Group(stores)

	if err := d.Render(); err != nil {
		log.WithError(err).Fatal("Failed to render component diagram")
	}
}
