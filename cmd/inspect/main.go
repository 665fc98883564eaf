// Command inspect prints what the coordinator stored in badger as a table.
// It opens the database read-only and can run next to a live server.
package main

import (
	"fmt"
	"os"
	"planning-poker/repositories"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	// INSPECT_PREFIX narrows the dump, e.g. "task:" or "user:"
	Prefix string `envconfig:"INSPECT_PREFIX" default:""`
	// INSPECT_INDEXES also lists the secondary index keys
	Indexes bool `envconfig:"INSPECT_INDEXES" default:"false"`
	// INSPECT_COLOURS enables colorized output for better readability
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

var typeColours = map[string]color.Color{
	"ROOM":      color.FgCyan,
	"USER":      color.FgGreen,
	"TASK":      color.FgYellow,
	"VOTE":      color.FgMagenta,
	"INDEX":     color.FgGray,
	"CORRUPTED": color.FgRed,
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(2)
	}
	if !config.Colours {
		color.Disable()
	}

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Entity ID", "Namespace", "Detail", "Scores"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	counts := make(map[string]int)
	err = repositories.Dump(db, config.Prefix, config.Indexes, func(row database.InspectRow) {
		counts[row.Type]++
		table.Append([]string{
			row.Key,
			colourize(row.Type),
			row.Timestamp,
			shorten(row.EntityID),
			row.Namespace,
			row.Detail,
			row.Scores,
		})
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Dump failed: %v\n", err)
		os.Exit(1)
	}

	table.Render()
	summary := make([]string, 0, len(counts))
	for _, kind := range []string{"ROOM", "USER", "TASK", "VOTE", "INDEX", "CORRUPTED"} {
		if counts[kind] > 0 {
			summary = append(summary, fmt.Sprintf("%d %s", counts[kind], strings.ToLower(kind)))
		}
	}
	color.New(color.BgBlack, color.FgGreen).Println(strings.Join(summary, ", "))
}

func colourize(kind string) string {
	if c, ok := typeColours[kind]; ok {
		return c.Render(kind)
	}
	return kind
}

// shorten keeps the first 8 characters of an id for readability.
func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
