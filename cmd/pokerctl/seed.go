package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var seedFileFlag string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert documents from a YAML fixture",
	Long: `Insert documents from a YAML fixture mapping collection names to lists of
documents.

Example fixture:
  leaderboard:
    - username: Nova
      chips: 125000
  profile:
    - username: nova
      bio: all in

Examples:
  pokerctl seed --file fixtures.yaml
  pokerctl seed --file - < fixtures.yaml`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFileFlag, "file", "f", "", "Fixture file, or - for stdin")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}

// Fixture maps collection names to the documents to insert.
type Fixture map[string][]map[string]any

func parseFixture(r io.Reader) (Fixture, error) {
	var fixture Fixture
	if err := yaml.NewDecoder(r).Decode(&fixture); err != nil {
		if err == io.EOF {
			return Fixture{}, nil
		}
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return fixture, nil
}

// Collections returns the fixture's collection names in sorted order.
func (f Fixture) Collections() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type documentCreator interface {
	CreateDocument(ctx context.Context, collection string, fields map[string]any) (string, error)
}

// applyFixture inserts every document and returns the count per collection.
// It stops at the first failure.
func applyFixture(ctx context.Context, store documentCreator, fixture Fixture) (map[string]int, error) {
	counts := make(map[string]int, len(fixture))
	for _, collection := range fixture.Collections() {
		for i, fields := range fixture[collection] {
			if _, err := store.CreateDocument(ctx, collection, fields); err != nil {
				return counts, fmt.Errorf("%s[%d]: %w", collection, i, err)
			}
			counts[collection]++
		}
	}
	return counts, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if seedFileFlag != "-" {
		f, err := os.Open(seedFileFlag)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	fixture, err := parseFixture(in)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := applyFixture(ctx, store, fixture)
	for _, collection := range fixture.Collections() {
		if counts[collection] > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d inserted\n", collection, counts[collection])
		}
	}
	return err
}
