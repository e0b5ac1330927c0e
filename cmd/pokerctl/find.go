package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	findWhereFlag []string
	findLimitFlag int
)

var findCmd = &cobra.Command{
	Use:   "find <collection>",
	Short: "Print documents of a collection as JSON lines",
	Long: `Print documents of a collection as JSON lines, in insertion order.

Examples:
  pokerctl find leaderboard --limit 50
  pokerctl find profile --where username=nova --limit 1
  pokerctl find purchase --where package_id=pro`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringArrayVar(&findWhereFlag, "where", nil, "Equality filter key=value (repeatable)")
	findCmd.Flags().IntVar(&findLimitFlag, "limit", 0, "Maximum documents to print (0 = all)")
	rootCmd.AddCommand(findCmd)
}

// parseWhere turns key=value pairs into a filter. Values that parse as
// integers or booleans are matched as such.
func parseWhere(pairs []string) (map[string]any, error) {
	filter := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --where %q: expected key=value", pair)
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			filter[key] = n
		} else if b, err := strconv.ParseBool(value); err == nil {
			filter[key] = b
		} else {
			filter[key] = value
		}
	}
	return filter, nil
}

func runFind(cmd *cobra.Command, args []string) error {
	filter, err := parseWhere(findWhereFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := store.GetDocuments(ctx, args[0], filter, findLimitFlag)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	return nil
}
