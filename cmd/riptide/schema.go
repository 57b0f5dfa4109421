package main

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/riptide-engine/riptide/internal/models"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema for CrawlOptions",
	Long: `Prints the JSON schema describing the crawl options object accepted by
/crawl, /deepsearch, and /stream/crawl's "options" field, generated from
the same struct tags that drive option defaulting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := &jsonschema.Reflector{
			ExpandedStruct: true,
			DoNotReference: true,
		}
		schema := reflector.Reflect(&models.CrawlOptions{})
		out, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling schema: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}
