package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"empirepilot/internal/enhance"
)

func newsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news",
		Short: "News feed tools",
	}

	var asJSON bool
	enhanceCmd := &cobra.Command{
		Use:   "enhance <text...>",
		Short: "Show the post a site update would become",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("text is empty")
			}
			res := enhance.Enhance(text)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintf(out, "template: %s\n\n%s\n\n%s\n", res.Template, res.Text, strings.Join(res.Hashtags, " "))
			return nil
		},
	}
	enhanceCmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	cmd.AddCommand(enhanceCmd)
	return cmd
}
