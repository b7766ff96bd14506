package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"quoteflow/internal/domain"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered and unavailable extraction providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, registry, err := buildExtractor(cmd.Context(), "")
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, name := range svc.Providers() {
			marker := ""
			if name == svc.DefaultProvider() {
				marker = " (default)"
			}
			fmt.Fprintf(out, "%s\tready%s\n", name, marker)
		}

		unavailable := registry.Unavailable()
		names := make([]domain.ProviderName, 0, len(unavailable))
		for name := range unavailable {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
		for _, name := range names {
			fmt.Fprintf(out, "%s\tunavailable: %v\n", name, unavailable[name])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
