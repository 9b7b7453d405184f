package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rfpquote/backend/internal/domain"
	"github.com/spf13/cobra"
)

func newSearchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY...",
		Short: "Find the best catalog product for one requirement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service, closeDeps, err := opts.service(ctx, cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeDeps()

			result, err := service.Search(ctx, opts.vendors, strings.Join(args, " "), 0)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newAvailabilityCmd(opts *options) *cobra.Command {
	var requirementsFile string

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Partition RFP line items into per-vendor matches",
		Long: `availability reads a JSON array of {"description": ..., "qty": ...} items
and reports which vendor product covers each one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			requirements, err := readRequirements(requirementsFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			service, closeDeps, err := opts.service(ctx, cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeDeps()

			report, err := service.CheckAvailability(ctx, opts.vendors, requirements)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVarP(&requirementsFile, "requirements", "r", "", "JSON file with the requirement items")
	_ = cmd.MarkFlagRequired("requirements")
	return cmd
}

func newProductsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List catalog products per vendor with dimensions stripped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service, closeDeps, err := opts.service(ctx, cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeDeps()

			products, err := service.CatalogProducts(ctx, opts.vendors)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), products)
		},
	}
}

func readRequirements(path string) ([]domain.RequirementItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requirements: %w", err)
	}

	var requirements []domain.RequirementItem
	if err := json.Unmarshal(data, &requirements); err != nil {
		return nil, fmt.Errorf("failed to parse requirements %s: %w", path, err)
	}
	return requirements, nil
}
