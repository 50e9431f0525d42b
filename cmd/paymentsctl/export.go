package main

import (
	"fmt"
	"os"

	"school-payment-service/models"
	"school-payment-service/repository"

	"github.com/spf13/cobra"
)

type exportOptions struct {
	out      string
	status   string
	schoolID string
	sort     string
	order    string
}

func (o exportOptions) filter() (models.TransactionFilter, error) {
	if o.status != "" && !models.Status(o.status).Valid() {
		return models.TransactionFilter{}, fmt.Errorf("invalid --status %q: use pending, success or failed", o.status)
	}
	if o.sort != "" && !repository.IsSortable(o.sort) {
		return models.TransactionFilter{}, fmt.Errorf("invalid --sort %q", o.sort)
	}
	if o.order != "" && o.order != "asc" && o.order != "desc" {
		return models.TransactionFilter{}, fmt.Errorf("invalid --order %q: use asc or desc", o.order)
	}
	return models.TransactionFilter{Status: o.status, SchoolID: o.schoolID, Sort: o.sort, Order: o.order}, nil
}

func exportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the transaction view to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := opts.filter()
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			file, err := os.Create(opts.out)
			if err != nil {
				return err
			}
			if err := a.Transactions.Export(cmd.Context(), f, file); err != nil {
				file.Close()
				os.Remove(opts.out)
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "transactions.xlsx", "output file")
	cmd.Flags().StringVar(&opts.status, "status", "", "filter by status (pending, success, failed)")
	cmd.Flags().StringVar(&opts.schoolID, "school-id", "", "filter by school id")
	cmd.Flags().StringVar(&opts.sort, "sort", repository.DefaultSort, "sort field")
	cmd.Flags().StringVar(&opts.order, "order", repository.DefaultOrder, "asc or desc")
	return cmd
}
