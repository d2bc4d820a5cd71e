package main

import (
	"github.com/spf13/cobra"

	"example.com/playdate/internal/api"
	"example.com/playdate/internal/catalog"
)

func newPickerCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "picker",
		Short: "Print the forms, slots, contexts, and materials a selection can use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			picker := catalog.NewPicker(store)
			vocab, err := picker.Vocabulary(cmd.Context())
			if err != nil {
				return err
			}
			materials, err := picker.Materials(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), api.PickerResponse{
				Forms:     vocab.Forms,
				Slots:     vocab.Slots,
				Contexts:  vocab.Contexts,
				Materials: materials,
			})
		},
	}
}
