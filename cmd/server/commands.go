package main

import (
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
	"github.com/MegaGrindStone/playground-web-ui/internal/services"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func backendFor(cfgPath string) (services.Backend, error) {
	cfg, err := setup(cfgPath)
	if err != nil {
		return services.Backend{}, err
	}
	return services.NewBackend(cfg.APIBaseURL, &http.Client{}, nil), nil
}

func newModelsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models that can generate chat responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := backendFor(*cfgPath)
			if err != nil {
				return err
			}
			ms, err := backend.Models(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tINPUT TOKENS\tOUTPUT TOKENS")
			for _, m := range ms {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.DisplayName,
					humanize.Comma(int64(m.InputTokenLimit)), humanize.Comma(int64(m.OutputTokenLimit)))
			}
			return tw.Flush()
		},
	}
}

func newTagsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the references that can be attached to a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := backendFor(*cfgPath)
			if err != nil {
				return err
			}
			tags, err := backend.Tags(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tDESCRIPTION")
			for _, t := range tags {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, t.Type, t.Description)
			}
			return tw.Flush()
		},
	}
}

func newPartsCmd(cfgPath *string) *cobra.Command {
	parts := &cobra.Command{
		Use:   "parts",
		Short: "List the files and repositories stored by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := backendFor(*cfgPath)
			if err != nil {
				return err
			}
			ps, err := backend.Parts(cmd.Context())
			if err != nil {
				return err
			}
			return printParts(cmd.OutOrStdout(), ps)
		},
	}

	parts.AddCommand(
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a stored part",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				backend, err := backendFor(*cfgPath)
				if err != nil {
					return err
				}
				if err := backend.DeletePart(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete-all",
			Short: "Delete every stored part",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				backend, err := backendFor(*cfgPath)
				if err != nil {
					return err
				}
				if err := backend.DeleteAllParts(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Deleted all parts")
				return nil
			},
		},
	)
	return parts
}

func printParts(w io.Writer, ps []models.Part) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCONTENT TYPE\tSTATUS\tMESSAGE")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.ContentType, p.Status, p.StatusMessage)
	}
	return tw.Flush()
}
