package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"flightsurety-service/internal/domain/entity"
)

type flightFlags struct {
	airline     string
	designator  string
	scheduledTo uint64
}

func (f *flightFlags) add(flags *pflag.FlagSet) {
	flags.StringVar(&f.airline, "airline", "", "airline account (0x-prefixed hex)")
	flags.StringVar(&f.designator, "designator", "", "flight designator")
	flags.Uint64Var(&f.scheduledTo, "scheduled-to", 0, "scheduled departure (unix seconds)")
}

func (f *flightFlags) parse() (entity.Account, error) {
	if f.designator == "" {
		return entity.ZeroAccount, fmt.Errorf("--designator is required")
	}
	return entity.ParseAccount(f.airline)
}

func keysCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "keys",
		Short: "Derives ledger composite keys",
	}
	c.AddCommand(flightKeyCommand(), requestKeyCommand())
	return c
}

func flightKeyCommand() *cobra.Command {
	var f flightFlags
	c := &cobra.Command{
		Use:   "flight",
		Short: "Prints the key of a flight",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			airline, err := f.parse()
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), entity.FlightKey(airline, f.designator, f.scheduledTo).Hex())
			return nil
		},
	}
	f.add(c.Flags())
	return c
}

func requestKeyCommand() *cobra.Command {
	var (
		f     flightFlags
		index uint8
	)
	c := &cobra.Command{
		Use:   "request",
		Short: "Prints the key of an oracle status request",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if index >= entity.OracleIndexRange {
				return fmt.Errorf("--index must be below %d", entity.OracleIndexRange)
			}
			airline, err := f.parse()
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), entity.RequestKey(index, airline, f.designator, f.scheduledTo).Hex())
			return nil
		},
	}
	f.add(c.Flags())
	c.Flags().Uint8Var(&index, "index", 0, "oracle index of the request")
	return c
}
