package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve FMR/SAFMR figures for a ZIP, county, city, or address",
}

var lookupZipCmd = &cobra.Command{
	Use:   "zip <zip>",
	Short: "Look up rents for a single ZIP code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}

		env, err := initLookupEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.svc.ByZip(ctx, strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var (
	lookupCountyName  string
	lookupCountyState string
)

var lookupCountyCmd = &cobra.Command{
	Use:   "county [fips]",
	Short: "Look up rents for a county by FIPS code or by --name/--state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}

		env, err := initLookupEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		switch {
		case len(args) == 1:
			res, err := env.svc.ByCounty(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return printJSON(res)
		case lookupCountyName != "" && lookupCountyState != "":
			res, err := env.svc.ByCountyName(ctx, lookupCountyName, lookupCountyState)
			if err != nil {
				return err
			}
			return printJSON(res)
		default:
			return eris.New("lookup county: pass a FIPS code or both --name and --state")
		}
	},
}

var lookupCityState string

var lookupCityCmd = &cobra.Command{
	Use:   "city <name>",
	Short: "Look up rents for a city's member ZIPs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}
		if lookupCityState == "" {
			return eris.New("lookup city: --state is required")
		}

		env, err := initLookupEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.svc.ByCity(ctx, args[0], lookupCityState)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var lookupAddressCmd = &cobra.Command{
	Use:   "address <address...>",
	Short: "Geocode an address and look up its rents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}

		env, err := initLookupEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.svc.ByAddress(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	lookupCountyCmd.Flags().StringVar(&lookupCountyName, "name", "", "county name (with --state)")
	lookupCountyCmd.Flags().StringVar(&lookupCountyState, "state", "", "two-letter state code (with --name)")
	lookupCityCmd.Flags().StringVar(&lookupCityState, "state", "", "two-letter state code (required)")
	lookupCmd.AddCommand(lookupZipCmd, lookupCountyCmd, lookupCityCmd, lookupAddressCmd)
	rootCmd.AddCommand(lookupCmd)
}
