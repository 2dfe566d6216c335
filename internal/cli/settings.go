package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"ranpulse/core-go/internal/config"
	"ranpulse/core-go/internal/source"
)

var (
	settingsServer       string
	settingsAnomaliesURL string
	settingsTowersURL    string
	settingsUseJSON      bool
	settingsClearJSON    bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the data source overrides",
	Long: `The overrides (custom anomalies location, custom towers location and
the JSON towers switch) are stored in settings.path and take precedence over
the configuration file. With --server the running server is asked to reload
its sources after a change.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored overrides and the effective sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return showSettings(cfg, config.NewStore(cfg.SettingsPath), cmd.OutOrStdout())
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := config.NewStore(cfg.SettingsPath)
		st, err := store.Load()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if !flags.Changed("anomalies-url") && !flags.Changed("towers-url") && !flags.Changed("use-json") && !settingsClearJSON {
			return errors.New("nothing to change: pass --anomalies-url, --towers-url, --use-json or --clear-use-json")
		}
		if flags.Changed("anomalies-url") {
			st.AnomaliesURL = settingsAnomaliesURL
		}
		if flags.Changed("towers-url") {
			st.TowersURL = settingsTowersURL
		}
		if flags.Changed("use-json") {
			v := settingsUseJSON
			st.UseJSON = &v
		}
		if settingsClearJSON {
			st.UseJSON = nil
		}
		if err := st.Validate(); err != nil {
			return err
		}
		if err := store.Save(st); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", store.Path())
		return notifyReload(cmd.Context(), cmd.OutOrStdout())
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every override",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := config.NewStore(cfg.SettingsPath)
		if err := store.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Overrides cleared")
		return notifyReload(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	settingsCmd.PersistentFlags().StringVar(&settingsServer, "server", "", "ranpulse server to reload after a change")

	settingsSetCmd.Flags().StringVar(&settingsAnomaliesURL, "anomalies-url", "", "anomalies location (http(s) URL or file path; empty clears)")
	settingsSetCmd.Flags().StringVar(&settingsTowersURL, "towers-url", "", "towers location (http(s) URL or file path; empty clears)")
	settingsSetCmd.Flags().BoolVar(&settingsUseJSON, "use-json", false, "serve towers from JSON")
	settingsSetCmd.Flags().BoolVar(&settingsClearJSON, "clear-use-json", false, "drop the JSON towers override")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

// SettingsLoader is the read side of config.Store.
type SettingsLoader interface {
	Load() (config.Settings, error)
}

func showSettings(cfg config.Config, store SettingsLoader, out io.Writer) error {
	st, err := store.Load()
	if err != nil {
		return err
	}
	useJSON := "unset"
	if st.UseJSON != nil {
		useJSON = fmt.Sprint(*st.UseJSON)
	}
	fmt.Fprintf(out, "custom_anomalies_url: %s\n", orNone(st.AnomaliesURL))
	fmt.Fprintf(out, "custom_towers_url:    %s\n", orNone(st.TowersURL))
	fmt.Fprintf(out, "override_use_json:    %s\n", useJSON)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "mode:                 %s\n", cfg.Sources.Mode)
	fmt.Fprintf(out, "anomalies from:       %s\n", orNone(source.AnomaliesURL(cfg, st)))
	fmt.Fprintf(out, "towers from json:     %v (%s)\n", source.UseJSONTowers(cfg, st), orNone(source.TowersURL(cfg, st)))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func notifyReload(ctx context.Context, out io.Writer) error {
	if settingsServer == "" {
		return nil
	}
	if err := newAPIClient(settingsServer, 30*time.Second).reload(ctx); err != nil {
		return fmt.Errorf("reload %s: %w", settingsServer, err)
	}
	fmt.Fprintf(out, "Reloaded sources on %s\n", settingsServer)
	return nil
}
