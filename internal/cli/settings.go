package cli

import (
	"fmt"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sadopc/tinynotes/internal/config"
	"github.com/sadopc/tinynotes/internal/store"
)

var settingKeys = []string{
	config.SettingSnapMinutes,
	config.SettingMinDurationMinutes,
	config.SettingDayStartHour,
}

func newSettingsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			settings, err := s.GetAllSettings()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, st := range settings {
				fmt.Fprintf(tw, "%s\t%s\n", st.Key, st.Value)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "set KEY VALUE",
		Short:     "Change a setting",
		Args:      cobra.ExactArgs(2),
		ValidArgs: settingKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := validateSetting(o.cfg.Schedule, key, value); err != nil {
				return err
			}

			s, err := o.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.SetSetting(key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
			return nil
		},
	})
	return cmd
}

// validateSetting checks that value is an integer the schedule accepts for key.
func validateSetting(sched config.ScheduleConfig, key, value string) error {
	if !slices.Contains(settingKeys, key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("setting %s: %q is not a number", key, value)
	}
	switch key {
	case config.SettingSnapMinutes:
		sched.SnapMinutes = n
	case config.SettingMinDurationMinutes:
		sched.MinDurationMinutes = n
	case config.SettingDayStartHour:
		sched.DayStartHour = n
	}
	return sched.Validate()
}

func (o *rootOptions) openStore() (*store.Store, error) {
	s, err := store.Open(o.cfg.Database.Driver, o.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
