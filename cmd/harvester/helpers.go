package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/dje-harvester/internal/config"
	"github.com/kirillkom/dje-harvester/internal/core/domain"
	"github.com/kirillkom/dje-harvester/internal/observability/logging"
)

const serviceName = "dje-harvester"

// searchFlags are shared by every command that describes a search.
type searchFlags struct {
	from    string
	to      string
	section string
	term    string
	profile string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.from, "from", "", "First availability date, DD/MM/YYYY (default today)")
	flags.StringVar(&f.to, "to", "", "Last availability date, DD/MM/YYYY (default --from)")
	flags.StringVar(&f.section, "section", "", "DJE section (caderno) code")
	flags.StringVar(&f.term, "term", "", "Search term as typed in the DJE form")
	flags.StringVar(&f.profile, "profile", "", "Named search from HARVEST_PROFILE_FILE")
}

// resolveConfig layers env config, then the profile, then explicit flags.
func resolveConfig(cmd *cobra.Command, f *searchFlags, cfg config.Config) (config.Config, error) {
	if f.profile != "" {
		if cfg.HarvestProfileFile == "" {
			return cfg, fmt.Errorf("--profile %s given but HARVEST_PROFILE_FILE is not set", f.profile)
		}
		profiles, err := config.LoadProfiles(cfg.HarvestProfileFile)
		if err != nil {
			return cfg, err
		}
		profile, err := profiles.Profile(f.profile)
		if err != nil {
			return cfg, err
		}
		cfg = profile.Apply(cfg)
	}
	if cmd.Flags().Changed("section") {
		cfg.SectionCode = f.section
	}
	if cmd.Flags().Changed("term") {
		cfg.QueryTerm = f.term
	}
	return cfg, nil
}

func (f *searchFlags) request(cfg config.Config, now time.Time) domain.HarvestRequest {
	from := f.from
	if from == "" {
		from = now.Format("02/01/2006")
	}
	to := f.to
	if to == "" {
		to = from
	}
	return domain.HarvestRequest{
		DateStart:   from,
		DateEnd:     to,
		SectionCode: cfg.SectionCode,
		QueryTerm:   cfg.QueryTerm,
	}
}

func setupLogging(cfg config.Config) {
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel))
}
