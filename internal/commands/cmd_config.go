package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/pulse/internal/core/config"
	"github.com/hay-kot/pulse/internal/printer"
)

type ConfigCmd struct {
	flags  *Flags
	format string
}

func NewConfigCmd(flags *Flags) *ConfigCmd {
	return &ConfigCmd{flags: flags}
}

func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Inspect and validate configuration",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "pulse config validate [--format json]",
				Description: "Checks quality thresholds, category lists, session settings, and every rule's conditions, actions and regex patterns.",
				Flags:       []cli.Flag{formatFlag(&cmd.format)},
				Action:      cmd.runValidate,
			},
			{
				Name:        "show",
				Usage:       "Print the effective configuration",
				UsageText:   "pulse config show",
				Description: "Prints the configuration after defaults and rules_file are applied, as YAML that can be saved back as a config file.",
				Action:      cmd.runShow,
			},
		},
	})

	return app
}

func (cmd *ConfigCmd) runShow(ctx context.Context, c *cli.Command) error {
	if cmd.flags.Config == nil {
		return errors.New("configuration not loaded")
	}

	enc := yaml.NewEncoder(c.Root().Writer)
	enc.SetIndent(2)
	if err := enc.Encode(cmd.flags.Config); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

type configReport struct {
	Path     string                     `json:"path"`
	Valid    bool                       `json:"valid"`
	Rules    int                        `json:"rules"`
	Errors   []configFieldError         `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

type configFieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (cmd *ConfigCmd) runValidate(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return errors.New("configuration not loaded")
	}

	report := configReport{
		Path:     cmd.flags.ConfigPath,
		Rules:    len(cfg.Rules),
		Warnings: cfg.Warnings(),
	}
	for _, fe := range fieldErrors(cfg.Validate()) {
		report.Errors = append(report.Errors, configFieldError{Field: fe.Field, Message: fe.Err.Error()})
	}
	report.Valid = len(report.Errors) == 0

	if cmd.format == "json" {
		if err := writeJSON(c.Root().Writer, report); err != nil {
			return err
		}
	} else {
		printReport(printer.Ctx(ctx), report)
	}

	if !report.Valid {
		return cli.Exit("", 1)
	}
	return nil
}

// fieldErrors flattens a validation error into field errors. Errors that
// are not criterio field errors become a single entry without a field.
func fieldErrors(err error) criterio.FieldErrors {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs
	}
	return criterio.FieldErrors{{Err: err}}
}

func printReport(p *printer.Printer, r configReport) {
	if len(r.Errors) > 0 {
		p.Section("Errors")
		for _, fe := range r.Errors {
			p.FailItem(orDash(fe.Field), fe.Message)
		}
		p.Printf("")
	}

	if len(r.Warnings) > 0 {
		p.Section("Warnings")
		for _, w := range r.Warnings {
			label := w.Category
			if w.Item != "" {
				label += " (" + w.Item + ")"
			}
			p.WarnItem(label, w.Message)
		}
		p.Printf("")
	}

	switch {
	case !r.Valid:
		p.Errorf("%d error(s), %d warning(s)", len(r.Errors), len(r.Warnings))
	case len(r.Warnings) > 0:
		p.Successf("Configuration is valid: %d rule(s), %d warning(s)", r.Rules, len(r.Warnings))
	default:
		p.Successf("Configuration is valid: %d rule(s)", r.Rules)
	}
}
