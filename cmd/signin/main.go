// signin is the terminal sign-in screen: phone verification, then login or signup against the user directory.
//
// Codes are sent by SMS, or shown on screen when OTP_RETURN_TO_CLIENT is set. The vehicle registered on signup
// comes from --vehicle-id, normally the id encoded in the QR code on the vehicle.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"soori/internal/config"
	"soori/internal/logging"
	"soori/internal/shell"
	userclient "soori/internal/user/client"
	"soori/internal/verification"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var vehicleID string
	var logFile string

	flagSet := pflag.NewFlagSet("signin", pflag.ContinueOnError)
	flagSet.StringVar(&vehicleID, "vehicle-id", "", "vehicle registered when the user signs up")
	flagSet.StringVar(&logFile, "log-file", "", "append logs to this file (overrides LOG_FILE)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if logFile == "" {
		logFile = cfg.LogFile
	}
	logger := zap.NewNop()
	if logFile != "" {
		if logger, err = logging.New(cfg.LogLevel, cfg.Env, logFile); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	deps, err := wire(ctx, cfg, clock, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	session := verification.NewSession(
		deps.Provider,
		userclient.New(cfg.DirectoryBaseURL),
		deps.Events,
		verification.WithClock(clock),
		verification.WithLogger(logging.Component(logger, "verification")),
		verification.WithCallTimeout(cfg.CallTimeoutDuration()),
	)
	defer session.Close()

	model := shell.NewModel(session)
	model.SetVehicleID(vehicleID)
	model.SetClock(clock)
	if deps.DevCodes {
		model.SetDevCodes(deps.Provider)
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	final, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(shell.Model); ok {
		result := m.Result()
		logger.Info("sign-in screen closed",
			zap.Stringer("phase", result.Phase),
			zap.Bool("verified", result.Verified),
		)
		if result.Phase == verification.PhaseLoginComplete {
			fmt.Printf("signed in as %s\n", verification.FormatE164(result.PhoneNumber))
		}
	}
	return nil
}
