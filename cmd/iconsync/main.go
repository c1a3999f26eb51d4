// Package main provides the iconsync CLI: it downloads LaMetric icons by ID
// and uploads them to an AWTRIX device for the Stock Display blueprint.
//
// Run with: go run ./cmd/iconsync upload 192.168.1.100 --default-icons
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/config"
	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/fetcher"
	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/model"
	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/service"
	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/uploader"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "iconsync",
		Short:        "Download LaMetric icons and upload them to an AWTRIX device",
		SilenceUsage: true,
	}

	root.AddCommand(uploadCmd())
	root.AddCommand(listDefaultCmd())
	return root
}

func uploadCmd() *cobra.Command {
	var (
		defaultIcons bool
		customIcons  []string
	)

	cmd := &cobra.Command{
		Use:   "upload [device-address]",
		Short: "Fetch icons and push them to the device's /ICONS folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := ""
			if len(args) == 1 {
				address = args[0]
			}
			return runUpload(address, defaultIcons, customIcons)
		},
	}

	cmd.Flags().BoolVar(&defaultIcons, "default-icons", false,
		"Upload the recommended Stock Display icon set")
	cmd.Flags().StringArrayVar(&customIcons, "icon", nil,
		"Add a custom icon as name=id (repeatable), e.g. --icon my-icon=12345")
	return cmd
}

func listDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-default",
		Short: "List the recommended Stock Display icons",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Default recommended icons for Stock Display:")
			fmt.Println()
			for _, icon := range model.DefaultIcons() {
				fmt.Printf("  %-20s - ID: %d\n", icon.Label, icon.IconID)
			}
			return nil
		},
	}
}

func runUpload(address string, defaultIcons bool, customIcons []string) error {
	cfg, err := config.Load(os.Getenv("ICONSYNC_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Resolve the device address: CLI argument, then config, then prompt.
	if address == "" {
		address = cfg.Device.Address
	}
	if address == "" {
		address, err = promptDeviceAddress()
		if err != nil {
			return err
		}
	}
	if err := config.ValidateDeviceAddress(address); err != nil {
		return fmt.Errorf("invalid device address: %w", err)
	}

	requests, err := buildRequests(defaultIcons, customIcons)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return fmt.Errorf("no icons specified: use --default-icons or --icon name=id")
	}

	f := fetcher.New(cfg.Icons.BaseURL, cfg.Icons.Timeout,
		cfg.Icons.RatePerSecond, cfg.Icons.Burst, logger)
	u := uploader.New(address, cfg.Device.Timeout, logger)
	syncer := service.NewSyncer(f, u, service.NewInspector(), logger)

	// Ctrl+C cancels between icons; in-flight transfers finish first.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("cancelling after current icon...")
		cancel()
	}()

	fmt.Printf("Uploading %d icon(s) to AWTRIX at %s\n", len(requests), address)
	summary := syncer.Sync(ctx, requests)
	printSummary(summary)

	if !summary.AllSucceeded() {
		return fmt.Errorf("%d of %d icons failed", summary.Failed(), len(summary.Outcomes))
	}
	return nil
}

// buildRequests assembles the ordered work list: the default set first (when
// requested), then custom icons in flag order.
func buildRequests(defaultIcons bool, customIcons []string) ([]model.IconRequest, error) {
	var requests []model.IconRequest
	if defaultIcons {
		requests = append(requests, model.DefaultIcons()...)
	}
	for _, spec := range customIcons {
		req, err := parseIconSpec(spec)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// parseIconSpec parses a --icon value of the form name=id.
func parseIconSpec(spec string) (model.IconRequest, error) {
	name, idStr, ok := strings.Cut(spec, "=")
	if !ok || name == "" {
		return model.IconRequest{}, fmt.Errorf("invalid --icon %q: expected name=id", spec)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return model.IconRequest{}, fmt.Errorf("invalid --icon %q: ID must be a positive integer", spec)
	}
	return model.IconRequest{Label: name, IconID: id}, nil
}

func promptDeviceAddress() (string, error) {
	fmt.Println("AWTRIX Device IP Address")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Print("Enter the IP address or hostname of your AWTRIX device: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading device address: %w", err)
	}
	address := strings.TrimSpace(line)
	if address == "" {
		return "", fmt.Errorf("no device address provided")
	}
	return address, nil
}

func printSummary(summary model.BatchSummary) {
	fmt.Println()
	for _, o := range summary.Outcomes {
		if o.Succeeded {
			fmt.Printf("  ✓ %s (ID %d) -> %s (%s)\n",
				o.Label, o.IconID, model.Filename(o.IconID, o.Format), o.Detail)
		} else {
			fmt.Printf("  ✗ %s (ID %d): %s\n", o.Label, o.IconID, o.Detail)
		}
	}
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Summary: %d/%d icons uploaded successfully\n",
		summary.Succeeded(), len(summary.Outcomes))
}
