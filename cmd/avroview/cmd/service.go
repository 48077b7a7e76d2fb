/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ssargent/avroview/pkg/config"
)

const serviceName = "avroview.service"

// Overridable for tests.
var (
	unitPath   = "/etc/systemd/system/" + serviceName
	runCommand = execCommand
	isRoot     = func() bool { return os.Geteuid() == 0 }
)

func newServiceCmd() *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage avroview as a systemd service",
		Long: `Manage avroview as a systemd service. This command provides
native integration with systemd for production deployments.`,
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install avroview as a systemd service",
		Long: `Install avroview as a systemd service.

This will:
- Create or use existing configuration
- Generate the systemd unit file
- Enable and optionally start the service

Examples:
  sudo avroview service install
  sudo avroview service install --user avroview --port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isRoot() {
				return fmt.Errorf("service install requires root privileges (run with sudo)")
			}

			user, _ := cmd.Flags().GetString("user")
			binary, _ := cmd.Flags().GetString("binary")
			startNow, _ := cmd.Flags().GetBool("start")
			path := configPath(cmd)

			cfg, err := ensureConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port, _ = cmd.Flags().GetInt("port")
				if err := config.SaveConfig(cfg, path); err != nil {
					return fmt.Errorf("error saving config: %w", err)
				}
			}

			if err := writeSystemdUnit(path, user, binary); err != nil {
				return fmt.Errorf("error creating systemd unit: %w", err)
			}
			if err := runCommand("systemctl", "daemon-reload"); err != nil {
				return fmt.Errorf("error reloading systemd: %w", err)
			}
			if err := runCommand("systemctl", "enable", serviceName); err != nil {
				return fmt.Errorf("error enabling service: %w", err)
			}
			cmd.Printf("✅ Service enabled successfully\n")

			if startNow {
				if err := runCommand("systemctl", "start", serviceName); err != nil {
					return fmt.Errorf("error starting service: %w", err)
				}
				cmd.Printf("✅ Service started successfully\n")
			}

			cmd.Printf("\n🎉 avroview service installed!\n")
			cmd.Printf("Service: %s\n", serviceName)
			cmd.Printf("Config: %s\n", path)
			cmd.Printf("Port: %d\n", cfg.Port)
			if !startNow {
				cmd.Printf("\nTo start the service: sudo systemctl start %s\n", serviceName)
			}
			cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
			return nil
		},
	}
	installCmd.Flags().String("user", "avroview", "User to run the service as")
	installCmd.Flags().String("binary", "/usr/local/bin/avroview", "Path to the avroview binary")
	installCmd.Flags().Int("port", 8080, "Port for the service")
	installCmd.Flags().Bool("start", true, "Start the service after installation")
	installCmd.Flags().Bool("with-api-key", false, "Generate an API key when bootstrapping")
	installCmd.Flags().Bool("print-keys", false, "Print the generated API key to console")

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show avroview service logs",
		Long: `Show avroview service logs using journalctl.

Examples:
  avroview service logs
  avroview service logs -f  # Follow logs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			follow, _ := cmd.Flags().GetBool("follow")
			lines, _ := cmd.Flags().GetInt("lines")

			journalArgs := []string{"-u", serviceName}
			if follow {
				journalArgs = append(journalArgs, "-f")
			}
			if lines > 0 {
				journalArgs = append(journalArgs, fmt.Sprintf("-n%d", lines))
			}
			return runCommand("journalctl", journalArgs...)
		},
	}
	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")

	uninstallCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the avroview service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isRoot() {
				return fmt.Errorf("service uninstall requires root privileges (run with sudo)")
			}

			// Already stopped is fine.
			_ = runCommand("systemctl", "stop", serviceName)

			if err := runCommand("systemctl", "disable", serviceName); err != nil {
				cmd.Printf("Warning: could not disable service: %v\n", err)
			}
			if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("error removing unit file: %w", err)
			}
			if err := runCommand("systemctl", "daemon-reload"); err != nil {
				return fmt.Errorf("error reloading systemd: %w", err)
			}

			cmd.Printf("✅ avroview service uninstalled\n")
			cmd.Printf("Note: Configuration files were not removed\n")
			return nil
		},
	}

	serviceCmd.AddCommand(installCmd)
	for _, action := range []string{"start", "stop", "restart", "status"} {
		serviceCmd.AddCommand(systemctlCmd(action))
	}
	serviceCmd.AddCommand(logsCmd)
	serviceCmd.AddCommand(uninstallCmd)

	return serviceCmd
}

// systemctlCmd wraps a plain `systemctl <action> avroview.service`.
func systemctlCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("Run systemctl %s on the avroview service", action),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runCommand("systemctl", action, serviceName); err != nil {
				return fmt.Errorf("systemctl %s: %w", action, err)
			}
			return nil
		},
	}
}

// systemdUnit renders the unit file for the service.
func systemdUnit(configPath, user, binary string) string {
	return fmt.Sprintf(`[Unit]
Description=avroview Server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadOnlyPaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, filepath.Dir(configPath))
}

func writeSystemdUnit(configPath, user, binary string) error {
	return os.WriteFile(unitPath, []byte(systemdUnit(configPath, user, binary)), 0600)
}

// execCommand runs a system command attached to the process output
func execCommand(command string, args ...string) error {
	c := exec.Command(command, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
