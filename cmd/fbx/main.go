package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gofirebird/fbclient"
	"github.com/gofirebird/fbclient/config"
	"github.com/gofirebird/fbclient/internal/logging"
)

func main() {
	var (
		logLevel  string
		logFormat string
	)
	rootCmd := &cobra.Command{
		Use:   "fbx",
		Short: "fbx - Firebird driver diagnostics",
		Long:  "Offline diagnostics for the fbclient driver: build and decode parameter buffers, decode info response dumps, validate configuration files",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitStructured(logFormat, logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log verbosity: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	rootCmd.AddCommand(
		dpbCmd(),
		tpbCmd(),
		spbCmd(),
		infoCmd(),
		configCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func decodeHexArg(arg string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', ':':
			return -1
		}
		return r
	}, arg)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("not a hex string: %w", err)
	}
	return data, nil
}

func printItems(p *fbclient.ParamBuffer) {
	for _, item := range p.Items() {
		switch item.Shape {
		case fbclient.ShapeString:
			fmt.Printf("  tag %3d  string  %q\n", item.Tag, item.Str)
		case fbclient.ShapeBytes:
			fmt.Printf("  tag %3d  bytes   %s\n", item.Tag, hex.EncodeToString(item.Raw))
		case fbclient.ShapeInt, fbclient.ShapeBigint:
			fmt.Printf("  tag %3d  int     %d\n", item.Tag, item.Int)
		default:
			fmt.Printf("  tag %3d\n", item.Tag)
		}
	}
}

func dpbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dpb",
		Short: "Build or decode database parameter buffers",
	}

	var (
		user     string
		password string
		role     string
		charset  string
		create   bool
	)
	build := &cobra.Command{
		Use:   "build",
		Short: "Render a DPB from flags and print it as hex",
		RunE: func(cmd *cobra.Command, args []string) error {
			dpb := fbclient.NewDPB(user, password, charset)
			dpb.Role = role
			rendered, err := dpb.Render(create)
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(rendered))
			return nil
		},
	}
	build.Flags().StringVar(&user, "user", "SYSDBA", "user name")
	build.Flags().StringVar(&password, "password", "", "password")
	build.Flags().StringVar(&role, "role", "", "SQL role")
	build.Flags().StringVar(&charset, "charset", "UTF8", "connection charset")
	build.Flags().BoolVar(&create, "create", false, "include database creation items")

	parse := &cobra.Command{
		Use:   "parse <hex>",
		Short: "Decode DPB hex bytes into an item list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeHexArg(args[0])
			if err != nil {
				return err
			}
			p, err := fbclient.ParseDPB(data)
			if err != nil {
				return err
			}
			printItems(p)
			return nil
		},
	}

	cmd.AddCommand(build, parse)
	return cmd
}

func tpbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tpb",
		Short: "Build or decode transaction parameter buffers",
	}

	var (
		isolation   string
		readOnly    bool
		lockTimeout int32
	)
	build := &cobra.Command{
		Use:   "build",
		Short: "Render a TPB from flags and print it as hex",
		RunE: func(cmd *cobra.Command, args []string) error {
			tpb := fbclient.NewTPB()
			switch isolation {
			case "snapshot":
				tpb.Isolation = fbclient.IsolationSnapshot
			case "serializable":
				tpb.Isolation = fbclient.IsolationSerializable
			case "read_committed":
				tpb.Isolation = fbclient.IsolationReadCommittedRecVersion
			case "read_consistency":
				tpb.Isolation = fbclient.IsolationReadCommittedReadConsistency
			default:
				return fmt.Errorf("unknown isolation %q", isolation)
			}
			if readOnly {
				tpb.AccessMode = fbclient.AccessRead
			}
			tpb.LockTimeout = lockTimeout
			rendered, err := tpb.Render()
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(rendered))
			return nil
		},
	}
	build.Flags().StringVar(&isolation, "isolation", "snapshot", "snapshot, serializable, read_committed or read_consistency")
	build.Flags().BoolVar(&readOnly, "read-only", false, "read-only access")
	build.Flags().Int32Var(&lockTimeout, "lock-timeout", -1, "lock wait seconds, -1 infinite, 0 no wait")

	parse := &cobra.Command{
		Use:   "parse <hex>",
		Short: "Decode TPB hex bytes into typed settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeHexArg(args[0])
			if err != nil {
				return err
			}
			tpb, err := fbclient.ParseTPB(data)
			if err != nil {
				return err
			}
			if tpb == nil {
				fmt.Println("empty buffer (engine default isolation)")
				return nil
			}
			fmt.Printf("isolation:    %d\n", tpb.Isolation)
			fmt.Printf("access:       %d\n", tpb.AccessMode)
			fmt.Printf("lock timeout: %d\n", tpb.LockTimeout)
			for _, r := range tpb.Reservations {
				fmt.Printf("reservation:  %s share=%d access=%d\n", r.Table, r.Share, r.Access)
			}
			return nil
		},
	}

	cmd.AddCommand(build, parse)
	return cmd
}

func spbCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spb parse <hex>",
		Short: "Decode service attach parameter buffers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "parse" {
				return fmt.Errorf("unknown subcommand %q", args[0])
			}
			data, err := decodeHexArg(args[1])
			if err != nil {
				return err
			}
			p, err := fbclient.ParseSPB(data)
			if err != nil {
				return err
			}
			printItems(p)
			return nil
		},
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <hex>",
		Short: "Decode an info response dump into tagged items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeHexArg(args[0])
			if err != nil {
				return err
			}
			items, err := fbclient.NewBuffer(data).Items()
			if err != nil {
				return err
			}
			for _, it := range items {
				if v, verr := it.Int(); verr == nil && len(it.Payload) > 0 && len(it.Payload) <= 8 {
					fmt.Printf("  tag %3d  len %4d  int %d\n", it.Tag, len(it.Payload), v)
					continue
				}
				fmt.Printf("  tag %3d  len %4d  %s\n", it.Tag, len(it.Payload), hex.EncodeToString(it.Payload))
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config check <file>",
		Short: "Validate a driver configuration file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "check" {
				return fmt.Errorf("unknown subcommand %q", args[0])
			}
			cfg, err := config.LoadFromFile(args[1])
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d servers, %d databases\n", len(cfg.Servers), len(cfg.Databases))
			for name := range cfg.Databases {
				target, err := cfg.Target(name)
				if err != nil {
					return err
				}
				fmt.Printf("  %s -> %s\n", name, target)
			}
			return nil
		},
	}
}
