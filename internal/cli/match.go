package cli

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcTransport "rulemerge/internal/transport/grpc"
)

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "match <rule-set> <host>",
		Short: MsgMatchShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				cfg, err := opts.loadConfig(cmd)
				if err != nil {
					return err
				}
				server = dialAddr(cfg.Serve.GRPCAddr)
			}

			conn, err := grpc.NewClient(server, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("connect %s: %w", server, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			resp, err := grpcTransport.NewClient(conn).Match(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			f := resp.GetFields()
			host := f["host"].GetStringValue()
			if !f["matched"].GetBoolValue() {
				fmt.Fprintf(cmd.OutOrStdout(), MsgNoMatch, host, args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), MsgMatch, host, f["entry"].GetStringValue(), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", MsgFlagServer)
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, MsgFlagTimeout)
	return cmd
}

// dialAddr turns a listen address such as ":9090" into one a client can dial.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
