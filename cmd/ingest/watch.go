package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"

	"searchlib/pkg/utils"
)

func newWatchCmd() *cobra.Command {
	var (
		addr   string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow batch events from the API server's TCP feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = utils.LoadServerConfig().EventsAddr
			}
			ctx := cmd.Context()
			for {
				if err := follow(ctx, addr, pretty, cmd.OutOrStdout()); err != nil {
					slog.Warn("event feed disconnected", "addr", addr, "err", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Event feed address (default from CATALOG_EVENTS_ADDR)")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "Pretty print JSON events")

	return cmd
}

// follow prints each line of the feed until the connection drops.
func follow(ctx context.Context, addr string, pretty bool, w io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	slog.Info("connected to event feed", "addr", addr)

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		fmt.Fprintln(w, formatLine(sc.Bytes(), pretty))
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return io.EOF
}

func formatLine(line []byte, pretty bool) string {
	if !pretty {
		return string(line)
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		return string(line)
	}
	b, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return string(line)
	}
	return string(b)
}
