// Copyright © 2018 Niko Carpenter <nikoacarpenter@gmail.com>
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/n0ot/pushnote/pkg/server"
)

var disableTLS bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the pushnote relay",
	Args:  cobra.NoArgs,
	RunE:  runServer,
}

func init() {
	RootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("bind", "b", "127.0.0.1:3000", "Bind the relay to host:port. Leave host empty to bind to all interfaces.")
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	serveCmd.Flags().DurationP("keep-alive-interval", "k", server.DefaultKeepAliveInterval, "How often push streams are sent a keepalive comment (negative disables)")
	viper.BindPFlag("server.keepAliveInterval", serveCmd.Flags().Lookup("keep-alive-interval"))
	serveCmd.Flags().BoolVarP(&disableTLS, "disable-tls", "d", false, "Overrides config option to enable TLS")

	viper.SetDefault("server.keepAliveText", server.DefaultKeepAliveText)
	viper.SetDefault("server.sendBuffer", server.DefaultSendBuffer)
	viper.SetDefault("tls.useTls", false)
}

func runServer(cmd *cobra.Command, args []string) error {
	srv := &server.Server{
		KeepAliveInterval: viper.GetDuration("server.keepAliveInterval"),
		KeepAliveText:     viper.GetString("server.keepAliveText"),
		SendBuffer:        viper.GetInt("server.sendBuffer"),
		ResolveHosts:      viper.GetBool("server.resolveHosts"),
		Log:               log,
	}

	bindAddr := viper.GetString("server.bind")
	certFile := os.ExpandEnv(viper.GetString("tls.certFile"))
	keyFile := os.ExpandEnv(viper.GetString("tls.keyFile"))
	useTLS := viper.GetBool("tls.useTls")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	log.Info("Starting pushnote relay")
	go func() {
		if useTLS && !disableTLS {
			errs <- srv.ListenAndServeTLS(bindAddr, certFile, keyFile)
		} else {
			errs <- srv.ListenAndServe(bindAddr)
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errs
}
