package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/n0ot/pushnote/pkg/client"
	"github.com/n0ot/pushnote/pkg/desktop"
	"github.com/n0ot/pushnote/pkg/page"
)

var listenTransports []string

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <userId>",
	Short: "Print a user's notifications as they arrive",
	Long: `listen opens one notification channel per transport for a user,
and prints every notification rendered, prefixed with its transport.

It runs until interrupted, or until every channel has closed.`,
	Args: cobra.ExactArgs(1),
	RunE: runListen,
}

func init() {
	RootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringSliceVarP(&listenTransports, "transport", "t", []string{string(client.PushStream), string(client.Socket)}, "transports to listen on (sse, websocket)")
	addURLFlag(listenCmd)
	listenCmd.Flags().Bool("desktop", false, "also show notifications on the desktop")
	viper.BindPFlag("desktop.enabled", listenCmd.Flags().Lookup("desktop"))

	viper.SetDefault("client.keepaliveInterval", client.DefaultConfig().KeepaliveInterval)
	viper.SetDefault("client.keepaliveToken", client.DefaultConfig().KeepaliveToken)
	viper.SetDefault("desktop.perSecond", 1)
	viper.SetDefault("desktop.burst", 3)
}

func runListen(cmd *cobra.Command, args []string) error {
	userID := args[0]
	kinds := make([]client.Kind, 0, len(listenTransports))
	for _, t := range listenTransports {
		kind, err := client.ParseKind(t)
		if err != nil {
			return err
		}
		kinds = append(kinds, kind)
	}

	var notifier *desktop.Notifier
	if viper.GetBool("desktop.enabled") {
		notifier = desktop.New("pushnote", viper.GetFloat64("desktop.perSecond"), viper.GetInt("desktop.burst"))
		notifier.Log = log
	}

	cfg := client.Config{
		BaseURL:           viper.GetString("client.url"),
		KeepaliveInterval: viper.GetDuration("client.keepaliveInterval"),
		KeepaliveToken:    viper.GetString("client.keepaliveToken"),
		Log:               log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc := page.NewDocument()
	channels := make([]client.Channel, 0, len(kinds))
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	for _, kind := range kinds {
		kind := kind
		list := doc.AddSection(string(kind))
		list.Observe(func(text string) {
			fmt.Printf("[%s] %s\n", kind, text)
		})
		if notifier != nil {
			list.Observe(notifier.Observe)
		}

		ch, err := client.New(kind, userID, doc, cfg)
		if err != nil {
			return err
		}
		if err := ch.Start(ctx); err != nil {
			return errors.Wrapf(err, "Start %s channel", kind)
		}
		channels = append(channels, ch)
	}

	allClosed := make(chan struct{})
	go func() {
		for _, ch := range channels {
			<-ch.Done()
		}
		close(allClosed)
	}()

	select {
	case <-ctx.Done():
		log.Info("Interrupted; closing channels")
	case <-allClosed:
		log.Info("All channels closed")
	}
	return nil
}
