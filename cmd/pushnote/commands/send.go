package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/howeyc/gopass"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/n0ot/pushnote/pkg/notify"
)

var promptForMessage bool

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <userId> [message]",
	Short: "Send a notification to a user",
	Long: `send posts a notification to a user through the relay.

The relay's reply is not checked; watch the user's channels to see the notification arrive.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var field notify.Field
		switch {
		case promptForMessage:
			field = promptField("Message: ")
		case len(args) == 2:
			field = notify.Text(args[1])
		default:
			return errors.New("A message is required; pass it as an argument, or use -p")
		}

		action := &notify.Action{
			BaseURL: viper.GetString("client.url"),
			Log:     log,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return action.Submit(ctx, args[0], field)
	},
}

func init() {
	RootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVarP(&promptForMessage, "prompt", "p", false, "prompt for the message without echoing it")
	addURLFlag(sendCmd)
}

// promptField reads its value from the terminal, without echo.
type promptField string

func (p promptField) Value() (string, error) {
	fmt.Print(string(p))
	text, err := gopass.GetPasswd()
	if err != nil {
		return "", err
	}
	return string(text), nil
}
