// Copyright © 2023 Niko Carpenter <niko@nikocarpenter.com>
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package commands

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/n0ot/pushnote/pkg/server"
)

var (
	skipTLSVerification    bool
	statsServerCertificate string
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats [url]",
	Short: "Print stats from a pushnote relay",
	Long: `stats queries a pushnote relay for running stats.

If the url is omitted, the relay from the client.url config option will be queried.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		relayURL := viper.GetString("client.url")
		if len(args) > 0 {
			relayURL = args[0]
		}
		if skipTLSVerification {
			fmt.Fprintln(os.Stderr, "Warning: skipping TLS verification is insecure.")
		}
		return getStats(relayURL)
	},
}

func init() {
	RootCmd.AddCommand(statsCmd)
	addURLFlag(statsCmd)
	statsCmd.Flags().BoolVarP(&skipTLSVerification, "no-tls-verify", "n", false, "skip TLS verification\n    This is insecure, and you should only use this for testing")
	statsCmd.Flags().StringVarP(&statsServerCertificate, "server-certificate", "s", "", "file containing the PEM encoded certificate to use for server verification, instead of the system's certificate store")
}

func getStats(relayURL string) error {
	base, err := url.Parse(strings.TrimSuffix(relayURL, "/"))
	if err != nil {
		return errors.Wrap(err, "Parse relay URL")
	}

	var certPool *x509.CertPool
	if statsServerCertificate != "" {
		cert, err := os.ReadFile(statsServerCertificate)
		if err != nil {
			return errors.Wrap(err, "Open server certificate")
		}
		certPool = x509.NewCertPool()
		certPool.AppendCertsFromPEM(cert)
	}

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: skipTLSVerification,
				RootCAs:            certPool,
			},
		},
	}

	resp, err := httpClient.Get(base.JoinPath("stats").String())
	if err != nil {
		return errors.Wrap(err, "Connect to pushnote relay")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("Relay returned %s", resp.Status)
	}

	var stats server.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return errors.Wrap(err, "Get stats response from relay")
	}

	fmt.Printf(`Stats for %s:
Uptime: %s
Number of subscribers: %d (%d using server-sent events), for %d users
Max subscribers: %d on %s

Notifications published: %d
Deliveries: %d (%d dropped)
`, base.Host, stats.Uptime.Round(time.Second),
		stats.NumSubscribers, stats.NumSSESubscribers, stats.NumUsers,
		stats.MaxSubscribers, stats.MaxSubscribersTime,
		stats.NumPublished,
		stats.NumDelivered, stats.NumDropped)
	return nil
}
