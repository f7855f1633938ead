package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/opay/internal/api/client"
	"github.com/donaldgifford/opay/internal/opay"
	"github.com/donaldgifford/opay/internal/settings"
)

func requestCmd() *cobra.Command {
	var (
		query     []string
		body      string
		fromStore bool
	)

	cmd := &cobra.Command{
		Use:   "request <method> <endpoint>",
		Short: "Send one request to the OPay API",
		Long: "Sends one request to the OPay API and prints the JSON response.\n" +
			"Credentials come from flags, OPAY_* environment variables or the config\n" +
			"file, or from the settings store with --from-store.",
		Example: `  opay request post /api/v1/international/cashier/create --body '{"reference":"ref-1"}'
  opay request get /api/v1/balance --query currency=NGN
  opay request post /api/v1/international/payment/status --body @status.json --from-store
  opay request get /api/v1/balance --server http://localhost:8080`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			q, err := parseQuery(query)
			if err != nil {
				return err
			}
			b, err := parseBody(body)
			if err != nil {
				return err
			}

			ctx := context.Background()

			if c, ok := remoteClient(); ok {
				payload, err := c.Forward(ctx, &apiclient.ForwardRequest{
					Method:   args[0],
					Endpoint: args[1],
					Query:    q,
					Body:     b,
				})
				if err != nil {
					return err
				}
				return outputRaw(payload)
			}

			method, err := opay.ParseMethod(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			var provider settings.Provider = settings.NewViperProvider(viper.GetViper())
			if fromStore {
				store, err := openStore(ctx, cfg)
				if err != nil {
					return err
				}
				defer store.Close()

				if provider, err = settings.Snapshot(ctx, store); err != nil {
					return err
				}
			}

			client := opay.NewClient(provider,
				opay.WithLogger(log),
				opay.WithHTTPClient(newHTTPClient(cfg)),
			)
			if !client.IsValid() {
				log.Warn("OPay settings are incomplete",
					"merchant_id_set", client.MerchantID() != "",
					"api_uri_set", client.BaseURI() != "",
				)
			}

			payload, err := client.Request(ctx, method, args[1], q, b)
			if err != nil {
				return err
			}
			return outputJSON(payload)
		},
	}

	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&body, "body", "d", "", "JSON request body, or @file to read it from a file")
	cmd.Flags().BoolVar(&fromStore, "from-store", false, "read credentials from the configured settings store")

	return cmd
}

// parseQuery turns key=value pairs into a query map. Later keys win.
func parseQuery(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	q := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid query parameter %q: want key=value", pair)
		}
		q[k] = v
	}
	return q, nil
}

// parseBody decodes a JSON value given inline or as @path. Numbers are
// kept as json.Number so large amounts survive re-encoding.
func parseBody(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}

	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		var err error
		data, err = os.ReadFile(path) //nolint:gosec // path from trusted CLI flag
		if err != nil {
			return nil, fmt.Errorf("reading body file: %w", err)
		}
	}

	body, err := opay.DecodeBody(data)
	if err != nil {
		return nil, fmt.Errorf("parsing body: %w", err)
	}
	return body, nil
}
