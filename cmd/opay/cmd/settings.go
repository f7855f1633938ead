package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/donaldgifford/opay/internal/api/handlers"
	"github.com/donaldgifford/opay/internal/settings"
	domain "github.com/donaldgifford/opay/pkg/types"
)

var errInvalidSettings = errors.New("OPay settings are invalid")

func settingsCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "settings",
		Short: "Manage the stored OPay settings",
		Long: "Reads and writes the token, merchant ID and API URI in the configured\n" +
			"settings store, or on a running server with --server.",
	}

	root.AddCommand(
		settingsGetCmd(),
		settingsSetCmd(),
		settingsValidateCmd(),
	)

	return root
}

func settingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the stored settings with the token masked",
		Example: `  opay settings get
  opay settings get --server http://localhost:8080 --output json`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			var body *handlers.SettingsBody
			if c, ok := remoteClient(); ok {
				var err error
				if body, err = c.GetSettings(ctx); err != nil {
					return err
				}
			} else {
				creds, err := loadStored(ctx)
				if err != nil {
					return err
				}
				body = settingsBody(creds)
			}

			if jsonOutput() {
				return outputJSON(body)
			}
			return printSettings(os.Stdout, body)
		},
	}
}

func settingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store new settings",
		Long: "Stores the values given with --token, --merchant-id and --api-uri (or\n" +
			"their OPAY_* environment variables). The opay section of the config\n" +
			"file is not read. Locally, values not given keep their stored value.\n" +
			"Through --server all three are required.",
		Example: `  opay settings set --token OPAYPUB... --merchant-id 256612345678901 \
    --api-uri https://sandboxapi.opaycheckout.com
  OPAY_TOKEN=OPAYPUB... opay settings set`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			given, err := explicitCredentials(cmd.Flags())
			if err != nil {
				return err
			}

			if c, ok := remoteClient(); ok {
				body, err := c.UpdateSettings(ctx, given)
				if err != nil {
					return err
				}
				return printSettings(os.Stdout, body)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			creds, err := store.Load(ctx)
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}
			mergeCredentials(creds, given)

			if err := creds.Validate(); err != nil {
				printFieldErrors(os.Stderr, err)
				return errInvalidSettings
			}
			if err := store.Save(ctx, creds); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}

			fmt.Println("Settings saved.")
			return printSettings(os.Stdout, settingsBody(creds))
		},
	}
}

func settingsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that all three settings are set",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			if c, ok := remoteClient(); ok {
				valid, err := c.SettingsValid(ctx)
				if err != nil {
					return err
				}
				if !valid {
					return errInvalidSettings
				}
				fmt.Println("Settings are valid.")
				return nil
			}

			creds, err := loadStored(ctx)
			if err != nil {
				return err
			}
			if err := creds.Validate(); err != nil {
				printFieldErrors(os.Stderr, err)
				return errInvalidSettings
			}
			fmt.Println("Settings are valid.")
			return nil
		},
	}
}

func loadStored(ctx context.Context) (*domain.Credentials, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	creds, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return creds, nil
}

// explicitCredentials reads the credential flags and OPAY_* variables
// only, so values from the config file never overwrite stored settings.
func explicitCredentials(flags *pflag.FlagSet) (*domain.Credentials, error) {
	v := viper.New()
	for key, name := range map[string]string{
		"opay." + domain.KeyToken:      "token",
		"opay." + domain.KeyMerchantID: "merchant-id",
		"opay." + domain.KeyAPIURI:     "api-uri",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return settings.CredentialsFrom(settings.NewViperProvider(v)), nil
}

// mergeCredentials copies the non-empty values of src into dst.
func mergeCredentials(dst, src *domain.Credentials) {
	for _, key := range domain.SettingsKeys {
		if v := src.Get(key); v != "" {
			dst.Set(key, v)
		}
	}
}

func settingsBody(creds *domain.Credentials) *handlers.SettingsBody {
	return &handlers.SettingsBody{
		Token:      creds.MaskedToken(),
		MerchantID: creds.MerchantID,
		APIURI:     creds.BaseURI,
		Valid:      creds.IsValid(),
	}
}

func printFieldErrors(w io.Writer, err error) {
	for _, fe := range domain.FieldErrors(err) {
		fmt.Fprintf(w, "%s: %s\n", fe.Field, fe.Message)
	}
}
