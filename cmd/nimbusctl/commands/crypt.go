package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
	"github.com/nimbusops/nimbusctl/pkg/secrets"
)

// requireCodec builds the codec and fails when no key is configured.
// Unlike planning, the crypt commands are useless without one.
func requireCodec() (*secrets.Codec, error) {
	codec, err := newCodec()
	if err != nil {
		return nil, err
	}
	if codec == nil {
		return nil, reconcile.NewCodecError("no encryption key configured", nil).
			WithCode(reconcile.ErrCodeMissingKey)
	}
	return codec, nil
}

func newEncryptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Encrypt a secret value for use in an input file",
		Long: `Encrypt a cleartext value with the configured key and print the
marked reference. Paste the output verbatim as a secretString value;
apply decrypts it transparently.`,
		Example: `  NIMBUS_CRYPTKEY=$(cat /secure/key) nimbusctl encrypt 'hunter2'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := requireCodec()
			if err != nil {
				return err
			}
			out, err := codec.Encrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	return cmd
}

func newDecryptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt <value>",
		Short: "Decrypt a marked secret reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := requireCodec()
			if err != nil {
				return err
			}
			out, err := codec.Decrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	return cmd
}
