package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmcleod/storefront/internal/util"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a password for --admin-password-hash",
	Long: `Prompts for a password twice without echo and prints its argon2id
hash. Pass the result to "storefront server --admin-password-hash" so the
admin password never appears in flags or the environment.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := promptPassword(cmd.ErrOrStderr(), "Password: ")
		if err != nil {
			return err
		}
		defer pw.Destroy()
		confirm, err := promptPassword(cmd.ErrOrStderr(), "Confirm password: ")
		if err != nil {
			return err
		}
		defer confirm.Destroy()

		if !bytes.Equal(pw.Bytes(), confirm.Bytes()) {
			return errors.New("passwords do not match")
		}

		hash, err := util.HashPasswordBytes(pw.Bytes(), util.DefaultArgon2idParams())
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

// promptPassword reads one password from the terminal into a locked buffer.
func promptPassword(w io.Writer, prompt string) (*memguard.LockedBuffer, error) {
	fmt.Fprint(w, prompt)
	raw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password must not be empty")
	}
	// NewBufferFromBytes wipes raw.
	return memguard.NewBufferFromBytes(raw), nil
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
