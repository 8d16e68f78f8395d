// AngelaMos | 2026
// keys.go

package main

import (
	"github.com/spf13/cobra"

	"github.com/taskispace/api/internal/auth"
)

var (
	privateKeyPath string
	publicKeyPath  string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage token signing keys",
}

// keysGenerateCmd runs before any config exists, so it never loads one.
var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a new ES256 key pair for access tokens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := auth.GenerateKeyPair(privateKeyPath, publicKeyPath); err != nil {
			return err
		}
		printf(cmd, "wrote %s and %s\n", privateKeyPath, publicKeyPath)
		return nil
	},
}

func init() {
	keysGenerateCmd.Flags().StringVar(&privateKeyPath, "private", "keys/private.pem", "private key output path")
	keysGenerateCmd.Flags().StringVar(&publicKeyPath, "public", "keys/public.pem", "public key output path")
	keysCmd.AddCommand(keysGenerateCmd)
}
