package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(passwdCmd)
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the master key",
	Long: `Change the master key. Every entry is verified under the current key and
then re-encrypted under the new one with a fresh salt. Nothing is written
unless every entry re-keys cleanly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		oldKey, _, err := sess.unlock(false)
		if err != nil {
			return err
		}
		newKey, err := sess.newMasterKey("New master key: ", "Confirm new master key: ")
		if err != nil {
			return err
		}
		n, err := sess.store.ChangePassword(oldKey, newKey)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Master key changed (%d entries re-encrypted)\n", n)
		return nil
	},
}
