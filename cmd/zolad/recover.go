// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leifmetcalf/zola-db/internal/partio"
)

var recoverCmd = &cobra.Command{
	Use:   "recover <root>",
	Short: "Sweep stale .tmp/.old partition directories left by an interrupted write",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		if err := partio.Sweep(root); err != nil {
			return fmt.Errorf("sweeping %s: %w", root, err)
		}
		fmt.Printf("swept %s\n", root)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}
